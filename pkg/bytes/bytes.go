// Package bytes provides the shared immutable byte-string value used as the
// key and value type throughout the session engine: a cheaply shareable,
// totally ordered blob with a distinguished invalid sentinel.
package bytes

import "strings"

// Bytes is an immutable byte string. The zero value is Invalid ("no value");
// the empty string built with New or FromString is a valid (if unusual) key
// or value.
//
// The backing storage is a Go string, which is already immutable and shares
// its underlying array on copy — the natural expression of "immutable,
// cheaply shareable blob" in this language.
type Bytes struct {
	data  string
	valid bool
}

// Invalid is the out-of-band sentinel denoting absence. It is never equal to
// any constructed Bytes, including the empty one.
var Invalid = Bytes{}

// New copies b into an immutable Bytes.
func New(b []byte) Bytes {
	return Bytes{data: string(b), valid: true}
}

// FromString wraps s (already immutable in Go) without copying.
func FromString(s string) Bytes {
	return Bytes{data: s, valid: true}
}

// IsValid reports whether b was constructed by New/FromString, as opposed to
// being the zero value or Invalid.
func (b Bytes) IsValid() bool {
	return b.valid
}

// Bytes returns a fresh copy of the underlying data.
func (b Bytes) Bytes() []byte {
	if !b.valid {
		return nil
	}
	return []byte(b.data)
}

// String returns the underlying data without copying.
func (b Bytes) String() string {
	return b.data
}

// Compare returns -1, 0, or 1 as b is lexicographically less than, equal to,
// or greater than other. Invalid compares less than every valid Bytes and
// equal only to itself.
func (b Bytes) Compare(other Bytes) int {
	if !b.valid || !other.valid {
		switch {
		case b.valid == other.valid:
			return 0
		case !b.valid:
			return -1
		default:
			return 1
		}
	}
	return strings.Compare(b.data, other.data)
}

// Less reports whether b sorts strictly before other.
func (b Bytes) Less(other Bytes) bool {
	return b.Compare(other) < 0
}

// Greater reports whether b sorts strictly after other.
func (b Bytes) Greater(other Bytes) bool {
	return b.Compare(other) > 0
}

// Equal reports whether b and other denote the same key/value, including
// both being Invalid.
func (b Bytes) Equal(other Bytes) bool {
	return b.valid == other.valid && b.data == other.data
}
