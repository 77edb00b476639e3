package session

import "lsmdb/pkg/bytes"

// ScanOptions controls a Scan call.
type ScanOptions struct {
	// Reverse walks from `to` down to `from` instead of `from` up to `to`.
	Reverse bool
	// Limit caps the number of keys visited; zero means unlimited.
	Limit int
}

// ScanResult is delivered to a ScanFunc once per visited key.
type ScanResult struct {
	Key   bytes.Bytes
	Value bytes.Bytes
}

// ScanFunc is called once per key in range. Returning an error stops the
// scan and is propagated to Scan's caller.
type ScanFunc func(ScanResult) error

// Scan walks p's logical key space over [from, to) (either bound may be
// bytes.Invalid to leave it open), calling fn for each live key.
//
// Next/Prev roll over end<->begin within a single call (end()++ == begin()
// is documented, deliberate behavior), which means a position is never
// observably equal to a captured End() after a full lap — comparing
// against End() alone cannot terminate an unbounded sweep. Scan therefore
// also tracks the first key it visits and stops if it would visit it
// again, the same wraparound guard the factory's own findFirstNot uses.
func Scan(p Parent, from, to bytes.Bytes, opts ScanOptions, fn ScanFunc) error {
	var it Iterator
	if opts.Reverse {
		if to.IsValid() {
			it = p.LowerBound(to)
		} else {
			it = p.End()
		}
		it.Prev()
	} else {
		if from.IsValid() {
			it = p.LowerBound(from)
		} else {
			it = p.Begin()
		}
	}
	defer it.Close()

	firstKey := bytes.Invalid
	count := 0
	for it.Valid() {
		if opts.Limit > 0 && count >= opts.Limit {
			break
		}

		key := it.Key()
		if count > 0 && key.Equal(firstKey) {
			break
		}
		if !opts.Reverse && to.IsValid() && !key.Less(to) {
			break
		}
		if opts.Reverse && from.IsValid() && key.Less(from) {
			break
		}
		if opts.Reverse && to.IsValid() && !key.Less(to) {
			break
		}

		if err := fn(ScanResult{Key: key, Value: it.Value()}); err != nil {
			return err
		}
		if count == 0 {
			firstKey = key
		}
		count++

		if opts.Reverse {
			it.Prev()
		} else {
			it.Next()
		}
	}
	return nil
}
