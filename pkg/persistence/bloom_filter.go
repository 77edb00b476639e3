package persistence

import (
	"hash"
	"hash/fnv"
	"math"

	"lsmdb/pkg/bytes"
)

// BloomFilterImpl implements a simple bloom filter over a fixed bit array,
// using salted FNV-32a hashes as the family of independent hash functions.
type BloomFilterImpl struct {
	bits     []bool
	size     uint32
	hashFunc []hash.Hash32
}

// NewBloomFilter creates a bloom filter sized for expectedItems entries at
// the given false-positive rate.
func NewBloomFilter(expectedItems uint32, falsePositiveRate float64) BloomFilter {
	size := calculateOptimalSize(expectedItems, falsePositiveRate)
	hashCount := calculateHashCount(expectedItems, size)

	hashFuncs := make([]hash.Hash32, hashCount)
	for i := range hashFuncs {
		hashFuncs[i] = fnv.New32a()
	}

	return &BloomFilterImpl{
		bits:     make([]bool, size),
		size:     size,
		hashFunc: hashFuncs,
	}
}

// Add adds a key to the bloom filter.
func (bf *BloomFilterImpl) Add(key bytes.Bytes) {
	raw := key.Bytes()
	for i, h := range bf.hashFunc {
		h.Reset()
		h.Write(raw)
		h.Write([]byte{byte(i)}) // salt for each hash function
		index := h.Sum32() % bf.size
		bf.bits[index] = true
	}
}

// MayContain checks if a key might be in the bloom filter. False negatives
// never occur; false positives occur at approximately the configured rate.
func (bf *BloomFilterImpl) MayContain(key bytes.Bytes) bool {
	raw := key.Bytes()
	for i, h := range bf.hashFunc {
		h.Reset()
		h.Write(raw)
		h.Write([]byte{byte(i)})
		index := h.Sum32() % bf.size
		if !bf.bits[index] {
			return false
		}
	}
	return true
}

// calculateOptimalSize computes m = ceil(-(n * ln(p)) / ln(2)^2).
func calculateOptimalSize(expectedItems uint32, falsePositiveRate float64) uint32 {
	if expectedItems == 0 {
		expectedItems = 1
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}
	const ln2Squared = 0.6931471805599453 * 0.6931471805599453
	m := math.Ceil(-1.0 * float64(expectedItems) * math.Log(falsePositiveRate) / ln2Squared)
	if m < 1 {
		m = 1
	}
	return uint32(m)
}

// calculateHashCount computes k = round((m/n) * ln(2)), clamped to [1, 10].
func calculateHashCount(expectedItems uint32, size uint32) int {
	if expectedItems == 0 {
		expectedItems = 1
	}
	k := int(math.Round((float64(size) / float64(expectedItems)) * 0.6931471805599453))
	if k < 1 {
		k = 1
	}
	if k > 10 {
		k = 10
	}
	return k
}
