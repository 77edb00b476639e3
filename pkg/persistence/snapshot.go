package persistence

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
)

// WriteSnapshot writes items (already sorted by key, with duplicates
// resolved by the caller) to a new SSTable file at path and returns it
// opened for reads. This is the Leaf store's only write path to disk: one
// full snapshot per flush, no levels, no compaction.
func WriteSnapshot(path string, items []SSTableItem, bloomFPRate float64, cacheCapacity int) (*SSTable, error) {
	const (
		sizeFieldSize = 4
		seqNumSize    = 8
		metaSize      = 8
	)

	expected := uint32(len(items))
	if expected == 0 {
		expected = 1
	}
	bloom := NewBloomFilter(expected, bloomFPRate)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			slog.Warn("failed to close snapshot file after write", "path", path, "error", cerr)
		}
	}()

	blockIndex := make([]IndexEntry, 0, len(items))
	var blockOffset int64
	for blockNum, item := range items {
		bloom.Add(item.Key)

		key := item.Key.Bytes()
		value := item.Value.Bytes()

		if len(key) > math.MaxUint32 {
			return nil, fmt.Errorf("key too large: %d", len(key))
		}
		if len(value) > math.MaxUint32 {
			return nil, fmt.Errorf("value too large: %d", len(value))
		}

		if err := binary.Write(file, binary.LittleEndian, uint32(len(key))); err != nil {
			return nil, err
		}
		if _, err := file.Write(key); err != nil {
			return nil, err
		}
		if err := binary.Write(file, binary.LittleEndian, uint32(len(value))); err != nil {
			return nil, err
		}
		if _, err := file.Write(value); err != nil {
			return nil, err
		}
		if err := binary.Write(file, binary.LittleEndian, item.ID); err != nil {
			return nil, err
		}
		if err := binary.Write(file, binary.LittleEndian, item.Meta); err != nil {
			return nil, err
		}

		blockSz := sizeFieldSize + len(key) + sizeFieldSize + len(value) + seqNumSize + metaSize
		blockIndex = append(blockIndex, IndexEntry{
			Key:         item.Key,
			BlockOffset: blockOffset,
			BlockSize:   blockSz,
			BlockInd:    blockNum,
		})
		blockOffset += int64(blockSz)
	}

	indexData := make([]byte, 0)
	for _, entry := range blockIndex {
		entryKey := entry.Key.Bytes()
		indexData = append(indexData, make([]byte, 4)...)
		binary.LittleEndian.PutUint32(indexData[len(indexData)-4:], uint32(len(entryKey)))
		indexData = append(indexData, entryKey...)

		indexData = append(indexData, make([]byte, 8)...)
		binary.LittleEndian.PutUint64(indexData[len(indexData)-8:], uint64(entry.BlockOffset))

		indexData = append(indexData, make([]byte, 4)...)
		binary.LittleEndian.PutUint32(indexData[len(indexData)-4:], uint32(entry.BlockSize))

		indexData = append(indexData, make([]byte, 4)...)
		binary.LittleEndian.PutUint32(indexData[len(indexData)-4:], uint32(entry.BlockInd))
	}
	if _, err := file.Write(indexData); err != nil {
		return nil, err
	}
	if len(indexData) > math.MaxUint32 {
		return nil, fmt.Errorf("index too large: %d", len(indexData))
	}
	if err := binary.Write(file, binary.LittleEndian, uint32(len(indexData))); err != nil {
		return nil, err
	}

	sst := NewSSTable(path, bloom, NewBlockCache(cacheCapacity))
	if err := sst.Open(); err != nil {
		return nil, fmt.Errorf("failed to open freshly written snapshot: %w", err)
	}
	return sst, nil
}
