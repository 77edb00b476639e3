package persistence

import (
	"bufio"
	stdbytes "bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"lsmdb/pkg/bytes"
)

// SSTableItem is a single on-disk record: a key/value pair plus the bookkeeping
// fields (ID, Meta) the teacher's engine carried alongside every entry. Key and
// Value are the session engine's own shared-byte type, not a bare []byte, so a
// value read out of a snapshot is already the type every other layer — session,
// writecache, the HTTP API — passes around.
type SSTableItem struct {
	Key   bytes.Bytes
	Value bytes.Bytes
	ID    uint64
	Meta  uint64
}

type BloomFilter interface {
	Add(key bytes.Bytes)
	MayContain(key bytes.Bytes) bool
}

// BlockCache caches decoded records by key, avoiding a disk seek+decode for a
// key that was already looked up once.
type BlockCache interface {
	Get(key string) (SSTableItem, bool)
	Set(key string, value SSTableItem)
}

// blockCache is the BlockCache an SSTable is opened with by default: an
// in-process LRU over decoded SSTableItem records, keyed by the string form
// of the item's key (the same key Get/HasKey look up with). A miss here
// costs one readRecordAt; a hit skips the disk entirely.
type blockCache struct {
	mu       sync.RWMutex
	capacity int
	items    map[string]*cacheNode
	head     *cacheNode
	tail     *cacheNode
}

type cacheNode struct {
	key      string
	value    SSTableItem
	lastUsed time.Time
	prev     *cacheNode
	next     *cacheNode
}

// NewBlockCache creates a BlockCache with room for capacity decoded records.
func NewBlockCache(capacity int) BlockCache {
	return &blockCache{
		capacity: capacity,
		items:    make(map[string]*cacheNode),
	}
}

func (bc *blockCache) Get(key string) (SSTableItem, bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	node, found := bc.items[key]
	if !found {
		return SSTableItem{}, false
	}

	node.lastUsed = time.Now()
	bc.moveToHead(node)

	return node.value, true
}

func (bc *blockCache) Set(key string, value SSTableItem) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if node, found := bc.items[key]; found {
		node.value = value
		node.lastUsed = time.Now()
		bc.moveToHead(node)
		return
	}

	node := &cacheNode{key: key, value: value, lastUsed: time.Now()}
	bc.addToHead(node)
	bc.items[key] = node

	if len(bc.items) > bc.capacity {
		bc.evictLRU()
	}
}

func (bc *blockCache) moveToHead(node *cacheNode) {
	if node == bc.head {
		return
	}

	if node.prev != nil {
		node.prev.next = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	}
	if node == bc.tail {
		bc.tail = node.prev
	}

	bc.addToHead(node)
}

func (bc *blockCache) addToHead(node *cacheNode) {
	node.prev = nil
	node.next = bc.head

	if bc.head != nil {
		bc.head.prev = node
	}
	bc.head = node

	if bc.tail == nil {
		bc.tail = node
	}
}

func (bc *blockCache) evictLRU() {
	if bc.tail == nil {
		return
	}

	delete(bc.items, bc.tail.key)

	if bc.tail.prev != nil {
		bc.tail.prev.next = nil
	} else {
		bc.head = nil
	}

	bc.tail = bc.tail.prev
}

type IndexEntry struct {
	Key         bytes.Bytes
	BlockOffset int64
	BlockSize   int
	BlockInd    int
}

type SSTableMeta struct {
	NumBlocks   int
	NumKeys     int
	ApproxBytes int64
	CreatedAt   time.Time
}

type SSTable struct {
	filePath string
	reader   *os.File

	bloom      BloomFilter
	blockIndex []IndexEntry

	cache BlockCache
	mu    sync.RWMutex
}

func NewSSTable(path string, bloom BloomFilter, cache BlockCache) *SSTable {
	return &SSTable{
		filePath: path,
		bloom:    bloom,
		cache:    cache,
	}
}

func (s *SSTable) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.filePath)
	if err != nil {
		return fmt.Errorf("failed to open SSTable file: %w", err)
	}
	// assign reader early so LoadIndex/LoadBloomFilter can use it
	s.reader = file

	// Load index
	if err := s.LoadIndex(); err != nil {
		if cerr := file.Close(); cerr != nil {
			slog.Warn("failed to close sstable file after LoadIndex error", "path", s.filePath, "error", cerr)
		}
		return fmt.Errorf("failed to load index: %w", err)
	}

	// Load bloom filter
	if err := s.LoadBloomFilter(); err != nil {
		if cerr := file.Close(); cerr != nil {
			slog.Warn("failed to close sstable file after LoadBloomFilter error", "path", s.filePath, "error", cerr)
		}
		return fmt.Errorf("failed to load bloom filter: %w", err)
	}

	return nil
}

func (s *SSTable) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reader != nil {
		return s.reader.Close()
	}
	return nil
}

func (s *SSTable) LoadIndex() error {
	const (
		sizeFieldSize = 4
		seqNumSize    = 8
		metaSize      = 8
	)

	if s.reader == nil {
		return fmt.Errorf("SSTable file not open")
	}

	fileInfo, err := s.reader.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	fileSize := fileInfo.Size()
	if fileSize < 4 {
		return fmt.Errorf("file too small to contain index size")
	}

	// Read index size (4 bytes at the end of the file)
	var indexSize uint32
	_, err = s.reader.Seek(fileSize-sizeFieldSize, io.SeekStart)
	if err != nil {
		return fmt.Errorf("failed to seek to index size: %w", err)
	}
	err = binary.Read(s.reader, binary.LittleEndian, &indexSize)
	if err != nil {
		return fmt.Errorf("failed to read index size: %w", err)
	}
	// simple index size validation
	if int64(indexSize) > fileSize-sizeFieldSize {
		return fmt.Errorf("invalid index size")
	}

	// reset file pointer to the beginning
	_, err = s.reader.Seek(0, io.SeekStart)
	if err != nil {
		return fmt.Errorf("failed to seek file: %w", err)
	}

	// Read index entries until reaching indexOffsetR
	var (
		indexOffsetR = fileSize - sizeFieldSize - int64(indexSize)
		reader       = bufio.NewReader(s.reader)

		blockIndexSz, offset int64
		lenBuff              [4]byte
	)
	for offset < indexOffsetR {
		n, err := io.ReadFull(reader, lenBuff[:])
		if err != nil {
			if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("failed to read key length: %w", err)
		}
		if n != 4 {
			break
		}
		keyLen := binary.LittleEndian.Uint32(lenBuff[:])

		key := make([]byte, keyLen)
		n, err = io.ReadFull(reader, key)
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
		if n != int(keyLen) {
			break
		}

		n, err = io.ReadFull(reader, lenBuff[:])
		if err != nil {
			return fmt.Errorf("failed to read value length: %w", err)
		}
		if n != 4 {
			break
		}
		valueLen := binary.LittleEndian.Uint32(lenBuff[:])

		blockSize := 4 + int(keyLen) + 4 + int(valueLen) + 8 + 8

		s.blockIndex = append(s.blockIndex, IndexEntry{
			Key:         bytes.New(key),
			BlockOffset: offset,
			BlockSize:   blockSize,
			BlockInd:    int(blockIndexSz),
		})

		skip := int(valueLen) + seqNumSize + metaSize
		skipped, err := reader.Discard(skip)
		if err != nil {
			return fmt.Errorf("failed to skip to next entry: %w", err)
		}
		if skipped != skip {
			break
		}

		offset += int64(blockSize)
		blockIndexSz++
	}

	return nil
}

func (s *SSTable) LoadBloomFilter() error {
	// Nothing is read from the file: s.bloom stays whatever filter the
	// SSTable was constructed with (nil for a reopened snapshot).
	return nil
}

// findIndexEntry returns the IndexEntry for key via a binary search over
// blockIndex, which LoadIndex populates in the same ascending order
// WriteSnapshot wrote its records in.
func (s *SSTable) findIndexEntry(key bytes.Bytes) (IndexEntry, bool) {
	idx, ok := slices.BinarySearchFunc(s.blockIndex, key, func(e IndexEntry, k bytes.Bytes) int {
		return e.Key.Compare(k)
	})
	if !ok {
		return IndexEntry{}, false
	}
	return s.blockIndex[idx], true
}

// readRecordAt seeks to entry's offset and decodes the single record stored
// there, in the format WriteSnapshot writes:
// keylen(4) | key | valuelen(4) | value | id(8) | meta(8).
func (s *SSTable) readRecordAt(entry IndexEntry) (SSTableItem, error) {
	buf := make([]byte, entry.BlockSize)
	if _, err := s.reader.ReadAt(buf, entry.BlockOffset); err != nil {
		return SSTableItem{}, fmt.Errorf("failed to read block: %w", err)
	}

	r := bufio.NewReader(stdbytes.NewReader(buf))

	var keyLen uint32
	if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
		return SSTableItem{}, err
	}
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return SSTableItem{}, err
	}

	var valueLen uint32
	if err := binary.Read(r, binary.LittleEndian, &valueLen); err != nil {
		return SSTableItem{}, err
	}
	value := make([]byte, valueLen)
	if _, err := io.ReadFull(r, value); err != nil {
		return SSTableItem{}, err
	}

	var id, meta uint64
	if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
		return SSTableItem{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &meta); err != nil {
		return SSTableItem{}, err
	}

	return SSTableItem{
		Key:   bytes.New(key),
		Value: bytes.New(value),
		ID:    id,
		Meta:  meta,
	}, nil
}

func (s *SSTable) HasKey(key bytes.Bytes) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.bloom != nil && !s.bloom.MayContain(key) {
		return false, nil
	}
	if s.reader == nil {
		return false, fmt.Errorf("SSTable file not open")
	}

	_, ok := s.findIndexEntry(key)
	return ok, nil
}

func (s *SSTable) Get(key bytes.Bytes) (*SSTableItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.bloom != nil && !s.bloom.MayContain(key) {
		return nil, fmt.Errorf("key not found")
	}
	if s.reader == nil {
		return nil, fmt.Errorf("SSTable file not open")
	}

	if s.cache != nil {
		if item, ok := s.cache.Get(key.String()); ok {
			return &item, nil
		}
	}

	entry, ok := s.findIndexEntry(key)
	if !ok {
		return nil, fmt.Errorf("key not found")
	}

	item, err := s.readRecordAt(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(key.String(), item)
	}

	return &item, nil
}

// Iterator creates an iterator for the SSTable
func (s *SSTable) Iterator() *SSTableIterator {
	return &SSTableIterator{
		sstable: s,
		reader:  s.reader,
	}
}

// NewIterator creates a new iterator
func (s *SSTable) NewIterator() *SSTableIterator {
	return &SSTableIterator{
		sstable: s,
		reader:  s.reader,
	}
}

// ApproximateSize returns the approximate size of the SSTable
func (s *SSTable) ApproximateSize() int64 {
	if s.reader == nil {
		return 0
	}

	fileInfo, err := s.reader.Stat()
	if err != nil {
		return 0
	}

	return fileInfo.Size()
}

// GetFilePath returns the file path of the SSTable
func (s *SSTable) GetFilePath() string {
	return s.filePath
}

// SSTableIterator iterates over SSTable entries in file order (ascending key
// order, the order WriteSnapshot wrote them in). It scans sequentially
// rather than through blockIndex: a full range scan touches every record
// anyway, so there is nothing for the index to save here — it earns its keep
// in Get/HasKey's point lookups instead.
type SSTableIterator struct {
	sstable *SSTable
	reader  *os.File
	key     bytes.Bytes
	value   bytes.Bytes
	meta    uint64
	err     error
}

// First moves to the first entry
func (it *SSTableIterator) First() {
	if _, err := it.reader.Seek(0, 0); err != nil {
		it.err = err
		return
	}
	it.Next()
}

// Next moves to the next entry
func (it *SSTableIterator) Next() {
	if it.reader == nil {
		it.err = fmt.Errorf("reader not available")
		return
	}

	// Records end where the index section WriteSnapshot appends begins.
	var dataEnd int64
	if n := len(it.sstable.blockIndex); n > 0 {
		last := it.sstable.blockIndex[n-1]
		dataEnd = last.BlockOffset + int64(last.BlockSize)
	}
	pos, err := it.reader.Seek(0, io.SeekCurrent)
	if err != nil {
		it.err = err
		return
	}
	if pos >= dataEnd {
		it.key = bytes.Invalid
		it.value = bytes.Invalid
		return
	}

	// Read key length
	keyLenBytes := make([]byte, 4)
	_, err = it.reader.Read(keyLenBytes)
	if err != nil {
		if err == io.EOF {
			it.key = bytes.Invalid
			it.value = bytes.Invalid
			return
		}
		it.err = err
		return
	}
	keyLen := binary.LittleEndian.Uint32(keyLenBytes)

	// Read key
	key := make([]byte, keyLen)
	_, err = it.reader.Read(key)
	if err != nil {
		it.err = err
		return
	}
	it.key = bytes.New(key)

	// Read value length
	valueLenBytes := make([]byte, 4)
	_, err = it.reader.Read(valueLenBytes)
	if err != nil {
		it.err = err
		return
	}
	valueLen := binary.LittleEndian.Uint32(valueLenBytes)

	// Read value
	value := make([]byte, valueLen)
	_, err = it.reader.Read(value)
	if err != nil {
		it.err = err
		return
	}
	it.value = bytes.New(value)

	// Read sequence number
	seqBytes := make([]byte, 8)
	_, err = it.reader.Read(seqBytes)
	if err != nil {
		it.err = err
		return
	}

	// Read metadata
	metaBytes := make([]byte, 8)
	_, err = it.reader.Read(metaBytes)
	if err != nil {
		it.err = err
		return
	}
	it.meta = binary.LittleEndian.Uint64(metaBytes)
}

// Valid checks if the iterator is valid
func (it *SSTableIterator) Valid() bool {
	return it.key.IsValid() && it.err == nil
}

// Key returns the current key
func (it *SSTableIterator) Key() bytes.Bytes {
	return it.key
}

// Value returns the current value
func (it *SSTableIterator) Value() bytes.Bytes {
	return it.value
}

// Meta returns the current metadata
func (it *SSTableIterator) Meta() uint64 {
	return it.meta
}

// Close closes the iterator
func (it *SSTableIterator) Close() error {
	return nil
}
