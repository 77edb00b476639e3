// Package store implements the terminal leaf store that sits under the
// outermost session in a stack: a durable, WAL-backed key-value store that
// satisfies session.Parent exactly like a session would, except it never
// reports a key as deleted (spec.md §6: "leaf stores may always return
// false" from IsDeleted) and it alone is responsible for surviving a
// process restart.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"

	"lsmdb/pkg/bytes"
	"lsmdb/pkg/config"
	"lsmdb/pkg/metrics"
	"lsmdb/pkg/persistence"
	"lsmdb/pkg/session"
	"lsmdb/pkg/wal"

	"github.com/zhangyunhao116/skipmap"
)

// leafEntry is what the in-memory index holds per key: either a live value
// or a tombstone masking an older value still sitting in the on-disk
// snapshot.
type leafEntry struct {
	value   bytes.Bytes
	deleted bool
}

// Leaf is a durable terminal key-value store. Every mutation is WAL-logged
// before it lands in the in-memory index; Flush folds the index into a
// single sorted on-disk snapshot (an SSTable, per lsmdb's pkg/persistence)
// and records the WAL sequence number that snapshot covers; the WAL itself
// is not truncated.
//
// Unlike lsmdb's own memtable, there is exactly one generation in memory
// and at most one snapshot on disk at a time: this store targets the single
// local process described by spec.md's Non-goals ("multi-process access...
// any network surface" are out of scope), not an LSM-tree with background
// compaction.
type Leaf struct {
	mu sync.RWMutex

	dir     string
	journal *wal.WAL
	index   *skipmap.FuncMap[bytes.Bytes, leafEntry]
	seq     uint64

	manifest      *persistence.Manifest
	snapshot      *persistence.SSTable
	bloomFPRate   float64
	cacheCapacity int

	metrics metrics.Collector
	closed  bool
}

// SetMetrics installs the Collector that Write/Erase/Flush report to. A
// Leaf with no Collector set reports to metrics.Noop.
func (l *Leaf) SetMetrics(c metrics.Collector) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metrics = c
}

// NewLeaf opens (or creates) a leaf store rooted at cfg.RootPath: it loads
// the manifest and any recorded snapshot, opens the WAL, and replays every
// WAL entry written since that snapshot was taken to rebuild the in-memory
// index.
func NewLeaf(ctx context.Context, cfg config.PersistenceConfig) (*Leaf, error) {
	if cfg.RootPath == "" {
		return nil, ErrDirRequired
	}

	l := &Leaf{
		dir: cfg.RootPath,
		index: skipmap.NewFunc[bytes.Bytes, leafEntry](func(a, b bytes.Bytes) bool {
			return a.Less(b)
		}),
		manifest:      persistence.NewManifest(cfg.RootPath),
		bloomFPRate:   cfg.BloomFilter.FPRate,
		cacheCapacity: cfg.Cache.Capacity,
		metrics:       metrics.Noop{},
	}

	if err := l.manifest.Load(); err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	snapshotPath, snapshotSeq := l.manifest.Snapshot()
	if snapshotPath != "" {
		// No bloom filter here: LoadBloomFilter doesn't actually reconstruct
		// one from disk (same stub as lsmdb's own pkg/persistence), and a
		// freshly-constructed, never-populated filter would reject every
		// real key. Passing nil makes Get/HasKey go straight to their
		// blockIndex lookup, which is correct, just unfiltered.
		sst := persistence.NewSSTable(snapshotPath, nil, persistence.NewBlockCache(l.cacheCapacity))
		if err := sst.Open(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
		}
		l.snapshot = sst
		l.seq = snapshotSeq
	}

	journal, err := wal.New(filepath.Join(cfg.RootPath, "wal"))
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL: %w", err)
	}
	l.journal = journal
	l.journal.Start(ctx)

	if err := l.replay(snapshotSeq); err != nil {
		return nil, fmt.Errorf("failed to replay WAL: %w", err)
	}

	return l, nil
}

// replay rebuilds the in-memory index from every WAL record written after
// the snapshot currently backing the store.
func (l *Leaf) replay(since uint64) error {
	return l.journal.Replay(since+1, func(e wal.Entry) error {
		if e.SeqNum > l.seq {
			l.seq = e.SeqNum
		}
		switch e.Op {
		case wal.OpWrite:
			l.index.Store(e.Key, leafEntry{value: e.Value})
		case wal.OpErase:
			l.index.Store(e.Key, leafEntry{deleted: true})
		}
		return nil
	})
}

// Read returns k's value, or bytes.Invalid if k is absent or tombstoned.
func (l *Leaf) Read(k bytes.Bytes) bytes.Bytes {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.readLocked(k)
}

// Write durably logs and stores k=v.
func (l *Leaf) Write(k, v bytes.Bytes) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	l.journal.Append(wal.Entry{SeqNum: l.seq, Op: wal.OpWrite, Key: k, Value: v})
	<-l.journal.Done()
	l.index.Store(k, leafEntry{value: v})
	l.metrics.IncCounter("leaf_writes_total", nil, 1)
}

// Erase durably logs and applies a tombstone for k.
func (l *Leaf) Erase(k bytes.Bytes) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	l.journal.Append(wal.Entry{SeqNum: l.seq, Op: wal.OpErase, Key: k})
	<-l.journal.Done()
	l.index.Store(k, leafEntry{deleted: true})
	l.metrics.IncCounter("leaf_erases_total", nil, 1)
}

// Contains reports whether k currently has a live value.
func (l *Leaf) Contains(k bytes.Bytes) bool {
	return l.Read(k).IsValid()
}

// IsDeleted always reports false: a leaf store has no parent to shadow, so
// it never needs to distinguish "erased here" from "never written" for a
// session layered above it (spec.md §6).
func (l *Leaf) IsDeleted(bytes.Bytes) bool {
	return false
}

// Begin returns an iterator at the smallest live key.
func (l *Leaf) Begin() session.Iterator {
	keys := l.liveKeys()
	return &leafIterator{leaf: l, keys: keys, pos: 0}
}

// End returns a past-the-last-key iterator.
func (l *Leaf) End() session.Iterator {
	keys := l.liveKeys()
	return &leafIterator{leaf: l, keys: keys, pos: len(keys)}
}

// Find returns an iterator at k, or End() if k is absent.
func (l *Leaf) Find(k bytes.Bytes) session.Iterator {
	keys := l.liveKeys()
	idx, ok := slices.BinarySearchFunc(keys, k, bytes.Bytes.Compare)
	if !ok {
		return &leafIterator{leaf: l, keys: keys, pos: len(keys)}
	}
	return &leafIterator{leaf: l, keys: keys, pos: idx}
}

// LowerBound returns an iterator at the first live key >= k.
func (l *Leaf) LowerBound(k bytes.Bytes) session.Iterator {
	keys := l.liveKeys()
	idx, _ := slices.BinarySearchFunc(keys, k, bytes.Bytes.Compare)
	return &leafIterator{leaf: l, keys: keys, pos: idx}
}

// UpperBound returns an iterator at the first live key > k.
func (l *Leaf) UpperBound(k bytes.Bytes) session.Iterator {
	keys := l.liveKeys()
	idx, ok := slices.BinarySearchFunc(keys, k, bytes.Bytes.Compare)
	if ok {
		idx++
	}
	return &leafIterator{leaf: l, keys: keys, pos: idx}
}

// liveKeys materializes the ascending, deduplicated set of keys currently
// visible: every non-tombstoned key in the in-memory index, plus every
// snapshot key the index hasn't touched at all.
func (l *Leaf) liveKeys() []bytes.Bytes {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.liveKeysLocked()
}

func mergeSortedUnique(a, b []bytes.Bytes) []bytes.Bytes {
	out := make([]bytes.Bytes, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Less(b[j]):
			out = append(out, a[i])
			i++
		case b[j].Less(a[i]):
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// Flush folds the current in-memory index and any existing snapshot into a
// single new sorted snapshot file, then records it in the manifest. It does
// not truncate the WAL itself (the teacher repo's own WAL has no truncate
// path either); Replay's since+1 start bound is what keeps a restart from
// redoing work a snapshot already covers.
func (l *Leaf) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	keys := l.liveKeysLocked()
	items := make([]persistence.SSTableItem, 0, len(keys))
	for _, k := range keys {
		items = append(items, persistence.SSTableItem{
			Key:   k,
			Value: l.readLocked(k),
		})
	}

	path := filepath.Join(l.dir, fmt.Sprintf("snapshot-%d.sst", l.seq))
	sst, err := persistence.WriteSnapshot(path, items, l.bloomFPRate, l.cacheCapacity)
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	oldSnapshot := l.snapshot
	l.snapshot = sst
	if err := l.manifest.SetSnapshot(path, l.seq); err != nil {
		return fmt.Errorf("failed to update manifest: %w", err)
	}

	l.index = skipmap.NewFunc[bytes.Bytes, leafEntry](func(a, b bytes.Bytes) bool {
		return a.Less(b)
	})

	if oldSnapshot != nil {
		if err := oldSnapshot.Close(); err != nil {
			slog.Warn("failed to close superseded snapshot", "error", err)
		}
	}

	l.metrics.IncCounter("leaf_flushes_total", nil, 1)
	l.metrics.SetGauge("leaf_snapshot_keys", nil, float64(len(keys)))

	return nil
}

// liveKeysLocked and readLocked are liveKeys/Read for callers that already
// hold l.mu (Flush takes the write lock before either is usable).
func (l *Leaf) liveKeysLocked() []bytes.Bytes {
	touched := make(map[bytes.Bytes]struct{})
	var fromIndex []bytes.Bytes
	l.index.Range(func(k bytes.Bytes, e leafEntry) bool {
		touched[k] = struct{}{}
		if !e.deleted {
			fromIndex = append(fromIndex, k)
		}
		return true
	})
	if l.snapshot == nil {
		return fromIndex
	}
	var fromSnapshot []bytes.Bytes
	it := l.snapshot.Iterator()
	for it.First(); it.Valid(); it.Next() {
		k := it.Key()
		if _, dup := touched[k]; dup {
			continue
		}
		fromSnapshot = append(fromSnapshot, k)
	}
	return mergeSortedUnique(fromIndex, fromSnapshot)
}

func (l *Leaf) readLocked(k bytes.Bytes) bytes.Bytes {
	if e, ok := l.index.Load(k); ok {
		if e.deleted {
			return bytes.Invalid
		}
		return e.value
	}
	if l.snapshot == nil {
		return bytes.Invalid
	}
	item, err := l.snapshot.Get(k)
	if err != nil {
		return bytes.Invalid
	}
	return item.Value
}

// Close stops the WAL's background writer and closes the WAL file and any open
// snapshot. It does not flush; callers that want a durable snapshot on the
// way out call Flush first.
func (l *Leaf) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	l.journal.Stop()
	if err := l.journal.Close(); err != nil {
		return fmt.Errorf("failed to close WAL: %w", err)
	}
	if l.snapshot != nil {
		if err := l.snapshot.Close(); err != nil {
			return fmt.Errorf("failed to close snapshot: %w", err)
		}
	}
	return nil
}
