package store

import "errors"

var (
	// ErrDirRequired is returned by NewLeaf when given an empty data directory.
	ErrDirRequired = errors.New("store: data directory is required")
	// ErrClosed is returned by Flush when called after Close.
	ErrClosed = errors.New("store: leaf is closed")
	// ErrSnapshotCorrupt wraps NewLeaf's failure to open a recorded snapshot file.
	ErrSnapshotCorrupt = errors.New("store: snapshot file is corrupt or unreadable")
)
