package persistence

import (
	"path/filepath"
	"testing"
)

func TestManifestLoadCreatesEmptyWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest(dir)

	if err := m.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	path, seq := m.Snapshot()
	if path != "" || seq != 0 {
		t.Fatalf("Snapshot() = (%q, %d), want (\"\", 0)", path, seq)
	}
}

func TestManifestSetSnapshotPersists(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest(dir)

	if err := m.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := m.SetSnapshot("snapshot-1.sst", 42); err != nil {
		t.Fatalf("SetSnapshot() error = %v", err)
	}

	path, seq := m.Snapshot()
	if path != "snapshot-1.sst" || seq != 42 {
		t.Fatalf("Snapshot() = (%q, %d), want (snapshot-1.sst, 42)", path, seq)
	}
}

func TestManifestReloadsPersistedState(t *testing.T) {
	dir := t.TempDir()

	m1 := NewManifest(dir)
	if err := m1.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := m1.SetSnapshot("snapshot-2.sst", 7); err != nil {
		t.Fatalf("SetSnapshot() error = %v", err)
	}

	m2 := NewManifest(dir)
	if err := m2.Load(); err != nil {
		t.Fatalf("re-Load() error = %v", err)
	}

	path, seq := m2.Snapshot()
	if path != "snapshot-2.sst" || seq != 7 {
		t.Fatalf("Snapshot() after reload = (%q, %d), want (snapshot-2.sst, 7)", path, seq)
	}
}

func TestManifestFilePathUnderDataDir(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest(dir)
	if err := m.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	want := filepath.Join(dir, "MANIFEST")
	if m.filePath != want {
		t.Fatalf("filePath = %q, want %q", m.filePath, want)
	}
}
