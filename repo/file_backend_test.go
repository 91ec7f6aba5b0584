package repo

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func mustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestFileBackendReadConfig(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "config"), []byte("[repository]\nid = abc123\n"))

	b := &FileBackend{Path: dir}
	data, err := b.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}

	id, err := RepositoryID(data)
	if err != nil {
		t.Fatalf("RepositoryID: %v", err)
	}
	if id != "abc123" {
		t.Errorf("got %q", id)
	}
}

func TestRepositoryIDMissingKeyIsFatal(t *testing.T) {
	if _, err := RepositoryID([]byte("[repository]\n")); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestFileBackendSegmentsOrdering(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "data", "0", "3"), []byte("c"))
	mustWriteFile(t, filepath.Join(dir, "data", "0", "1"), []byte("a"))
	mustWriteFile(t, filepath.Join(dir, "data", "2", "0"), []byte("d"))
	mustWriteFile(t, filepath.Join(dir, "data", "1", "0"), []byte("b"))
	mustWriteFile(t, filepath.Join(dir, "data", "not-a-number", "0"), []byte("skip"))

	b := &FileBackend{Path: dir}
	refs, err := b.Segments()
	if err != nil {
		t.Fatalf("Segments: %v", err)
	}

	want := []SegmentRef{{0, 1}, {0, 3}, {1, 0}, {2, 0}}
	if len(refs) != len(want) {
		t.Fatalf("got %v, want %v", refs, want)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("index %d: got %v, want %v", i, refs[i], want[i])
		}
	}
}

func TestFileBackendOpenSegment(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "data", "0", "0"), []byte("hello"))

	b := &FileBackend{Path: dir}
	rc, err := b.OpenSegment(SegmentRef{Bucket: 0, Seg: 0})
	if err != nil {
		t.Fatalf("OpenSegment: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q", data)
	}
}

func TestFileBackendHintsAndIndices(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "hints.1"), []byte("h1"))
	mustWriteFile(t, filepath.Join(dir, "index.1"), []byte("i1"))

	b := &FileBackend{Path: dir}
	hints, err := b.Hints()
	if err != nil {
		t.Fatalf("Hints: %v", err)
	}
	if len(hints) != 1 || hints[0].Txid != 1 {
		t.Fatalf("got %v", hints)
	}

	rc, err := b.OpenAux(hints[0])
	if err != nil {
		t.Fatalf("OpenAux: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "h1" {
		t.Errorf("got %q", data)
	}

	indices, err := b.Indices()
	if err != nil {
		t.Fatalf("Indices: %v", err)
	}
	if len(indices) != 1 || indices[0].Txid != 1 {
		t.Fatalf("got %v", indices)
	}
}

func TestFileBackendMissingDataDir(t *testing.T) {
	dir := t.TempDir()
	b := &FileBackend{Path: dir}
	if _, err := b.Segments(); err == nil {
		t.Fatal("expected error for missing data directory")
	}
}
