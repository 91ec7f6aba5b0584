package value

import (
	"bytes"
	"testing"
)

// buildManifest assembles a minimal well-formed manifest blob by hand,
// mirroring the field set DecodeManifest projects.
func buildManifest(t *testing.T) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	buf.Write(packFixmap(3))

	buf.Write(packFixstr("version"))
	buf.WriteByte(0x01)

	buf.Write(packFixstr("item_keys"))
	buf.Write(packFixarray(2))
	buf.Write(packFixstr("path"))
	buf.Write(packFixstr("chunks"))

	buf.Write(packFixstr("archives"))
	buf.Write(packFixmap(1))
	buf.Write(packFixstr("root"))
	buf.Write(packFixmap(2))
	buf.Write(packFixstr("id"))
	buf.Write(packBin8(idBytes(0x11)))
	buf.Write(packFixstr("time"))
	buf.Write(packFixstr("2024-01-01T00:00:00"))

	return buf.Bytes()
}

func TestDecodeManifestFields(t *testing.T) {
	m, err := DecodeManifest(buildManifest(t))
	if err != nil {
		t.Fatalf("DecodeManifest: %v", err)
	}
	if m.Version != 1 {
		t.Errorf("version: got %d", m.Version)
	}
	if len(m.ItemKeys) != 2 || m.ItemKeys[0] != "path" || m.ItemKeys[1] != "chunks" {
		t.Errorf("item_keys: got %v", m.ItemKeys)
	}
	entry, ok := m.Archives["root"]
	if !ok {
		t.Fatal("expected archives[\"root\"]")
	}
	if entry.Time != "2024-01-01T00:00:00" {
		t.Errorf("archive time: got %q", entry.Time)
	}
	for _, b := range entry.Id {
		if b != 0x11 {
			t.Fatalf("archive id: got %x", entry.Id)
		}
	}
}

func buildArchive(t *testing.T) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	buf.Write(packFixmap(3))

	buf.Write(packFixstr("name"))
	buf.Write(packFixstr("daily-2024-01-01"))

	buf.Write(packFixstr("hostname"))
	buf.Write(packFixstr("backup-host"))

	buf.Write(packFixstr("items"))
	buf.Write(packFixarray(2))
	buf.Write(packBin8(idBytes(0x01)))
	buf.Write(packBin8(idBytes(0x02)))

	return buf.Bytes()
}

func TestDecodeArchiveFields(t *testing.T) {
	a, err := DecodeArchive(buildArchive(t))
	if err != nil {
		t.Fatalf("DecodeArchive: %v", err)
	}
	if a.Name != "daily-2024-01-01" {
		t.Errorf("name: got %q", a.Name)
	}
	if a.Hostname != "backup-host" {
		t.Errorf("hostname: got %q", a.Hostname)
	}
	if len(a.Items) != 2 {
		t.Fatalf("items: got %d", len(a.Items))
	}
	if a.Items[0][0] != 0x01 || a.Items[1][0] != 0x02 {
		t.Errorf("items: got %v", a.Items)
	}
}

func buildItem(t *testing.T, path string, nChunks int) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	buf.Write(packFixmap(2))

	buf.Write(packFixstr("path"))
	buf.Write(packFixstr(path))

	buf.Write(packFixstr("chunks"))
	buf.Write(packFixarray(nChunks))
	for i := 0; i < nChunks; i++ {
		buf.Write(packFixarray(3))
		buf.Write(packBin8(idBytes(byte(i + 1))))
		buf.WriteByte(byte(0x10 + i)) // size, opaque
		buf.WriteByte(byte(0x20 + i)) // checksum, opaque
	}

	return buf.Bytes()
}

// TestDecodeItemMetadataMultiRecord covers a single item blob
// containing multiple concatenated records.
func TestDecodeItemMetadataMultiRecord(t *testing.T) {
	buf := new(bytes.Buffer)
	buf.Write(buildItem(t, "a/b.txt", 1))
	buf.Write(buildItem(t, "c/d.txt", 2))

	d := NewDecoder(buf.Bytes())

	var items []ItemMetadata
	for d.More() {
		item, err := DecodeItemMetadata(d)
		if err != nil {
			t.Fatalf("DecodeItemMetadata: %v", err)
		}
		items = append(items, item)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Path != "a/b.txt" || len(items[0].Chunks) != 1 {
		t.Errorf("item 0: got %+v", items[0])
	}
	if items[1].Path != "c/d.txt" || len(items[1].Chunks) != 2 {
		t.Errorf("item 1: got %+v", items[1])
	}
	if items[1].Chunks[1].Id[0] != 0x02 {
		t.Errorf("item 1 chunk 1 id: got %x", items[1].Chunks[1].Id)
	}
}

func TestDecodeItemMetadataMissingChunksDefaultsEmpty(t *testing.T) {
	buf := new(bytes.Buffer)
	buf.Write(packFixmap(1))
	buf.Write(packFixstr("path"))
	buf.Write(packFixstr("empty-dir"))

	d := NewDecoder(buf.Bytes())
	item, err := DecodeItemMetadata(d)
	if err != nil {
		t.Fatalf("DecodeItemMetadata: %v", err)
	}
	if item.Path != "empty-dir" {
		t.Errorf("path: got %q", item.Path)
	}
	if len(item.Chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(item.Chunks))
	}
}

func TestDecodeManifestRejectsNonMap(t *testing.T) {
	if _, err := DecodeManifest([]byte{0x05}); err == nil {
		t.Fatal("expected error decoding non-map manifest")
	}
}
