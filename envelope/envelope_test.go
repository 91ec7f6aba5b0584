package envelope

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pierrec/lz4/v4"
)

func header(comp uint16) []byte {
	h := make([]byte, 3)
	h[0] = encPlaintext
	binary.LittleEndian.PutUint16(h[1:3], comp)
	return h
}

func TestUnwrapNoCompression(t *testing.T) {
	blob := append(header(compNone), []byte("hi")...)

	got, err := Unwrap(blob)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if string(got) != "hi" {
		t.Errorf("expected %q, got %q", "hi", got)
	}
}

func TestUnwrapLZ4RoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)

	compressed := make([]byte, lz4.CompressBlockBound(len(payload)))
	var ht [1 << 16]int
	n, err := lz4.CompressBlock(payload, compressed, ht[:])
	if err != nil {
		t.Fatalf("CompressBlock: %v", err)
	}
	if n == 0 {
		// incompressible fallback: lz4 sometimes reports n==0 meaning "store as-is"
		t.Skip("payload did not compress, nothing to assert")
	}
	compressed = compressed[:n]

	blob := append(header(compLZ4), compressed...)

	got, err := Unwrap(blob)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(payload))
	}
}

func TestUnwrapTruncated(t *testing.T) {
	if _, err := Unwrap([]byte{0x02, 0x00}); err == nil {
		t.Error("expected error for truncated envelope")
	}
}

func TestUnwrapUnsupportedEncryption(t *testing.T) {
	blob := append([]byte{0x03, 0x00, 0x00}, []byte("x")...)
	if _, err := Unwrap(blob); err == nil {
		t.Error("expected error for unsupported encryption tag")
	}
}

func TestUnwrapUnsupportedCompression(t *testing.T) {
	blob := append(header(0x0002), []byte("x")...)
	if _, err := Unwrap(blob); err == nil {
		t.Error("expected error for unsupported compression tag")
	}
}
