// Package envelope strips the encryption and compression wrapper that
// every stored blob in a Borg repository carries before its payload
// can be handed to the value decoder.
package envelope

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/lily-mara/bork/borgerr"
)

const (
	encPlaintext = 0x02

	compNone = 0x0000
	compLZ4  = 0x0001

	// growBufCap is the hard ceiling on the LZ4 output buffer: the
	// stored format carries no decompressed size, so we probe with a
	// growing buffer rather than trust an attacker-controlled hint.
	growBufCap = 1 << 27 // 128 MiB
)

// Unwrap removes the 3-byte encryption/compression header from a
// stored blob and returns the plaintext payload. Only the plaintext
// encryption tag and the none/LZ4-block compression tags are
// supported; anything else is a fatal EnvelopeError.
func Unwrap(blob []byte) ([]byte, error) {
	if len(blob) < 3 {
		return nil, &borgerr.EnvelopeError{Op: "unwrap", Err: fmt.Errorf("envelope truncated: need 3 header bytes, got %d", len(blob))}
	}

	if blob[0] != encPlaintext {
		return nil, &borgerr.EnvelopeError{Op: "unwrap", Err: fmt.Errorf("unsupported encryption tag 0x%02x", blob[0])}
	}

	comp := binary.LittleEndian.Uint16(blob[1:3])
	payload := blob[3:]

	switch comp {
	case compNone:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	case compLZ4:
		return decompressLZ4(payload)
	default:
		return nil, &borgerr.EnvelopeError{Op: "unwrap", Err: fmt.Errorf("unsupported compression tag 0x%04x", comp)}
	}
}

// decompressLZ4 probes a growing output buffer since the envelope does
// not record the decompressed size: start at 3x the compressed size,
// multiply by 1.5 on a too-small signal, never probe with more than
// growBufCap bytes, and give up once a growBufCap buffer is too small.
func decompressLZ4(src []byte) ([]byte, error) {
	size := len(src) * 3
	if size == 0 {
		size = 16
	}
	if size > growBufCap {
		size = growBufCap
	}

	for {
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(src, dst)
		if err == nil {
			return dst[:n], nil
		}

		if err != lz4.ErrInvalidSourceShortBuffer {
			return nil, &borgerr.EnvelopeError{Op: "lz4 decompress", Err: err}
		}

		if size >= growBufCap {
			return nil, &borgerr.EnvelopeError{Op: "lz4 decompress", Err: fmt.Errorf("decompressed size exceeds %d byte cap: %w", growBufCap, err)}
		}

		size = int(float64(size) * 1.5)
		if size > growBufCap {
			size = growBufCap
		}
	}
}
