// Package value decodes the self-describing, MessagePack-shaped value
// stream stored objects carry: a generic Dynamic fallback, plus
// structural projections into Manifest, Archive and ItemMetadata.
package value

import (
	"fmt"

	"github.com/lily-mara/bork/borgerr"
)

// Decoder is a cursor over a single self-describing value blob. It is
// not safe for concurrent use.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps buf for decoding starting at offset 0.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// More reports whether unread bytes remain. Exhaustion is pos <
// len(buf); the off-by-one variant pos < len(buf)-1 under-reads the
// final byte of a blob.
func (d *Decoder) More() bool {
	return d.pos < len(d.buf)
}

func (d *Decoder) readByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, fmt.Errorf("unexpected end of blob")
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *Decoder) readN(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, fmt.Errorf("unexpected end of blob: need %d bytes, have %d", n, len(d.buf)-d.pos)
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) readUint(n int) (uint64, error) {
	b, err := d.readN(n)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v, nil
}

// DecodeDynamic decodes one self-describing value of any shape.
func (d *Decoder) DecodeDynamic() (Dynamic, error) {
	tag, err := d.readByte()
	if err != nil {
		return Dynamic{}, &borgerr.DecodeError{Op: "decode tag", Err: err}
	}

	switch {
	case tag <= 0x7f: // positive fixint
		return Dynamic{Kind: KindUint8, U8: tag}, nil
	case tag >= 0xe0: // negative fixint
		return Dynamic{Kind: KindInt8, I8: int8(tag)}, nil
	case tag&0xf0 == 0x80: // fixmap
		return d.decodeMap(int(tag & 0x0f))
	case tag&0xf0 == 0x90: // fixarray
		return d.decodeSequence(int(tag & 0x0f))
	case tag&0xe0 == 0xa0: // fixstr
		return d.decodeString(int(tag & 0x1f))
	}

	switch tag {
	case 0xc2:
		return Dynamic{Kind: KindUint8, U8: 0}, nil // false
	case 0xc3:
		return Dynamic{Kind: KindUint8, U8: 1}, nil // true
	case 0xc4:
		n, err := d.readUint(1)
		if err != nil {
			return Dynamic{}, &borgerr.DecodeError{Op: "bin8 length", Err: err}
		}
		return d.decodeBytes(int(n))
	case 0xc5:
		n, err := d.readUint(2)
		if err != nil {
			return Dynamic{}, &borgerr.DecodeError{Op: "bin16 length", Err: err}
		}
		return d.decodeBytes(int(n))
	case 0xc6:
		n, err := d.readUint(4)
		if err != nil {
			return Dynamic{}, &borgerr.DecodeError{Op: "bin32 length", Err: err}
		}
		return d.decodeBytes(int(n))
	case 0xcc:
		n, err := d.readUint(1)
		return Dynamic{Kind: KindUint8, U8: uint8(n)}, wrapDecode("uint8", err)
	case 0xcd:
		n, err := d.readUint(2)
		return Dynamic{Kind: KindUint16, U16: uint16(n)}, wrapDecode("uint16", err)
	case 0xce:
		n, err := d.readUint(4)
		return Dynamic{Kind: KindUint32, U32: uint32(n)}, wrapDecode("uint32", err)
	case 0xcf:
		n, err := d.readUint(8)
		return Dynamic{Kind: KindUint64, U64: n}, wrapDecode("uint64", err)
	case 0xd0:
		n, err := d.readUint(1)
		return Dynamic{Kind: KindInt8, I8: int8(n)}, wrapDecode("int8", err)
	case 0xd1:
		n, err := d.readUint(2)
		return Dynamic{Kind: KindInt16, I16: int16(n)}, wrapDecode("int16", err)
	case 0xd2:
		n, err := d.readUint(4)
		return Dynamic{Kind: KindInt32, I32: int32(n)}, wrapDecode("int32", err)
	case 0xd3:
		n, err := d.readUint(8)
		return Dynamic{Kind: KindInt64, I64: int64(n)}, wrapDecode("int64", err)
	case 0xd9:
		n, err := d.readUint(1)
		if err != nil {
			return Dynamic{}, &borgerr.DecodeError{Op: "str8 length", Err: err}
		}
		return d.decodeString(int(n))
	case 0xda:
		n, err := d.readUint(2)
		if err != nil {
			return Dynamic{}, &borgerr.DecodeError{Op: "str16 length", Err: err}
		}
		return d.decodeString(int(n))
	case 0xdb:
		n, err := d.readUint(4)
		if err != nil {
			return Dynamic{}, &borgerr.DecodeError{Op: "str32 length", Err: err}
		}
		return d.decodeString(int(n))
	case 0xdc:
		n, err := d.readUint(2)
		if err != nil {
			return Dynamic{}, &borgerr.DecodeError{Op: "array16 length", Err: err}
		}
		return d.decodeSequence(int(n))
	case 0xdd:
		n, err := d.readUint(4)
		if err != nil {
			return Dynamic{}, &borgerr.DecodeError{Op: "array32 length", Err: err}
		}
		return d.decodeSequence(int(n))
	case 0xde:
		n, err := d.readUint(2)
		if err != nil {
			return Dynamic{}, &borgerr.DecodeError{Op: "map16 length", Err: err}
		}
		return d.decodeMap(int(n))
	case 0xdf:
		n, err := d.readUint(4)
		if err != nil {
			return Dynamic{}, &borgerr.DecodeError{Op: "map32 length", Err: err}
		}
		return d.decodeMap(int(n))
	default:
		return Dynamic{}, &borgerr.DecodeError{Op: "decode tag", Err: fmt.Errorf("unsupported type tag 0x%02x", tag)}
	}
}

func wrapDecode(op string, err error) error {
	if err == nil {
		return nil
	}
	return &borgerr.DecodeError{Op: op, Err: err}
}

func (d *Decoder) decodeString(n int) (Dynamic, error) {
	b, err := d.readN(n)
	if err != nil {
		return Dynamic{}, &borgerr.DecodeError{Op: "string body", Err: err}
	}
	return Dynamic{Kind: KindString, Str: string(b)}, nil
}

func (d *Decoder) decodeBytes(n int) (Dynamic, error) {
	b, err := d.readN(n)
	if err != nil {
		return Dynamic{}, &borgerr.DecodeError{Op: "bytes body", Err: err}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return Dynamic{Kind: KindBytes, Bytes: out}, nil
}

func (d *Decoder) decodeSequence(n int) (Dynamic, error) {
	seq := make([]Dynamic, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.DecodeDynamic()
		if err != nil {
			return Dynamic{}, &borgerr.DecodeError{Op: fmt.Sprintf("sequence element %d", i), Err: err}
		}
		seq = append(seq, v)
	}
	return Dynamic{Kind: KindSequence, Seq: seq}, nil
}

func (d *Decoder) decodeMap(n int) (Dynamic, error) {
	m := NewDynamicMap()
	for i := 0; i < n; i++ {
		k, err := d.DecodeDynamic()
		if err != nil {
			return Dynamic{}, &borgerr.DecodeError{Op: fmt.Sprintf("map key %d", i), Err: err}
		}
		v, err := d.DecodeDynamic()
		if err != nil {
			return Dynamic{}, &borgerr.DecodeError{Op: fmt.Sprintf("map value %d", i), Err: err}
		}
		m.Set(k, v)
	}
	return Dynamic{Kind: KindMap, Map: m}, nil
}
