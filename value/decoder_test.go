package value

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func idBytes(b byte) []byte {
	out := make([]byte, 32)
	for i := range out {
		out[i] = b
	}
	return out
}

func packFixstr(s string) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(0xa0 | byte(len(s)))
	buf.WriteString(s)
	return buf.Bytes()
}

func packBin8(b []byte) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(0xc4)
	buf.WriteByte(byte(len(b)))
	buf.Write(b)
	return buf.Bytes()
}

func packFixmap(n int) []byte { return []byte{0x80 | byte(n)} }
func packFixarray(n int) []byte { return []byte{0x90 | byte(n)} }

func TestDecodeDynamicPositiveFixint(t *testing.T) {
	d := NewDecoder([]byte{0x05})
	v, err := d.DecodeDynamic()
	if err != nil {
		t.Fatalf("DecodeDynamic: %v", err)
	}
	if v.Kind != KindUint8 || v.U8 != 5 {
		t.Errorf("got %+v", v)
	}
	if d.More() {
		t.Error("expected no more bytes")
	}
}

func TestDecodeDynamicNegativeFixint(t *testing.T) {
	d := NewDecoder([]byte{0xff})
	v, err := d.DecodeDynamic()
	if err != nil {
		t.Fatalf("DecodeDynamic: %v", err)
	}
	if v.Kind != KindInt8 || v.I8 != -1 {
		t.Errorf("got %+v", v)
	}
}

func TestDecodeDynamicFixstr(t *testing.T) {
	d := NewDecoder(packFixstr("hello"))
	v, err := d.DecodeDynamic()
	if err != nil {
		t.Fatalf("DecodeDynamic: %v", err)
	}
	if v.Kind != KindString || v.Str != "hello" {
		t.Errorf("got %+v", v)
	}
}

func TestDecodeDynamicUint32(t *testing.T) {
	buf := new(bytes.Buffer)
	buf.WriteByte(0xce)
	binary.Write(buf, binary.BigEndian, uint32(1000000))
	d := NewDecoder(buf.Bytes())
	v, err := d.DecodeDynamic()
	if err != nil {
		t.Fatalf("DecodeDynamic: %v", err)
	}
	if v.Kind != KindUint32 || v.U32 != 1000000 {
		t.Errorf("got %+v", v)
	}
}

func TestDecodeDynamicBoolAsUint8(t *testing.T) {
	d := NewDecoder([]byte{0xc3})
	v, err := d.DecodeDynamic()
	if err != nil {
		t.Fatalf("DecodeDynamic: %v", err)
	}
	if v.Kind != KindUint8 || v.U8 != 1 {
		t.Errorf("true should decode as Uint8(1), got %+v", v)
	}
}

func TestDecodeDynamicMapPreservesEntries(t *testing.T) {
	buf := new(bytes.Buffer)
	buf.Write(packFixmap(2))
	buf.Write(packFixstr("a"))
	buf.WriteByte(0x01)
	buf.Write(packFixstr("b"))
	buf.WriteByte(0x02)

	d := NewDecoder(buf.Bytes())
	v, err := d.DecodeDynamic()
	if err != nil {
		t.Fatalf("DecodeDynamic: %v", err)
	}
	if v.Kind != KindMap || v.Map.Len() != 2 {
		t.Fatalf("got %+v", v)
	}
	got, ok := v.Map.Get(Dynamic{Kind: KindString, Str: "a"})
	if !ok || got.U8 != 1 {
		t.Errorf("key a: got %+v ok=%v", got, ok)
	}
}

func TestDecodeDynamicTruncated(t *testing.T) {
	d := NewDecoder([]byte{0xce, 0x00, 0x01})
	if _, err := d.DecodeDynamic(); err == nil {
		t.Fatal("expected error on truncated uint32")
	}
}

func TestDecodeDynamicUnsupportedTag(t *testing.T) {
	d := NewDecoder([]byte{0xc1})
	if _, err := d.DecodeDynamic(); err == nil {
		t.Fatal("expected error on unsupported tag")
	}
}

func TestDecodeIdRejectsWrongLength(t *testing.T) {
	d := NewDecoder(packBin8([]byte{1, 2, 3}))
	if _, err := DecodeId(d); err == nil {
		t.Fatal("expected error for non-32-byte id")
	}
}

func TestDecodeIdAccepts32Bytes(t *testing.T) {
	d := NewDecoder(packBin8(idBytes(0xaa)))
	id, err := DecodeId(d)
	if err != nil {
		t.Fatalf("DecodeId: %v", err)
	}
	for _, b := range id {
		if b != 0xaa {
			t.Fatalf("got %x", id)
		}
	}
}
