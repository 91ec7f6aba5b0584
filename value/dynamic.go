package value

import (
	"fmt"
	"math/big"
)

// Kind identifies which variant of Dynamic is populated.
type Kind uint8

const (
	KindString Kind = iota
	KindBytes
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindUint128
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindInt128
	KindSequence
	KindMap
)

// Dynamic is the schema-free fallback value: a tagged union covering
// every shape the self-describing value stream can carry, used for
// fields whose shape varies across repositories (hint segments,
// archive chunk tuples beyond the id, TAM payload fields).
//
// Booleans are not a distinct variant: the wire format's true/false
// scalars decode as Uint8(1)/Uint8(0), since the source's dynamic
// value type has no boolean case of its own.
type Dynamic struct {
	Kind Kind

	Str   string
	Bytes []byte

	U8   uint8
	U16  uint16
	U32  uint32
	U64  uint64
	U128 *big.Int

	I8   int8
	I16  int16
	I32  int32
	I64  int64
	I128 *big.Int

	Seq []Dynamic
	Map *DynamicMap
}

func (d Dynamic) String() string {
	switch d.Kind {
	case KindString:
		return fmt.Sprintf("%q", d.Str)
	case KindBytes:
		return fmt.Sprintf("%x", d.Bytes)
	case KindUint8:
		return fmt.Sprint(d.U8)
	case KindUint16:
		return fmt.Sprint(d.U16)
	case KindUint32:
		return fmt.Sprint(d.U32)
	case KindUint64:
		return fmt.Sprint(d.U64)
	case KindUint128:
		return d.U128.String()
	case KindInt8:
		return fmt.Sprint(d.I8)
	case KindInt16:
		return fmt.Sprint(d.I16)
	case KindInt32:
		return fmt.Sprint(d.I32)
	case KindInt64:
		return fmt.Sprint(d.I64)
	case KindInt128:
		return d.I128.String()
	case KindSequence:
		return fmt.Sprintf("%v", d.Seq)
	case KindMap:
		return fmt.Sprintf("map[%d]", d.Map.Len())
	default:
		return "<invalid>"
	}
}

// hashKey produces a canonical string encoding a Dynamic's identity
// for equality/hashing purposes: int variants hash by numeric
// width+value, bytes hash bytewise, strings hash bytewise of their
// UTF-8 bytes, sequences hash by their elements' length-prefixed keys
// in order.
func (d Dynamic) hashKey() string {
	switch d.Kind {
	case KindString:
		return "s:" + d.Str
	case KindBytes:
		return "b:" + string(d.Bytes)
	case KindUint8:
		return fmt.Sprintf("u8:%d", d.U8)
	case KindUint16:
		return fmt.Sprintf("u16:%d", d.U16)
	case KindUint32:
		return fmt.Sprintf("u32:%d", d.U32)
	case KindUint64:
		return fmt.Sprintf("u64:%d", d.U64)
	case KindUint128:
		return "u128:" + d.U128.String()
	case KindInt8:
		return fmt.Sprintf("i8:%d", d.I8)
	case KindInt16:
		return fmt.Sprintf("i16:%d", d.I16)
	case KindInt32:
		return fmt.Sprintf("i32:%d", d.I32)
	case KindInt64:
		return fmt.Sprintf("i64:%d", d.I64)
	case KindInt128:
		return "i128:" + d.I128.String()
	case KindSequence:
		s := "seq:["
		for _, e := range d.Seq {
			ek := e.hashKey()
			s += fmt.Sprintf("%d:%s,", len(ek), ek)
		}
		return s + "]"
	case KindMap:
		// maps are not valid map keys in the source format either;
		// this only needs to support equality, not ordering.
		return fmt.Sprintf("map:%p", d.Map)
	default:
		return "invalid"
	}
}

// DynamicMap is a mapping<DynamicValue, DynamicValue> keyed by
// Dynamic.hashKey, since Go's native map requires comparable keys and
// Dynamic's Bytes/Seq variants are not comparable.
type DynamicMap struct {
	order []string
	keys  map[string]Dynamic
	vals  map[string]Dynamic
}

// NewDynamicMap returns an empty DynamicMap.
func NewDynamicMap() *DynamicMap {
	return &DynamicMap{keys: make(map[string]Dynamic), vals: make(map[string]Dynamic)}
}

// Set inserts or overwrites the value for k.
func (m *DynamicMap) Set(k, v Dynamic) {
	ck := k.hashKey()
	if _, exists := m.keys[ck]; !exists {
		m.order = append(m.order, ck)
	}
	m.keys[ck] = k
	m.vals[ck] = v
}

// Get returns the value for k, if present.
func (m *DynamicMap) Get(k Dynamic) (Dynamic, bool) {
	v, ok := m.vals[k.hashKey()]
	return v, ok
}

// Len reports the number of entries.
func (m *DynamicMap) Len() int { return len(m.vals) }

// Range visits every entry in insertion order. The on-wire format does
// not define a map iteration order; insertion order here is simply a
// deterministic, reproducible choice — callers must not rely on it
// matching any particular archive's wire order.
func (m *DynamicMap) Range(f func(k, v Dynamic) bool) {
	for _, ck := range m.order {
		if !f(m.keys[ck], m.vals[ck]) {
			return
		}
	}
}
