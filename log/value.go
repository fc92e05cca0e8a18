package log

import (
	"fmt"

	"txdb/file"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindString
)

// Value is a log field: either an int32 or a string.
type Value struct {
	kind Kind
	i    int32
	s    string
}

func Int(v int32) Value {
	return Value{kind: KindInt, i: v}
}

func String(s string) Value {
	return Value{kind: KindString, s: s}
}

func (v Value) Kind() Kind {
	return v.kind
}

// Int returns the integer held by v. It panics if v is not an int.
func (v Value) Int() int32 {
	if v.kind != KindInt {
		panic(fmt.Sprintf("log: Int called on %s value", v.kind))
	}
	return v.i
}

// Str returns the string held by v. It panics if v is not a string.
func (v Value) Str() string {
	if v.kind != KindString {
		panic(fmt.Sprintf("log: Str called on %s value", v.kind))
	}
	return v.s
}

// encodedSize is the number of bytes v occupies in a log page.
func (v Value) encodedSize() int32 {
	switch v.kind {
	case KindInt:
		return file.Int32Size
	case KindString:
		return file.EncodedLength(v.s)
	default:
		panic(fmt.Sprintf("log: invalid value kind %d", v.kind))
	}
}

func (v Value) writeTo(p *file.Page, offset int32) error {
	switch v.kind {
	case KindInt:
		return p.WriteInt32At(offset, v.i)
	case KindString:
		return p.WriteStringAt(offset, v.s)
	default:
		panic(fmt.Sprintf("log: invalid value kind %d", v.kind))
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprint(v.i)
	case KindString:
		return v.s
	default:
		return "<invalid>"
	}
}

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}
