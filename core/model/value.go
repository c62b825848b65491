package model

import (
	"bytes"
	"encoding/hex"
	"strings"
)

// Field is one decoded member of a composite or variant. Name is empty for tuple-like types.
type Field struct {
	Name  string
	Value any
}

// Composite is an ordered list of decoded fields.
type Composite []Field

// Variant is a decoded enum value.
type Variant struct {
	Name   string
	Index  uint8
	Fields Composite
}

func (c Composite) Get(name string) (any, bool) {
	for _, f := range c {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

func (c Composite) At(i int) (any, bool) {
	if i < 0 || i >= len(c) {
		return nil, false
	}
	return c[i].Value, true
}

// Bytes unwraps newtype composites (H256, AccountId20, ...) down to their byte payload.
func Bytes(v any) ([]byte, bool) {
	for {
		switch t := v.(type) {
		case []byte:
			return t, true
		case Composite:
			if len(t) != 1 {
				return nil, false
			}
			v = t[0].Value
		default:
			return nil, false
		}
	}
}

// AsVariant unwraps newtype composites down to a variant value.
func AsVariant(v any) (*Variant, bool) {
	for {
		switch t := v.(type) {
		case *Variant:
			return t, true
		case Variant:
			return &t, true
		case Composite:
			if len(t) != 1 {
				return nil, false
			}
			v = t[0].Value
		default:
			return nil, false
		}
	}
}

func equalHex(a, b string) bool {
	return strings.EqualFold(strings.TrimPrefix(a, "0x"), strings.TrimPrefix(b, "0x"))
}

// EqualHash compares a hex hash with raw hash bytes.
func EqualHash(hexHash string, raw []byte) bool {
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(hexHash), "0x"))
	if err != nil {
		return false
	}
	return bytes.Equal(decoded, raw)
}
