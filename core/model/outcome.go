package model

import (
	"fmt"
	"strings"
)

// ModuleError is a runtime defined error: pallet index plus encoded error (first byte is the
// error variant index).
type ModuleError struct {
	Index uint8
	Error [4]byte
}

// DispatchError is the payload of a system.ExtrinsicFailed event.
type DispatchError struct {
	Variant *Variant
	Module  *ModuleError
}

func (d *DispatchError) IsModule() bool {
	return d.Module != nil
}

// String renders the error the way polkadot.js stringifies a DispatchError.
func (d *DispatchError) String() string {
	if d.Module != nil {
		return fmt.Sprintf(`{"module":{"index":%d,"error":"0x%x"}}`, d.Module.Index, d.Module.Error[:])
	}
	if d.Variant == nil {
		return "Unknown"
	}
	return variantString(d.Variant)
}

func variantString(v *Variant) string {
	if len(v.Fields) == 0 {
		return v.Name
	}
	var inner string
	if len(v.Fields) == 1 {
		if nested, ok := AsVariant(v.Fields[0].Value); ok {
			inner = fmt.Sprintf("%q", variantString(nested))
		}
	}
	if inner == "" {
		inner = fmt.Sprintf(`"%v"`, v.Fields)
	}
	return fmt.Sprintf(`{"%s":%s}`, lowerFirst(v.Name), inner)
}

// ParseDispatchError interprets a decoded DispatchError value.
func ParseDispatchError(v any) (*DispatchError, bool) {
	variant, ok := AsVariant(v)
	if !ok {
		return nil, false
	}
	d := &DispatchError{Variant: variant}
	if variant.Name == "Module" {
		d.Module = parseModuleError(variant.Fields)
	}
	return d, true
}

func parseModuleError(fields Composite) *ModuleError {
	if len(fields) == 1 {
		if inner, ok := fields[0].Value.(Composite); ok {
			fields = inner
		}
	}
	index, ok := fields.Get("index")
	if !ok {
		return nil
	}
	errValue, ok := fields.Get("error")
	if !ok {
		return nil
	}
	m := &ModuleError{}
	switch idx := index.(type) {
	case uint64:
		m.Index = uint8(idx)
	default:
		return nil
	}
	switch e := errValue.(type) {
	case uint64:
		m.Error[0] = uint8(e)
	default:
		b, ok := Bytes(e)
		if !ok {
			return nil
		}
		copy(m.Error[:], b)
	}
	return m
}

// RegistryError describes a module error resolved through chain metadata. Only Name is
// guaranteed to be set.
type RegistryError struct {
	Name       string   `json:"name" yaml:"name"`
	Section    string   `json:"section,omitempty" yaml:"section,omitempty"`
	Method     string   `json:"method,omitempty" yaml:"method,omitempty"`
	Docs       []string `json:"docs,omitempty" yaml:"docs,omitempty"`
	Index      uint8    `json:"index,omitempty" yaml:"index,omitempty"`
	ErrorIndex uint8    `json:"errorIndex,omitempty" yaml:"errorIndex,omitempty"`
}

func (e *RegistryError) Error() string {
	if e.Section == "" {
		return e.Name
	}
	return e.Section + "." + e.Name
}

type ExtrinsicOutcome struct {
	Extrinsic  *ExtrinsicRef
	Events     []*BlockEvent
	Error      *RegistryError
	Successful bool
	Hash       string
}

// BlockCreation carries the optional sealing parameters. Finalize defaults to true.
type BlockCreation struct {
	ParentHash string
	Finalize   *bool
}

func (o BlockCreation) ShouldFinalize() bool {
	return o.Finalize == nil || *o.Finalize
}

func WithFinalize(finalize bool) BlockCreation {
	return BlockCreation{Finalize: &finalize}
}

// BlockCreationResponse mirrors the shape of the input: a list of outcomes for a list of
// transactions, a single outcome for a single transaction.
type BlockCreationResponse[R any] struct {
	Block  SealedBlock
	Result R
}

// LowerCamel converts a pallet name to the section name used for events and errors
// ("System" -> "system", "TransactionPayment" -> "transactionPayment", "EVM" -> "evm").
func LowerCamel(name string) string {
	if name == "" {
		return name
	}
	if strings.ToUpper(name) == name {
		return strings.ToLower(name)
	}
	return lowerFirst(name)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
