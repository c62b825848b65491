package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/registry"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/pkg/errors"

	"metachain-devtest/core/model"
)

// variantNamer replaces the gsrpc variant decoders of a registry, which return a bare index
// byte or the unnamed inner fields, with decoders that keep the variant name.
type variantNamer struct {
	lookup map[int64]*types.Si1Type
	seen   map[registry.FieldDecoder]registry.FieldDecoder
}

func newVariantNamer(lookup map[int64]*types.Si1Type) *variantNamer {
	return &variantNamer{lookup: lookup, seen: make(map[registry.FieldDecoder]registry.FieldDecoder)}
}

func (n *variantNamer) typeDecoder(d *registry.TypeDecoder) {
	n.fields(d.Fields)
}

func (n *variantNamer) fields(fields []*registry.Field) {
	for _, f := range fields {
		f.FieldDecoder = n.wrap(f.FieldDecoder, f.LookupIndex)
	}
}

// wrap walks dec, the decoder of type id. Decoders are shared between fields of the same
// type, so each one is visited once.
func (n *variantNamer) wrap(dec registry.FieldDecoder, id int64) registry.FieldDecoder {
	if dec == nil {
		return nil
	}
	if done, ok := n.seen[dec]; ok {
		return done
	}
	n.seen[dec] = dec
	t := n.lookup[id]

	switch d := dec.(type) {
	case *registry.VariantDecoder:
		if t == nil || !t.Def.IsVariant {
			return dec
		}
		named := &variantDecoder{variants: make(map[byte]namedVariant, len(d.FieldDecoderMap))}
		n.seen[dec] = named
		for _, v := range t.Def.Variant.Variants {
			inner := d.FieldDecoderMap[byte(v.Index)]
			if c, ok := inner.(*registry.CompositeDecoder); ok {
				n.fields(c.Fields)
			}
			named.variants[byte(v.Index)] = namedVariant{name: string(v.Name), decoder: inner}
		}
		return named
	case *registry.CompositeDecoder:
		n.fields(d.Fields)
	case *registry.ArrayDecoder:
		if t != nil && t.Def.IsArray {
			d.ItemDecoder = n.wrap(d.ItemDecoder, t.Def.Array.Type.Int64())
		}
	case *registry.SliceDecoder:
		if t != nil && t.Def.IsSequence {
			d.ItemDecoder = n.wrap(d.ItemDecoder, t.Def.Sequence.Type.Int64())
		}
	case *registry.RecursiveDecoder:
		d.FieldDecoder = n.wrap(d.FieldDecoder, id)
	}
	return dec
}

type namedVariant struct {
	name    string
	decoder registry.FieldDecoder
}

type variantDecoder struct {
	variants map[byte]namedVariant
}

func (v *variantDecoder) Decode(decoder *scale.Decoder) (any, error) {
	index, err := decoder.ReadOneByte()
	if err != nil {
		return nil, errors.WithMessage(err, "variant index")
	}
	nv, ok := v.variants[index]
	if !ok {
		return nil, fmt.Errorf("unknown variant %d", index)
	}
	out := &model.Variant{Name: nv.name, Index: index}
	if nv.decoder == nil {
		return out, nil
	}
	if _, ok := nv.decoder.(*registry.NoopDecoder); ok {
		return out, nil
	}
	value, err := nv.decoder.Decode(decoder)
	if err != nil {
		return nil, errors.WithMessage(err, nv.name)
	}
	if fields, ok := value.(registry.DecodedFields); ok {
		out.Fields = toComposite(fields)
	} else {
		out.Fields = model.Composite{{Value: toValue(value)}}
	}
	return out, nil
}

func toComposite(fields registry.DecodedFields) model.Composite {
	out := make(model.Composite, 0, len(fields))
	for _, f := range fields {
		out = append(out, model.Field{Name: fieldName(f.Name), Value: toValue(f.Value)})
	}
	return out
}

// fieldName trims the "<type path>." prefix gsrpc puts on field names. Unnamed fields come
// back as lookup_index_N or tuple_item_N and get no name.
func fieldName(full string) string {
	if i := strings.LastIndex(full, "."); i >= 0 {
		full = full[i+1:]
	}
	if strings.HasPrefix(full, "lookup_index_") || strings.HasPrefix(full, "tuple_item_") {
		return ""
	}
	return full
}

// toValue maps gsrpc decoded values onto plain Go values: unsigned integers to uint64, signed
// to int64, 128 and 256 bit integers to *big.Int and u8 sequences to []byte.
func toValue(v any) any {
	switch t := v.(type) {
	case registry.DecodedFields:
		return toComposite(t)
	case []any:
		return toList(t)
	case types.U8:
		return uint64(t)
	case types.U16:
		return uint64(t)
	case types.U32:
		return uint64(t)
	case types.U64:
		return uint64(t)
	case types.I8:
		return int64(t)
	case types.I16:
		return int64(t)
	case types.I32:
		return int64(t)
	case types.I64:
		return int64(t)
	case types.U128:
		return bigOf(t.Int)
	case types.U256:
		return bigOf(t.Int)
	case types.I128:
		return bigOf(t.Int)
	case types.I256:
		return bigOf(t.Int)
	case types.UCompact:
		n := big.Int(t)
		if n.IsUint64() {
			return n.Uint64()
		}
		return &n
	case map[string]string:
		for _, bits := range t {
			return bits
		}
		return ""
	}
	return v
}

func toList(items []any) any {
	if len(items) > 0 {
		if b, ok := u8Bytes(items); ok {
			return b
		}
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, toValue(item))
	}
	return out
}

func u8Bytes(items []any) ([]byte, bool) {
	b := make([]byte, 0, len(items))
	for _, item := range items {
		u, ok := item.(types.U8)
		if !ok {
			return nil, false
		}
		b = append(b, byte(u))
	}
	return b, true
}

func bigOf(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(n)
}
