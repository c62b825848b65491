package chain

import (
	"github.com/centrifuge/go-substrate-rpc-client/v4/registry"
	"github.com/centrifuge/go-substrate-rpc-client/v4/registry/parser"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/pkg/errors"
)

var (
	ErrUnsupportedMetadata = errors.New("unsupported metadata version")
	ErrUnknownType         = errors.New("unknown type id")
	ErrUnknownPallet       = errors.New("unknown pallet")
	ErrUnknownCall         = errors.New("unknown call")
)

// Registry holds the gsrpc decoders of one runtime version.
type Registry struct {
	meta   *types.Metadata
	events registry.EventRegistry
	calls  registry.CallRegistry
	// signed decodes the address, signature and extra in front of a signed extrinsic's
	// call; nil when the metadata does not describe them.
	signed *registry.TypeDecoder
	parser parser.EventParser
}

// NewRegistry builds the event and call registries of a v14 metadata.
func NewRegistry(meta *types.Metadata) (*Registry, error) {
	if meta.Version != 14 {
		return nil, errors.Wrapf(ErrUnsupportedMetadata, "v%d", meta.Version)
	}
	m := &meta.AsMetadataV14
	if m.EfficientLookup == nil {
		m.EfficientLookup = make(map[int64]*types.Si1Type, len(m.Lookup.Types))
		for i := range m.Lookup.Types {
			m.EfficientLookup[m.Lookup.Types[i].ID.Int64()] = &m.Lookup.Types[i].Type
		}
	}

	factory := registry.NewFactory()
	events, err := factory.CreateEventRegistry(meta)
	if err != nil {
		return nil, errors.Wrap(err, "event registry")
	}
	calls, err := factory.CreateCallRegistry(meta)
	if err != nil {
		return nil, errors.Wrap(err, "call registry")
	}
	r := &Registry{meta: meta, events: events, calls: calls, parser: parser.NewEventParser()}
	if r.signed, err = r.signedPrefixDecoder(); err != nil {
		return nil, errors.Wrap(err, "signed extrinsic registry")
	}

	namer := newVariantNamer(m.EfficientLookup)
	for _, d := range events {
		namer.typeDecoder(d)
	}
	for _, d := range calls {
		namer.typeDecoder(d)
	}
	if r.signed != nil {
		namer.typeDecoder(r.signed)
	}
	return r, nil
}

// signedPrefixDecoder asks the gsrpc factory for a decoder of the Address, Signature and
// Extra parameters of the runtime's extrinsic type by presenting them as the single call of a
// synthetic pallet.
func (r *Registry) signedPrefixDecoder() (*registry.TypeDecoder, error) {
	var fields []types.Si1Field
	for _, name := range []string{"Address", "Signature", "Extra"} {
		id, ok := r.extrinsicParam(name)
		if !ok {
			return nil, nil
		}
		fields = append(fields, types.Si1Field{HasName: true, Name: types.Text(name), Type: types.NewSi1LookupTypeIDFromUInt(uint64(id))})
	}

	src := r.meta.AsMetadataV14.EfficientLookup
	lookup := make(map[int64]*types.Si1Type, len(src)+1)
	var next int64
	for id, t := range src {
		lookup[id] = t
		if id >= next {
			next = id + 1
		}
	}
	lookup[next] = &types.Si1Type{Def: types.Si1TypeDef{
		IsVariant: true,
		Variant:   types.Si1TypeDefVariant{Variants: []types.Si1Variant{{Name: "signed", Fields: fields}}},
	}}
	synthetic := &types.Metadata{Version: 14, AsMetadataV14: types.MetadataV14{
		Pallets: []types.PalletMetadataV14{{
			Name:     "Extrinsic",
			HasCalls: true,
			Calls:    types.FunctionMetadataV14{Type: types.NewSi1LookupTypeIDFromUInt(uint64(next))},
		}},
		EfficientLookup: lookup,
	}}
	calls, err := registry.NewFactory().CreateCallRegistry(synthetic)
	if err != nil {
		return nil, err
	}
	return calls[types.CallIndex{}], nil
}

func (r *Registry) lookup(id int64) (*types.Si1Type, error) {
	t, ok := r.meta.AsMetadataV14.EfficientLookup[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownType, "type %d", id)
	}
	return t, nil
}

func (r *Registry) pallet(index uint8) (*types.PalletMetadataV14, error) {
	pallets := r.meta.AsMetadataV14.Pallets
	for i := range pallets {
		if uint8(pallets[i].Index) == index {
			return &pallets[i], nil
		}
	}
	return nil, errors.Wrapf(ErrUnknownPallet, "index %d", index)
}

func (r *Registry) extrinsicParam(name string) (int64, bool) {
	ext, ok := r.meta.AsMetadataV14.EfficientLookup[r.meta.AsMetadataV14.Extrinsic.Type.Int64()]
	if !ok {
		return 0, false
	}
	for _, p := range ext.Params {
		if string(p.Name) == name && p.HasType {
			return p.Type.Int64(), true
		}
	}
	return 0, false
}

// extrinsicParamType returns nil when the extrinsic type does not carry the parameter.
func (r *Registry) extrinsicParamType(name string) (*types.Si1Type, error) {
	id, ok := r.extrinsicParam(name)
	if !ok {
		return nil, nil
	}
	return r.lookup(id)
}

// isUnit reports whether values of the type encode to zero bytes.
func (r *Registry) isUnit(id int64) bool {
	t, ok := r.meta.AsMetadataV14.EfficientLookup[id]
	if !ok {
		return false
	}
	d := t.Def
	switch {
	case d.IsTuple:
		for _, item := range d.Tuple {
			if !r.isUnit(item.Int64()) {
				return false
			}
		}
		return true
	case d.IsComposite:
		for _, f := range d.Composite.Fields {
			if !r.isUnit(f.Type.Int64()) {
				return false
			}
		}
		return true
	case d.IsArray:
		return d.Array.Len == 0 || r.isUnit(d.Array.Type.Int64())
	}
	return false
}

func variantByName(t *types.Si1Type, name string) (*types.Si1Variant, bool) {
	if !t.Def.IsVariant {
		return nil, false
	}
	for i := range t.Def.Variant.Variants {
		if string(t.Def.Variant.Variants[i].Name) == name {
			return &t.Def.Variant.Variants[i], true
		}
	}
	return nil, false
}

// Metadata returns the decoded metadata the registry was built from.
func (r *Registry) Metadata() *types.Metadata {
	return r.meta
}

// NewCall builds a call such as "System.remark" from metadata.
func (r *Registry) NewCall(name string, args ...interface{}) (types.Call, error) {
	return types.NewCall(r.meta, name, args...)
}
