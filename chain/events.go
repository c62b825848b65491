package chain

import (
	"bytes"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/pkg/errors"

	"metachain-devtest/core/model"
)

var ErrUnknownError = errors.New("unknown module error")

// DecodeEvents decodes the SCALE encoded System.Events storage value.
func (r *Registry) DecodeEvents(raw []byte) ([]*model.BlockEvent, error) {
	storage := types.StorageDataRaw(raw)
	parsed, err := r.parser.ParseEvents(r.events, &storage)
	if err != nil {
		return nil, errors.Wrap(err, "System.Events")
	}
	events := make([]*model.BlockEvent, 0, len(parsed))
	for i, ev := range parsed {
		phase, err := phaseOf(ev.Phase)
		if err != nil {
			return nil, errors.WithMessagef(err, "event %d", i)
		}
		section, method := splitName(ev.Name)
		topics := make([]string, 0, len(ev.Topics))
		for _, topic := range ev.Topics {
			topics = append(topics, model.HexHash(topic[:]))
		}
		events = append(events, &model.BlockEvent{
			Phase:       phase,
			Section:     section,
			Method:      method,
			PalletIndex: ev.EventID[0],
			EventIndex:  ev.EventID[1],
			Data:        toComposite(ev.Fields),
			Topics:      topics,
		})
	}
	return events, nil
}

func phaseOf(p *types.Phase) (model.Phase, error) {
	switch {
	case p == nil:
		return model.Phase{}, errors.New("missing phase")
	case p.IsApplyExtrinsic:
		return model.ApplyExtrinsic(p.AsApplyExtrinsic), nil
	case p.IsFinalization:
		return model.Phase{Kind: model.PhaseFinalization}, nil
	case p.IsInitialization:
		return model.Phase{Kind: model.PhaseInitialization}, nil
	}
	return model.Phase{}, errors.New("unknown phase")
}

// splitName turns "System.ExtrinsicFailed" into ("system", "ExtrinsicFailed").
func splitName(name string) (string, string) {
	pallet, item, ok := strings.Cut(name, ".")
	if !ok {
		return "", name
	}
	return model.LowerCamel(pallet), item
}

// FindMetaError resolves a module error to the pallet error it names.
func (r *Registry) FindMetaError(m model.ModuleError) (*model.RegistryError, error) {
	var index [4]types.U8
	for i, b := range m.Error {
		index[i] = types.U8(b)
	}
	found, err := r.meta.FindError(types.U8(m.Index), index)
	if err != nil {
		return nil, errors.Wrap(ErrUnknownError, err.Error())
	}
	p, err := r.pallet(m.Index)
	if err != nil {
		return nil, err
	}
	resolved := &model.RegistryError{
		Name:       found.Name,
		Section:    model.LowerCamel(string(p.Name)),
		Method:     found.Name,
		Index:      m.Index,
		ErrorIndex: m.Error[0],
	}
	if found.Value != "" {
		resolved.Docs = []string{found.Value}
	}
	return resolved, nil
}

// describeExtrinsic fills in section, method and args from the extrinsic's call.
func (r *Registry) describeExtrinsic(ref *model.ExtrinsicRef) error {
	ext := &model.Extrinsic{Encoded: ref.Raw}
	body, err := ext.Body()
	if err != nil {
		return err
	}
	decoder := scale.NewDecoder(bytes.NewReader(body[1:]))
	if body[0]&0x80 != 0 {
		if r.signed == nil {
			return errors.New("metadata does not describe signed extrinsics")
		}
		if _, err := r.signed.Decode(decoder); err != nil {
			return errors.WithMessage(err, "extrinsic signature")
		}
	}

	var index types.CallIndex
	if err := decoder.Decode(&index); err != nil {
		return errors.WithMessage(err, "call index")
	}
	call, ok := r.calls[index]
	if !ok {
		return errors.Wrapf(ErrUnknownCall, "%d.%d", index.SectionIndex, index.MethodIndex)
	}
	args, err := call.Decode(decoder)
	if err != nil {
		return errors.WithMessage(err, call.Name)
	}
	ref.Section, ref.Method = splitName(call.Name)
	ref.Args = toComposite(args)
	return nil
}
