package core

import (
	"context"
	"errors"
	"sync"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"

	"metachain-devtest/core/model"
)

type fakeEth struct {
	hashes  []string
	sent    []string
	failAt  int
	sendErr error
}

func (e *fakeEth) SendRawTransaction(ctx context.Context, raw string) (string, error) {
	if e.sendErr != nil && len(e.sent) == e.failAt {
		return "", e.sendErr
	}
	e.sent = append(e.sent, raw)
	return e.hashes[len(e.sent)-1], nil
}

type createCall struct {
	createEmpty bool
	finalize    bool
	parentHash  string
}

type fakeChain struct {
	mu sync.Mutex

	submitted []*model.Extrinsic
	submitErr error
	signedBy  []model.Signer

	creates   []createCall
	createErr error

	events      []*model.BlockEvent
	eventsErr   error
	eventsCalls int
	block       *model.Block
	blockCalls  int

	moduleErrors map[uint8]*model.RegistryError
	metaLookups  []string
}

func (c *fakeChain) SubmitExtrinsic(ctx context.Context, ext *model.Extrinsic) (string, error) {
	if c.submitErr != nil {
		return "", c.submitErr
	}
	c.submitted = append(c.submitted, ext)
	return ext.Hash(), nil
}

func (c *fakeChain) SignExtrinsic(ctx context.Context, call types.Call, signer model.Signer) (*model.Extrinsic, error) {
	c.signedBy = append(c.signedBy, signer)
	body := []byte{0x84}
	body = append(body, signer.Address().Bytes()...)
	body = append(body, call.CallIndex.SectionIndex, call.CallIndex.MethodIndex)
	body = append(body, call.Args...)
	return model.WrapExtrinsicBody(body)
}

func (c *fakeChain) CreateBlock(ctx context.Context, createEmpty, finalize bool, parentHash string) (*model.CreatedBlock, error) {
	c.creates = append(c.creates, createCall{createEmpty, finalize, parentHash})
	if c.createErr != nil {
		return nil, c.createErr
	}
	return &model.CreatedBlock{Hash: "0xb10c"}, nil
}

func (c *fakeChain) Events(ctx context.Context, blockHash string) ([]*model.BlockEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventsCalls++
	return c.events, c.eventsErr
}

func (c *fakeChain) Block(ctx context.Context, blockHash string) (*model.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blockCalls++
	return c.block, nil
}

func (c *fakeChain) FindMetaError(ctx context.Context, blockHash string, m model.ModuleError) (*model.RegistryError, error) {
	c.metaLookups = append(c.metaLookups, blockHash)
	if e, ok := c.moduleErrors[m.Index]; ok && e.ErrorIndex == m.Error[0] {
		return e, nil
	}
	return nil, errors.New("unknown module error")
}

func blockOf(hashes ...string) *model.Block {
	b := &model.Block{Hash: "0xb10c", Number: 1}
	for i, h := range hashes {
		b.Extrinsics = append(b.Extrinsics, &model.ExtrinsicRef{Index: i, Hash: h})
	}
	return b
}

func event(index uint32, section, method string, data ...model.Field) *model.BlockEvent {
	return &model.BlockEvent{Phase: model.ApplyExtrinsic(index), Section: section, Method: method, Data: data}
}

func success(index uint32) *model.BlockEvent {
	return event(index, "system", "ExtrinsicSuccess")
}

func failed(index uint32, dispatchErr *model.Variant) *model.BlockEvent {
	return event(index, "system", "ExtrinsicFailed", model.Field{Name: "dispatch_error", Value: dispatchErr})
}

func moduleDispatchError(index uint8, errIndex uint8) *model.Variant {
	return &model.Variant{Name: "Module", Index: 3, Fields: model.Composite{{Value: model.Composite{
		{Name: "index", Value: uint64(index)},
		{Name: "error", Value: []byte{errIndex, 0, 0, 0}},
	}}}}
}

func executed(index uint32, txHash []byte, reason *model.Variant) *model.BlockEvent {
	return event(index, "ethereum", "Executed",
		model.Field{Name: "from", Value: model.Composite{{Value: make([]byte, 20)}}},
		model.Field{Name: "to", Value: model.Composite{{Value: make([]byte, 20)}}},
		model.Field{Name: "transaction_hash", Value: model.Composite{{Value: txHash}}},
		model.Field{Name: "exit_reason", Value: reason},
	)
}

func exit(outer, inner string) *model.Variant {
	return &model.Variant{Name: outer, Fields: model.Composite{{Value: &model.Variant{Name: inner}}}}
}

func hash32(b byte) []byte {
	h := make([]byte, 32)
	for i := range h {
		h[i] = b
	}
	return h
}

func extrinsic(t interface{ Fatalf(string, ...any) }, payload byte) *model.Extrinsic {
	ext, err := model.WrapExtrinsicBody([]byte{0x84, payload, payload})
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	return ext
}
