package core

import (
	"context"
	"time"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"

	"metachain-devtest/chain"
	"metachain-devtest/core/model"
)

// EthSettleDelay is the pause before returning from a call that submitted Ethereum
// transactions, so the node's Ethereum index catches up with the sealed block.
const EthSettleDelay = 2 * time.Millisecond

type EthereumAPI interface {
	SendRawTransaction(ctx context.Context, raw string) (string, error)
}

type ChainAPI interface {
	SubmitExtrinsic(ctx context.Context, ext *model.Extrinsic) (string, error)
	SignExtrinsic(ctx context.Context, call types.Call, signer model.Signer) (*model.Extrinsic, error)
	CreateBlock(ctx context.Context, createEmpty, finalize bool, parentHash string) (*model.CreatedBlock, error)
	Events(ctx context.Context, blockHash string) ([]*model.BlockEvent, error)
	Block(ctx context.Context, blockHash string) (*model.Block, error)
	FindMetaError(ctx context.Context, blockHash string, m model.ModuleError) (*model.RegistryError, error)
}

// DevContext seals blocks on a manual-seal dev node and reports what happened to each
// submitted transaction.
type DevContext struct {
	eth      EthereumAPI
	chain    ChainAPI
	signer   model.Signer
	metrics  *Metrics
	ethDelay time.Duration
}

type Option func(*DevContext)

// WithSigner replaces the account that signs unsigned extrinsics.
func WithSigner(s model.Signer) Option {
	return func(c *DevContext) { c.signer = s }
}

func WithMetrics(m *Metrics) Option {
	return func(c *DevContext) { c.metrics = m }
}

func WithEthSettleDelay(d time.Duration) Option {
	return func(c *DevContext) { c.ethDelay = d }
}

func NewDevContext(eth EthereumAPI, chainAPI ChainAPI, opts ...Option) *DevContext {
	c := &DevContext{eth: eth, chain: chainAPI, ethDelay: EthSettleDelay}
	for _, opt := range opts {
		opt(c)
	}
	if c.signer == nil {
		c.signer = chain.Alith()
	}
	return c
}

func (c *DevContext) Signer() model.Signer {
	return c.signer
}

// CreateBlock submits txs in order, seals one block and returns one outcome per tx in the
// same order. Result is nil when txs is empty.
func (c *DevContext) CreateBlock(ctx context.Context, txs []model.PendingTransaction, opts model.BlockCreation) (*model.BlockCreationResponse[[]*model.ExtrinsicOutcome], error) {
	block, outcomes, err := c.createBlock(ctx, txs, opts)
	if err != nil {
		return nil, err
	}
	return &model.BlockCreationResponse[[]*model.ExtrinsicOutcome]{Block: block, Result: outcomes}, nil
}

// CreateBlockWith is CreateBlock for a single transaction; Result is the bare outcome.
func (c *DevContext) CreateBlockWith(ctx context.Context, tx model.PendingTransaction, opts model.BlockCreation) (*model.BlockCreationResponse[*model.ExtrinsicOutcome], error) {
	block, outcomes, err := c.createBlock(ctx, []model.PendingTransaction{tx}, opts)
	if err != nil {
		return nil, err
	}
	return &model.BlockCreationResponse[*model.ExtrinsicOutcome]{Block: block, Result: outcomes[0]}, nil
}

// AdvanceBlock seals a block without submitting anything.
func (c *DevContext) AdvanceBlock(ctx context.Context, opts model.BlockCreation) (*model.BlockCreationResponse[[]*model.ExtrinsicOutcome], error) {
	return c.CreateBlock(ctx, nil, opts)
}

func (c *DevContext) createBlock(ctx context.Context, txs []model.PendingTransaction, opts model.BlockCreation) (model.SealedBlock, []*model.ExtrinsicOutcome, error) {
	records, err := c.submit(ctx, txs)
	if err != nil {
		return model.SealedBlock{}, nil, err
	}
	return c.correlate(ctx, records, opts)
}
