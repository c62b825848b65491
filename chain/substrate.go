package chain

import (
	"context"
	"sync"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"metachain-devtest/core/model"
)

// systemEventsKey is twox128("System") ++ twox128("Events").
const systemEventsKey = "0x26aa394eea5630e07c48ae0c9558cef780d41e5e16056765bc8461851072c9d7"

const registryCacheSize = 8

var ErrBlockNotFound = errors.New("block not found")

type RuntimeVersion struct {
	SpecName           string `json:"specName"`
	ImplName           string `json:"implName"`
	SpecVersion        uint32 `json:"specVersion"`
	ImplVersion        uint32 `json:"implVersion"`
	TransactionVersion uint32 `json:"transactionVersion"`
}

// SubstrateClient talks to the node's native JSON-RPC interface.
type SubstrateClient struct {
	client     RPCClient
	registries *lru.Cache

	mu      sync.Mutex
	genesis *common.Hash
}

func NewSubstrateClient(ctx context.Context, url string) (*SubstrateClient, error) {
	client, err := dialRPC(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial substrate rpc %s", url)
	}
	return NewSubstrateClientWithRPC(client), nil
}

func NewSubstrateClientWithRPC(client RPCClient) *SubstrateClient {
	cache, err := lru.New(registryCacheSize)
	if err != nil {
		panic(err)
	}
	return &SubstrateClient{client: client, registries: cache}
}

func (sc *SubstrateClient) Close() {
	sc.client.Close()
}

// CreateBlock calls engine_createBlock. parentHash is omitted from the call when empty.
func (sc *SubstrateClient) CreateBlock(ctx context.Context, createEmpty, finalize bool, parentHash string) (*model.CreatedBlock, error) {
	args := []interface{}{createEmpty, finalize}
	if parentHash != "" {
		args = append(args, parentHash)
	}
	var created model.CreatedBlock
	if err := sc.client.CallContext(ctx, &created, "engine_createBlock", args...); err != nil {
		return nil, err
	}
	return &created, nil
}

func (sc *SubstrateClient) RuntimeVersion(ctx context.Context, blockHash string) (*RuntimeVersion, error) {
	var rv RuntimeVersion
	if err := sc.client.CallContext(ctx, &rv, "state_getRuntimeVersion", atBlock(blockHash)...); err != nil {
		return nil, errors.Wrap(err, "state_getRuntimeVersion")
	}
	return &rv, nil
}

// Registry returns the type registry of the runtime active at blockHash (best block when
// empty). Registries are cached per spec version.
func (sc *SubstrateClient) Registry(ctx context.Context, blockHash string) (*Registry, error) {
	rv, err := sc.RuntimeVersion(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	if cached, ok := sc.registries.Get(rv.SpecVersion); ok {
		return cached.(*Registry), nil
	}

	var metaHex string
	if err := sc.client.CallContext(ctx, &metaHex, "state_getMetadata", atBlock(blockHash)...); err != nil {
		return nil, errors.Wrap(err, "state_getMetadata")
	}
	var meta types.Metadata
	if err := codec.DecodeFromHex(metaHex, &meta); err != nil {
		return nil, errors.Wrap(err, "decode metadata")
	}
	reg, err := NewRegistry(&meta)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("loaded metadata for %s v%d", rv.SpecName, rv.SpecVersion)
	sc.registries.Add(rv.SpecVersion, reg)
	return reg, nil
}

// SetRegistry pins the registry used for a spec version.
func (sc *SubstrateClient) SetRegistry(specVersion uint32, reg *Registry) {
	sc.registries.Add(specVersion, reg)
}

func (sc *SubstrateClient) Events(ctx context.Context, blockHash string) ([]*model.BlockEvent, error) {
	reg, err := sc.Registry(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	key := systemEventsKey
	if meta := reg.Metadata(); meta != nil {
		if k, err := types.CreateStorageKey(meta, "System", "Events"); err == nil {
			key = hexutil.Encode(k)
		}
	}
	var raw *string
	if err := sc.client.CallContext(ctx, &raw, "state_getStorage", key, blockHash); err != nil {
		return nil, errors.Wrap(err, "state_getStorage System.Events")
	}
	if raw == nil {
		return []*model.BlockEvent{}, nil
	}
	data, err := hexutil.Decode(*raw)
	if err != nil {
		return nil, errors.Wrap(err, "events storage")
	}
	return reg.DecodeEvents(data)
}

type rpcSignedBlock struct {
	Block struct {
		Header struct {
			ParentHash string `json:"parentHash"`
			Number     string `json:"number"`
		} `json:"header"`
		Extrinsics []string `json:"extrinsics"`
	} `json:"block"`
}

// Block fetches a block body. Extrinsics whose call cannot be decoded are still returned,
// only without section and method.
func (sc *SubstrateClient) Block(ctx context.Context, blockHash string) (*model.Block, error) {
	var signed *rpcSignedBlock
	if err := sc.client.CallContext(ctx, &signed, "chain_getBlock", blockHash); err != nil {
		return nil, errors.Wrap(err, "chain_getBlock")
	}
	if signed == nil {
		return nil, errors.Wrap(ErrBlockNotFound, blockHash)
	}
	number, err := hexutil.DecodeUint64(signed.Block.Header.Number)
	if err != nil {
		return nil, errors.Wrapf(err, "block number %q", signed.Block.Header.Number)
	}
	block := &model.Block{Hash: blockHash, Number: number, ParentHash: signed.Block.Header.ParentHash}

	reg, regErr := sc.Registry(ctx, blockHash)
	if regErr != nil {
		logrus.Warnf("block %s: extrinsics left undecoded: %v", blockHash, regErr)
	}
	for i, x := range signed.Block.Extrinsics {
		ext, err := model.NewExtrinsicFromHex(x)
		if err != nil {
			return nil, errors.Wrapf(err, "extrinsic %d", i)
		}
		ref := &model.ExtrinsicRef{Index: i, Hash: ext.Hash(), Raw: ext.Encoded, Signed: ext.IsSigned()}
		if reg != nil {
			if err := reg.describeExtrinsic(ref); err != nil {
				logrus.Debugf("block %s extrinsic %d: %v", blockHash, i, err)
			}
		}
		block.Extrinsics = append(block.Extrinsics, ref)
	}
	return block, nil
}

func (sc *SubstrateClient) SubmitExtrinsic(ctx context.Context, ext *model.Extrinsic) (string, error) {
	var hash string
	if err := sc.client.CallContext(ctx, &hash, "author_submitExtrinsic", ext.Hex()); err != nil {
		return "", err
	}
	return hash, nil
}

func (sc *SubstrateClient) AccountNextIndex(ctx context.Context, account common.Address) (uint64, error) {
	var nonce uint64
	if err := sc.client.CallContext(ctx, &nonce, "system_accountNextIndex", account.Hex()); err != nil {
		return 0, errors.Wrap(err, "system_accountNextIndex")
	}
	return nonce, nil
}

func (sc *SubstrateClient) GenesisHash(ctx context.Context) (common.Hash, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.genesis != nil {
		return *sc.genesis, nil
	}
	var hash common.Hash
	if err := sc.client.CallContext(ctx, &hash, "chain_getBlockHash", 0); err != nil {
		return common.Hash{}, errors.Wrap(err, "chain_getBlockHash")
	}
	sc.genesis = &hash
	return hash, nil
}

// SigningContext collects what a signature for signer commits to at the best block.
func (sc *SubstrateClient) SigningContext(ctx context.Context, signer model.Signer) (SigningContext, error) {
	rv, err := sc.RuntimeVersion(ctx, "")
	if err != nil {
		return SigningContext{}, err
	}
	genesis, err := sc.GenesisHash(ctx)
	if err != nil {
		return SigningContext{}, err
	}
	nonce, err := sc.AccountNextIndex(ctx, signer.Address())
	if err != nil {
		return SigningContext{}, err
	}
	return SigningContext{
		Nonce:              nonce,
		SpecVersion:        rv.SpecVersion,
		TransactionVersion: rv.TransactionVersion,
		GenesisHash:        genesis,
	}, nil
}

// SignExtrinsic signs call with the signer's next nonce against the current runtime.
func (sc *SubstrateClient) SignExtrinsic(ctx context.Context, call types.Call, signer model.Signer) (*model.Extrinsic, error) {
	signing, err := sc.SigningContext(ctx, signer)
	if err != nil {
		return nil, err
	}
	reg, err := sc.Registry(ctx, "")
	if err != nil {
		return nil, err
	}
	return reg.SignExtrinsic(call, signer, signing)
}

// NewCall builds a call against the current runtime's metadata.
func (sc *SubstrateClient) NewCall(ctx context.Context, name string, args ...interface{}) (types.Call, error) {
	reg, err := sc.Registry(ctx, "")
	if err != nil {
		return types.Call{}, err
	}
	return reg.NewCall(name, args...)
}

func (sc *SubstrateClient) FindMetaError(ctx context.Context, blockHash string, m model.ModuleError) (*model.RegistryError, error) {
	reg, err := sc.Registry(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	return reg.FindMetaError(m)
}

func atBlock(blockHash string) []interface{} {
	if blockHash == "" {
		return nil
	}
	return []interface{}{blockHash}
}
