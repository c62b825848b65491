package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"metachain-devtest/core/model"
)

const (
	maxParamsLen  = 128
	paramsHeadLen = 96
	paramsTailLen = 28
)

// EthClient talks to the node's Ethereum JSON-RPC interface.
type EthClient struct {
	client *ethclient.Client
	rpc    *rpc.Client
}

func NewEthClient(ctx context.Context, url string) (*EthClient, error) {
	client, err := dialRPC(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewEthClientWithRPC(client), nil
}

func NewEthClientWithRPC(client *rpc.Client) *EthClient {
	return &EthClient{client: ethclient.NewClient(client), rpc: client}
}

func (bc *EthClient) Client() *ethclient.Client {
	return bc.client
}

func (bc *EthClient) Close() {
	bc.client.Close()
}

// SendRawTransaction submits a signed, hex encoded transaction and returns its hash. Node
// errors are returned unchanged.
func (bc *EthClient) SendRawTransaction(ctx context.Context, raw string) (string, error) {
	var hash common.Hash
	if err := bc.rpc.CallContext(ctx, &hash, "eth_sendRawTransaction", raw); err != nil {
		return "", err
	}
	return hash.Hex(), nil
}

// CustomRequest performs an arbitrary call. Failures name the method and its params, with
// long params abbreviated.
func (bc *EthClient) CustomRequest(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	var result json.RawMessage
	if err := bc.rpc.CallContext(ctx, &result, method, params...); err != nil {
		return nil, fmt.Errorf("failed to send custom request (%s (%s)): %w", method, formatParams(params), err)
	}
	return result, nil
}

func formatParams(params []interface{}) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		s := fmt.Sprint(p)
		if len(s) > maxParamsLen {
			s = s[:paramsHeadLen] + "..." + s[len(s)-paramsTailLen:]
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ",")
}

func (bc *EthClient) ChainID(ctx context.Context) (*big.Int, error) {
	return bc.client.ChainID(ctx)
}

func (bc *EthClient) Nonce(ctx context.Context, account common.Address) (uint64, error) {
	return bc.client.PendingNonceAt(ctx, account)
}

func (bc *EthClient) BlockNumber(ctx context.Context) (uint64, error) {
	return bc.client.BlockNumber(ctx)
}

func (bc *EthClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return bc.client.SuggestGasPrice(ctx)
}

func (bc *EthClient) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	return bc.client.BalanceAt(ctx, account, nil)
}

func (bc *EthClient) Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return bc.client.TransactionReceipt(ctx, hash)
}

// GetBlockReceipts fetches all receipts of a block with one eth_getBlockReceipts call.
func (bc *EthClient) GetBlockReceipts(ctx context.Context, block rpc.BlockNumberOrHash) ([]*types.Receipt, error) {
	receipts, err := bc.client.BlockReceipts(ctx, block)
	if err != nil {
		return nil, errors.Wrapf(err, "receipts of block %s", block.String())
	}
	return receipts, nil
}

// LatestEthBlock loads the best block with its receipts.
func (bc *EthClient) LatestEthBlock(ctx context.Context) (*model.EthBlock, error) {
	block, err := bc.client.BlockByNumber(ctx, nil)
	if err != nil {
		return nil, err
	}
	receipts, err := bc.GetBlockReceipts(ctx, rpc.BlockNumberOrHashWithHash(block.Hash(), false))
	if err != nil {
		return nil, err
	}
	return ConvertBlockToEthBlock(block, receipts), nil
}

func ConvertBlockToEthBlock(block *types.Block, receipts []*types.Receipt) *model.EthBlock {
	ethBlock := &model.EthBlock{
		Number:    block.Number().Uint64(),
		Hash:      block.Hash().Hex(),
		Timestamp: block.Time(),
	}
	status := make(map[common.Hash]uint64, len(receipts))
	for _, receipt := range receipts {
		status[receipt.TxHash] = receipt.Status
		ethBlock.Receipts = append(ethBlock.Receipts, &model.EthReceipt{Receipt: receipt, Timestamp: block.Time()})
	}
	for idx, tx := range block.Transactions() {
		from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
		if err != nil {
			logrus.Errorf("sender of %s: %v", tx.Hash(), err)
			continue
		}
		var to string
		if tx.To() != nil {
			to = tx.To().Hex()
		}
		ethBlock.Txs = append(ethBlock.Txs, &model.EthTransaction{
			Hash:   tx.Hash().Hex(),
			From:   from.Hex(),
			To:     to,
			Idx:    uint32(idx),
			Input:  "0x" + hex.EncodeToString(tx.Data()),
			Status: status[tx.Hash()],
		})
	}
	return ethBlock
}
