package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

type EthTransactionType string

const (
	TxLegacy  EthTransactionType = "Legacy"
	TxEIP2930 EthTransactionType = "EIP2930"
	TxEIP1559 EthTransactionType = "EIP1559"

	transferGas = 21000
	defaultGas  = 500000
)

func ParseEthTransactionType(s string) (EthTransactionType, error) {
	switch t := EthTransactionType(s); t {
	case TxLegacy, TxEIP2930, TxEIP1559:
		return t, nil
	case "":
		return TxLegacy, nil
	}
	return "", fmt.Errorf("unknown ethereum transaction type %q", s)
}

// TxRequest describes an Ethereum transaction. Unset fields are filled from the node.
type TxRequest struct {
	To       *common.Address
	Value    *big.Int
	Data     []byte
	Gas      uint64
	GasPrice *big.Int
	Nonce    *uint64
}

// TxParams are the chain values a transaction is signed against.
type TxParams struct {
	ChainID  *big.Int
	Nonce    uint64
	GasPrice *big.Int
}

// TxBuilder produces signed raw transactions for the configured account.
type TxBuilder struct {
	eth    *EthClient
	key    *ecdsa.PrivateKey
	from   common.Address
	txType EthTransactionType
}

func NewTxBuilder(eth *EthClient, signer *KeySigner, txType EthTransactionType) *TxBuilder {
	return &TxBuilder{eth: eth, key: signer.PrivateKey(), from: signer.Address(), txType: txType}
}

// Build signs req and returns the 0x prefixed raw transaction.
func (b *TxBuilder) Build(ctx context.Context, req TxRequest) (string, error) {
	chainID, err := b.eth.ChainID(ctx)
	if err != nil {
		return "", errors.Wrap(err, "eth_chainId")
	}
	params := TxParams{ChainID: chainID, GasPrice: req.GasPrice}
	if req.Nonce != nil {
		params.Nonce = *req.Nonce
	} else if params.Nonce, err = b.eth.Nonce(ctx, b.from); err != nil {
		return "", errors.Wrap(err, "pending nonce")
	}
	if params.GasPrice == nil {
		if params.GasPrice, err = b.eth.SuggestGasPrice(ctx); err != nil {
			return "", errors.Wrap(err, "eth_gasPrice")
		}
	}
	return SignRawTx(b.txType, req, params, b.key)
}

func SignRawTx(txType EthTransactionType, req TxRequest, params TxParams, key *ecdsa.PrivateKey) (string, error) {
	gas := req.Gas
	if gas == 0 {
		gas = transferGas
		if len(req.Data) > 0 || req.To == nil {
			gas = defaultGas
		}
	}
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	var inner types.TxData
	switch txType {
	case TxLegacy, "":
		inner = &types.LegacyTx{Nonce: params.Nonce, GasPrice: params.GasPrice, Gas: gas, To: req.To, Value: value, Data: req.Data}
	case TxEIP2930:
		inner = &types.AccessListTx{ChainID: params.ChainID, Nonce: params.Nonce, GasPrice: params.GasPrice, Gas: gas, To: req.To, Value: value, Data: req.Data}
	case TxEIP1559:
		inner = &types.DynamicFeeTx{ChainID: params.ChainID, Nonce: params.Nonce, GasTipCap: new(big.Int), GasFeeCap: params.GasPrice, Gas: gas, To: req.To, Value: value, Data: req.Data}
	default:
		return "", fmt.Errorf("unknown ethereum transaction type %q", txType)
	}

	signed, err := types.SignTx(types.NewTx(inner), types.LatestSignerForChainID(params.ChainID), key)
	if err != nil {
		return "", err
	}
	bin, err := signed.MarshalBinary()
	if err != nil {
		return "", err
	}
	return hexutil.Encode(bin), nil
}
