package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEth struct {
	sent     []hexutil.Bytes
	sendErr  error
	nonce    uint64
	receipts map[string][]*types.Receipt
}

func (e *fakeEth) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	if e.sendErr != nil {
		return common.Hash{}, e.sendErr
	}
	e.sent = append(e.sent, raw)
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

func (e *fakeEth) ChainId() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(42))
}

func (e *fakeEth) GetTransactionCount(account common.Address, block string) hexutil.Uint64 {
	return hexutil.Uint64(e.nonce)
}

func (e *fakeEth) GasPrice() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(1_000_000_000))
}

func (e *fakeEth) BlockNumber() hexutil.Uint64 {
	return 7
}

func (e *fakeEth) GetBlockReceipts(block string) []*types.Receipt {
	return e.receipts[block]
}

func (e *fakeEth) Fail(a, b string) error {
	return errors.New("method not supported")
}

func newEthNode(t *testing.T) (*fakeEth, *EthClient) {
	eth := &fakeEth{nonce: 3}
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", eth))
	t.Cleanup(server.Stop)
	client := NewEthClientWithRPC(rpc.DialInProc(server))
	t.Cleanup(client.Close)
	return eth, client
}

func TestSendRawTransaction(t *testing.T) {
	eth, client := newEthNode(t)
	raw, err := SignRawTx(TxLegacy, TxRequest{To: &common.Address{1}}, TxParams{ChainID: big.NewInt(42), GasPrice: big.NewInt(1)}, Alith().PrivateKey())
	require.NoError(t, err)

	hash, err := client.SendRawTransaction(context.Background(), raw)
	require.NoError(t, err)
	assert.Len(t, eth.sent, 1)
	assert.True(t, strings.HasPrefix(hash, "0x"))
	assert.Len(t, hash, 66)

	eth.sendErr = errors.New("nonce too low")
	_, err = client.SendRawTransaction(context.Background(), raw)
	assert.EqualError(t, err, "nonce too low")
}

func TestCustomRequest(t *testing.T) {
	_, client := newEthNode(t)
	ctx := context.Background()

	res, err := client.CustomRequest(ctx, "eth_blockNumber")
	require.NoError(t, err)
	assert.JSONEq(t, `"0x7"`, string(res))

	long := "0x" + strings.Repeat("ab", 100)
	_, err = client.CustomRequest(ctx, "eth_fail", "short", long)
	require.Error(t, err)
	want := "failed to send custom request (eth_fail (short," + long[:96] + "..." + long[len(long)-28:] + ")): method not supported"
	assert.EqualError(t, err, want)
}

func TestFormatParams(t *testing.T) {
	assert.Equal(t, "", formatParams(nil))
	assert.Equal(t, "1,true,abc", formatParams([]interface{}{1, true, "abc"}))

	exact := strings.Repeat("a", 128)
	assert.Equal(t, exact, formatParams([]interface{}{exact}))
	over := strings.Repeat("a", 100) + strings.Repeat("b", 29)
	got := formatParams([]interface{}{over})
	assert.Len(t, got, 96+3+28)
	assert.True(t, strings.HasSuffix(got, "..."+strings.Repeat("b", 28)))
}

func TestTxBuilder(t *testing.T) {
	eth, client := newEthNode(t)
	builder := NewTxBuilder(client, Alith(), TxEIP1559)

	raw, err := builder.Build(context.Background(), TxRequest{Data: []byte{0x60, 0x00}})
	require.NoError(t, err)

	tx := new(types.Transaction)
	require.NoError(t, tx.UnmarshalBinary(hexutil.MustDecode(raw)))
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, eth.nonce, tx.Nonce())
	assert.Equal(t, uint64(defaultGas), tx.Gas())
	assert.Nil(t, tx.To())
	assert.Equal(t, int64(42), tx.ChainId().Int64())

	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	require.NoError(t, err)
	assert.Equal(t, Alith().Address(), from)
}

func TestSignRawTxTypes(t *testing.T) {
	to := common.HexToAddress("0x3Cd0A705a2DC65e5b1E1205896BaA2be8A07c6e0")
	params := TxParams{ChainID: big.NewInt(42), Nonce: 1, GasPrice: big.NewInt(10)}

	for txType, want := range map[EthTransactionType]uint8{
		TxLegacy:  types.LegacyTxType,
		TxEIP2930: types.AccessListTxType,
		TxEIP1559: types.DynamicFeeTxType,
	} {
		t.Run(string(txType), func(t *testing.T) {
			raw, err := SignRawTx(txType, TxRequest{To: &to, Value: big.NewInt(5)}, params, Alith().PrivateKey())
			require.NoError(t, err)
			tx := new(types.Transaction)
			require.NoError(t, tx.UnmarshalBinary(hexutil.MustDecode(raw)))
			assert.Equal(t, want, tx.Type())
			assert.Equal(t, uint64(transferGas), tx.Gas())
			assert.Equal(t, &to, tx.To())
			assert.Equal(t, int64(5), tx.Value().Int64())
		})
	}

	_, err := SignRawTx("Blob", TxRequest{}, params, Alith().PrivateKey())
	assert.Error(t, err)
}

func TestParseEthTransactionType(t *testing.T) {
	got, err := ParseEthTransactionType("")
	require.NoError(t, err)
	assert.Equal(t, TxLegacy, got)

	got, err = ParseEthTransactionType("EIP1559")
	require.NoError(t, err)
	assert.Equal(t, TxEIP1559, got)

	_, err = ParseEthTransactionType("eip1559")
	assert.Error(t, err)
}

func TestGetBlockReceipts(t *testing.T) {
	eth, client := newEthNode(t)
	ctx := context.Background()
	txHash := common.HexToHash("0xabcd")
	eth.receipts = map[string][]*types.Receipt{
		"0x7": {{Status: types.ReceiptStatusSuccessful, CumulativeGasUsed: 21000, GasUsed: 21000, TxHash: txHash, Logs: []*types.Log{}}},
	}

	receipts, err := client.GetBlockReceipts(ctx, rpc.BlockNumberOrHashWithNumber(7))
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, txHash, receipts[0].TxHash)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipts[0].Status)

	_, err = client.GetBlockReceipts(ctx, rpc.BlockNumberOrHashWithNumber(8))
	assert.ErrorIs(t, err, ethereum.NotFound)
}
