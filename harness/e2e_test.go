//go:build e2e

package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metachain-devtest/chain"
	"metachain-devtest/config"
	"metachain-devtest/core/model"
)

// revertInitCode is PUSH1 0 PUSH1 0 REVERT.
var revertInitCode = []byte{0x60, 0x00, 0x60, 0x00, 0xfd}

func setupNode(t *testing.T) *Harness {
	t.Helper()
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SpawningTime+10*time.Second)
	defer cancel()
	h, err := Setup(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		assert.NoError(t, h.Close(ctx))
	})
	return h
}

func TestDevNodeScenarios(t *testing.T) {
	h := setupNode(t)
	ctx := context.Background()

	t.Run("empty block advances the chain", func(t *testing.T) {
		before, err := h.Eth.BlockNumber(ctx)
		require.NoError(t, err)

		res, err := h.Dev.AdvanceBlock(ctx, model.BlockCreation{})
		require.NoError(t, err)
		assert.Nil(t, res.Result)

		after, err := h.Eth.BlockNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, before+1, after)
	})

	t.Run("signed extrinsic succeeds", func(t *testing.T) {
		call, err := h.Chain.NewCall(ctx, "System.remark", []byte("hello"))
		require.NoError(t, err)
		ext, err := h.Chain.SignExtrinsic(ctx, call, chain.Alith())
		require.NoError(t, err)

		res, err := h.Dev.CreateBlockWith(ctx, model.Signed(ext), model.BlockCreation{})
		require.NoError(t, err)
		require.NotNil(t, res.Result.Extrinsic)
		assert.Equal(t, ext.Hash(), res.Result.Hash)
		assert.True(t, res.Result.Successful)
		assert.Equal(t, "remark", res.Result.Extrinsic.Method)
	})

	t.Run("reverting ethereum transaction fails", func(t *testing.T) {
		raw, err := h.TxBuilder.Build(ctx, chain.TxRequest{Data: revertInitCode, Gas: 100000})
		require.NoError(t, err)

		res, err := h.Dev.CreateBlockWith(ctx, model.RawEth(raw), model.BlockCreation{})
		require.NoError(t, err)
		assert.False(t, res.Result.Successful)
		require.NotNil(t, res.Result.Error)
		assert.Equal(t, "Reverted", res.Result.Error.Name)

		block, err := h.Eth.LatestEthBlock(ctx)
		require.NoError(t, err)
		ok, found := block.Succeeded(res.Result.Hash)
		assert.True(t, found)
		assert.False(t, ok)
	})

	t.Run("two extrinsics keep their order", func(t *testing.T) {
		signer := chain.Alith()
		reg, err := h.Chain.Registry(ctx, "")
		require.NoError(t, err)
		signing, err := h.Chain.SigningContext(ctx, signer)
		require.NoError(t, err)

		var txs []model.PendingTransaction
		var hashes []string
		for i, text := range []string{"first", "second"} {
			call, err := reg.NewCall("System.remark", []byte(text))
			require.NoError(t, err)
			sc := signing
			sc.Nonce += uint64(i)
			ext, err := reg.SignExtrinsic(call, signer, sc)
			require.NoError(t, err)
			txs = append(txs, model.Signed(ext))
			hashes = append(hashes, ext.Hash())
		}

		res, err := h.Dev.CreateBlock(ctx, txs, model.BlockCreation{})
		require.NoError(t, err)
		require.Len(t, res.Result, 2)
		for i, outcome := range res.Result {
			assert.Equal(t, hashes[i], outcome.Hash)
			assert.True(t, outcome.Successful)
			require.NotNil(t, outcome.Extrinsic)
		}
		assert.Less(t, res.Result[0].Extrinsic.Index, res.Result[1].Extrinsic.Index)
	})
}
