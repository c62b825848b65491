package main

import (
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"metachain-devtest/chain"
	"metachain-devtest/core/model"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	var (
		to    string
		value string
		data  string
		gas   uint64
	)
	cmd := &cobra.Command{
		Use:   "send [raw-tx...]",
		Short: "Submit raw ethereum transactions (or build one from flags) and seal them in one block",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			h, err := opts.session(ctx)
			if err != nil {
				return err
			}
			defer closeSession(h)

			raws := args
			if len(raws) == 0 {
				req := chain.TxRequest{Gas: gas}
				if to != "" {
					if !common.IsHexAddress(to) {
						return errors.Errorf("invalid address %q", to)
					}
					addr := common.HexToAddress(to)
					req.To = &addr
				}
				if value != "" {
					v, ok := new(big.Int).SetString(value, 0)
					if !ok {
						return errors.Errorf("invalid value %q", value)
					}
					req.Value = v
				}
				if data != "" {
					if req.Data, err = hexutil.Decode(data); err != nil {
						return errors.Wrap(err, "data")
					}
				}
				raw, err := h.TxBuilder.Build(ctx, req)
				if err != nil {
					return err
				}
				raws = []string{raw}
			}

			txs := make([]model.PendingTransaction, 0, len(raws))
			for _, raw := range raws {
				txs = append(txs, model.RawEth(raw))
			}
			res, err := h.Dev.CreateBlock(ctx, txs, model.BlockCreation{})
			if err != nil {
				return err
			}
			summary := summarize(res.Block, res.Result)
			if summary.Ethereum, err = h.Eth.LatestEthBlock(ctx); err != nil {
				logrus.Warnf("ethereum block: %v", err)
			}
			return write(cmd.OutOrStdout(), opts.output, summary)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient; empty deploys data as a contract")
	cmd.Flags().StringVar(&value, "value", "", "value in wei")
	cmd.Flags().StringVar(&data, "data", "", "hex call data")
	cmd.Flags().Uint64Var(&gas, "gas", 0, "gas limit")
	return cmd
}

func newRemarkCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remark <text>",
		Short: "Submit System.remark signed by the dev account and seal it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			h, err := opts.session(ctx)
			if err != nil {
				return err
			}
			defer closeSession(h)

			call, err := h.Chain.NewCall(ctx, "System.remark", []byte(args[0]))
			if err != nil {
				return err
			}
			res, err := h.Dev.CreateBlockWith(ctx, model.Unsigned(call), model.BlockCreation{})
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), opts.output, summarize(res.Block, []*model.ExtrinsicOutcome{res.Result}))
		},
	}
}
