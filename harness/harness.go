package harness

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"metachain-devtest/chain"
	"metachain-devtest/config"
	"metachain-devtest/core"
	"metachain-devtest/node"
)

// CloseDelay separates closing the RPC connections from stopping the node.
const CloseDelay = time.Second

// Harness owns a dev node and the clients a test suite uses against it.
type Harness struct {
	Node      node.Instance
	Eth       *chain.EthClient
	Chain     *chain.SubstrateClient
	Dev       *core.DevContext
	TxBuilder *chain.TxBuilder
	Metrics   *core.Metrics

	closeDelay time.Duration
}

// Setup starts a node through the shared start lock and connects to it.
func Setup(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*Harness, error) {
	inst, err := node.Default().Start(ctx, cfg.Launcher())
	if err != nil {
		return nil, err
	}
	h, err := Connect(ctx, inst, cfg.TxType(), reg)
	if err != nil {
		if stopErr := inst.Stop(context.Background()); stopErr != nil {
			logrus.Warnf("stop node after failed setup: %v", stopErr)
		}
		return nil, err
	}
	return h, nil
}

// Connect dials an already running node. reg may be nil to skip metrics.
func Connect(ctx context.Context, inst node.Instance, txType chain.EthTransactionType, reg prometheus.Registerer) (*Harness, error) {
	eth, err := chain.NewEthClient(ctx, inst.RPCURL())
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", inst.RPCURL())
	}
	sub, err := chain.NewSubstrateClient(ctx, inst.WSURL())
	if err != nil {
		eth.Close()
		return nil, err
	}

	h := &Harness{Node: inst, Eth: eth, Chain: sub, closeDelay: CloseDelay}
	var opts []core.Option
	if reg != nil {
		h.Metrics = core.NewMetrics(reg)
		opts = append(opts, core.WithMetrics(h.Metrics))
	}
	h.Dev = core.NewDevContext(eth, sub, opts...)
	h.TxBuilder = chain.NewTxBuilder(eth, chain.Alith(), txType)
	return h, nil
}

// Close disconnects both clients, waits CloseDelay and stops the node.
func (h *Harness) Close(ctx context.Context) error {
	h.Eth.Close()
	h.Chain.Close()
	select {
	case <-time.After(h.closeDelay):
	case <-ctx.Done():
	}
	if h.Node == nil {
		return nil
	}
	return h.Node.Stop(ctx)
}
