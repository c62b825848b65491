package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"metachain-devtest/config"
	"metachain-devtest/harness"
	"metachain-devtest/node"
)

type rootOptions struct {
	configPath string
	output     string
	rpcURL     string
	wsURL      string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "devnode",
		Short:         "Drive a manual-seal Frontier dev node",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			level, err := logrus.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			opts.cfg = cfg
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "yaml config file")
	flags.StringVarP(&opts.output, "output", "o", "json", "output format (json, yaml)")
	flags.String("log-level", "info", "log level")
	flags.String("binary-path", config.DefaultBinaryPath, "node binary (env BINARY_PATH)")
	flags.Int("rpc-port", node.DefaultRPCPort, "ethereum rpc port")
	flags.Int("ws-port", node.DefaultWSPort, "substrate websocket port")
	flags.Int("p2p-port", node.DefaultP2PPort, "peer port")
	flags.Duration("spawning-time", node.DefaultSpawningTime, "node startup window")
	flags.Bool("display-log", false, "forward node output")
	flags.Bool("docker", false, "run the node in a container")
	flags.String("eth-tx-type", "Legacy", "ethereum transaction type (Legacy, EIP2930, EIP1559)")
	flags.StringVar(&opts.rpcURL, "rpc-url", "", "connect to a running node's ethereum rpc instead of spawning one")
	flags.StringVar(&opts.wsURL, "ws-url", "", "connect to a running node's websocket rpc instead of spawning one")

	root.AddCommand(newRunCmd(opts), newSealCmd(opts), newSendCmd(opts), newRemarkCmd(opts))
	return root
}

// remoteNode is a node started outside this process.
type remoteNode struct {
	rpcURL, wsURL string
}

func (r remoteNode) RPCURL() string                 { return r.rpcURL }
func (r remoteNode) WSURL() string                  { return r.wsURL }
func (r remoteNode) Logs() string                   { return "" }
func (r remoteNode) Stop(ctx context.Context) error { return nil }

// session connects to --rpc-url/--ws-url when both are given and starts a node otherwise.
func (o *rootOptions) session(ctx context.Context) (*harness.Harness, error) {
	if o.rpcURL != "" && o.wsURL != "" {
		return harness.Connect(ctx, remoteNode{rpcURL: o.rpcURL, wsURL: o.wsURL}, o.cfg.TxType(), nil)
	}
	return harness.Setup(ctx, o.cfg, nil)
}

func closeSession(h *harness.Harness) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.Close(ctx); err != nil {
		logrus.Errorf("close: %v", err)
	}
}
