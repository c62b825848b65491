package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"metachain-devtest/harness"
	"metachain-devtest/node"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start a dev node and keep it running until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			h, err := harness.Setup(ctx, opts.cfg, nil)
			if err != nil {
				return err
			}
			defer closeSession(h)

			logrus.Infof("ethereum rpc: %s", h.Node.RPCURL())
			logrus.Infof("substrate ws: %s", h.Node.WSURL())
			var exited <-chan struct{}
			if n, ok := h.Node.(*node.Node); ok {
				exited = n.Exited()
			}
			select {
			case <-ctx.Done():
				logrus.Infof("shutting down")
			case <-exited:
				logrus.Warnf("node exited")
			}
			return nil
		},
	}
}
