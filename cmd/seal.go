package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"metachain-devtest/core/model"
)

func newSealCmd(opts *rootOptions) *cobra.Command {
	var (
		count      int
		parentHash string
		noFinalize bool
	)
	cmd := &cobra.Command{
		Use:   "seal",
		Short: "Seal empty blocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			h, err := opts.session(ctx)
			if err != nil {
				return err
			}
			defer closeSession(h)

			var bar *progressbar.ProgressBar
			if count > 1 {
				bar = progressbar.NewOptions(count,
					progressbar.OptionClearOnFinish(),
					progressbar.OptionSetDescription("Sealing blocks..."),
					progressbar.OptionShowCount(),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				)
			}

			creation := model.WithFinalize(!noFinalize)
			creation.ParentHash = parentHash
			summaries := make([]blockSummary, 0, count)
			for i := 0; i < count; i++ {
				res, err := h.Dev.AdvanceBlock(ctx, creation)
				if err != nil {
					return err
				}
				summaries = append(summaries, summarize(res.Block, nil))
				// only the first block goes on an explicit parent
				creation.ParentHash = ""
				if bar != nil {
					if err := bar.Add(1); err != nil {
						return err
					}
				}
			}
			if bar != nil {
				if err := bar.Finish(); err != nil {
					return err
				}
			}
			return write(cmd.OutOrStdout(), opts.output, summaries)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of blocks")
	cmd.Flags().StringVar(&parentHash, "parent", "", "parent block hash of the first block")
	cmd.Flags().BoolVar(&noFinalize, "no-finalize", false, "do not finalize the sealed blocks")
	return cmd
}
