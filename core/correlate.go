package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"metachain-devtest/core/model"
)

// correlate seals one block and maps every submission record onto the sealed block's
// extrinsics and events.
func (c *DevContext) correlate(ctx context.Context, records []model.SubmissionRecord, opts model.BlockCreation) (model.SealedBlock, []*model.ExtrinsicOutcome, error) {
	start := time.Now()
	created, err := c.chain.CreateBlock(ctx, true, opts.ShouldFinalize(), opts.ParentHash)
	if err != nil {
		return model.SealedBlock{}, nil, err
	}
	block := model.SealedBlock{Hash: created.Hash, Duration: time.Since(start)}
	c.metrics.observeSeal(block.Duration)
	logrus.Debugf("sealed block %s in %dms with %d transactions", block.Hash, block.DurationMs(), len(records))

	if len(records) == 0 {
		return block, nil, nil
	}

	var (
		events []*model.BlockEvent
		sealed *model.Block
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		events, err = c.chain.Events(gctx, block.Hash)
		return err
	})
	g.Go(func() (err error) {
		sealed, err = c.chain.Block(gctx, block.Hash)
		return err
	})
	if err := g.Wait(); err != nil {
		return block, nil, err
	}
	if sealed == nil {
		sealed = &model.Block{Hash: block.Hash}
	}

	outcomes := make([]*model.ExtrinsicOutcome, 0, len(records))
	hasEth := false
	for _, record := range records {
		outcome := c.outcome(ctx, block.Hash, record, sealed, events)
		c.metrics.observeOutcome(record.Kind, outcome)
		outcomes = append(outcomes, outcome)
		if record.Kind == model.RecordEth {
			hasEth = true
		}
	}

	if hasEth && c.ethDelay > 0 {
		timer := time.NewTimer(c.ethDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return block, nil, ctx.Err()
		}
	}
	return block, outcomes, nil
}

func (c *DevContext) outcome(ctx context.Context, blockHash string, record model.SubmissionRecord, block *model.Block, events []*model.BlockEvent) *model.ExtrinsicOutcome {
	var (
		position int
		executed *model.BlockEvent
	)
	if record.Kind == model.RecordNative {
		position = block.FindExtrinsic(record.Hash)
	} else {
		executed = findExecuted(events, record.Hash)
		if executed != nil {
			position = int(executed.Phase.ExtrinsicIndex)
		}
	}

	outcome := &model.ExtrinsicOutcome{Hash: record.Hash, Events: eventsOf(events, position)}
	if position >= 0 && position < len(block.Extrinsics) {
		outcome.Extrinsic = block.Extrinsics[position]
	}
	outcome.Error = c.extractError(ctx, blockHash, outcome.Events)
	if outcome.Error == nil && executed != nil {
		outcome.Error = exitReasonError(executed)
	}
	outcome.Successful = outcome.Error == nil
	return outcome
}

// findExecuted returns the first ethereum.Executed event carrying hash.
func findExecuted(events []*model.BlockEvent, hash string) *model.BlockEvent {
	for _, ev := range events {
		if ev.Phase.Kind != model.PhaseApplyExtrinsic || !ev.Is("ethereum", "Executed") {
			continue
		}
		if txHash, ok := executedTxHash(ev); ok && model.EqualHash(hash, txHash) {
			return ev
		}
	}
	return nil
}

func executedTxHash(ev *model.BlockEvent) ([]byte, bool) {
	if v, ok := ev.Data.Get("transaction_hash"); ok {
		return model.Bytes(v)
	}
	// older runtimes emit unnamed (from, to, transaction_hash, exit_reason)
	for _, f := range ev.Data {
		if b, ok := model.Bytes(f.Value); ok && len(b) == 32 {
			return b, true
		}
	}
	return nil, false
}

func eventsOf(events []*model.BlockEvent, position int) []*model.BlockEvent {
	out := make([]*model.BlockEvent, 0)
	for _, ev := range events {
		if ev.Phase.AppliesTo(position) {
			out = append(out, ev)
		}
	}
	return out
}
