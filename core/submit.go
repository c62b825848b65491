package core

import (
	"context"
	"fmt"

	"metachain-devtest/core/model"
)

// submit sends every transaction, one at a time, and records the returned hashes. The first
// rejected submission aborts the batch and its error is returned unchanged.
func (c *DevContext) submit(ctx context.Context, txs []model.PendingTransaction) ([]model.SubmissionRecord, error) {
	records := make([]model.SubmissionRecord, 0, len(txs))
	for _, tx := range txs {
		record, err := c.submitOne(ctx, tx)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *DevContext) submitOne(ctx context.Context, tx model.PendingTransaction) (model.SubmissionRecord, error) {
	switch tx.Kind() {
	case model.KindRawEth:
		hash, err := c.eth.SendRawTransaction(ctx, tx.RawPayload())
		if err != nil {
			return model.SubmissionRecord{}, err
		}
		return model.SubmissionRecord{Kind: model.RecordEth, Hash: hash}, nil
	case model.KindSignedExtrinsic:
		return c.submitExtrinsic(ctx, tx.Extrinsic())
	case model.KindUnsignedExtrinsic:
		ext, err := c.chain.SignExtrinsic(ctx, tx.Call(), c.signer)
		if err != nil {
			return model.SubmissionRecord{}, err
		}
		return c.submitExtrinsic(ctx, ext)
	}
	return model.SubmissionRecord{}, fmt.Errorf("unknown transaction kind %s", tx.Kind())
}

func (c *DevContext) submitExtrinsic(ctx context.Context, ext *model.Extrinsic) (model.SubmissionRecord, error) {
	hash, err := c.chain.SubmitExtrinsic(ctx, ext)
	if err != nil {
		return model.SubmissionRecord{}, err
	}
	return model.SubmissionRecord{Kind: model.RecordNative, Hash: hash}, nil
}
