package core

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"metachain-devtest/core/model"
)

// extractError decodes the first system.ExtrinsicFailed event, if any.
func (c *DevContext) extractError(ctx context.Context, blockHash string, events []*model.BlockEvent) *model.RegistryError {
	for _, ev := range model.FilterEvents(events, "system", "ExtrinsicFailed") {
		payload, ok := ev.Data.Get("dispatch_error")
		if !ok {
			payload, _ = ev.Data.At(0)
		}
		dispatchErr, ok := model.ParseDispatchError(payload)
		if !ok {
			return &model.RegistryError{Name: fmt.Sprint(payload)}
		}
		return c.resolveError(ctx, blockHash, dispatchErr)
	}
	return nil
}

// resolveError looks module errors up in the block's metadata and falls back to the
// dispatch error's string form.
func (c *DevContext) resolveError(ctx context.Context, blockHash string, d *model.DispatchError) *model.RegistryError {
	if d.IsModule() {
		resolved, err := c.chain.FindMetaError(ctx, blockHash, *d.Module)
		if err == nil {
			return resolved
		}
		logrus.Warnf("module error %s not found in metadata: %v", d, err)
	}
	return &model.RegistryError{Name: d.String()}
}

// exitReasonError reports a non-Succeed EVM exit reason carried by an ethereum.Executed event.
func exitReasonError(ev *model.BlockEvent) *model.RegistryError {
	v, ok := ev.Data.Get("exit_reason")
	if !ok {
		v, ok = ev.Data.At(3)
	}
	if !ok {
		return nil
	}
	reason, ok := model.AsVariant(v)
	if !ok || reason.Name == "Succeed" {
		return nil
	}
	name := reason.Name
	if len(reason.Fields) > 0 {
		if inner, ok := model.AsVariant(reason.Fields[0].Value); ok {
			name = inner.Name
		}
	}
	return &model.RegistryError{Name: name, Section: "ethereum", Method: reason.Name}
}
