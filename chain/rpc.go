package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/rpc"
)

// RPCClient is the subset of *rpc.Client the clients need.
type RPCClient interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
	Close()
}

func dialRPC(ctx context.Context, url string) (*rpc.Client, error) {
	return rpc.DialContext(ctx, url)
}
