package model

import (
	"github.com/ethereum/go-ethereum/core/types"
)

// EthBlock is the Ethereum view of a sealed block.
type EthBlock struct {
	Number    uint64            `json:"number" yaml:"number"`
	Hash      string            `json:"hash" yaml:"hash"`
	Timestamp uint64            `json:"timestamp" yaml:"timestamp"`
	Txs       []*EthTransaction `json:"transactions" yaml:"transactions"`
	Receipts  []*EthReceipt     `json:"-" yaml:"-"`
}

type EthTransaction struct {
	Hash   string `json:"hash" yaml:"hash"`
	From   string `json:"from" yaml:"from"`
	To     string `json:"to,omitempty" yaml:"to,omitempty"`
	Idx    uint32 `json:"index" yaml:"index"`
	Input  string `json:"input,omitempty" yaml:"input,omitempty"`
	Status uint64 `json:"status" yaml:"status"`
}

type EthReceipt struct {
	*types.Receipt
	Timestamp uint64
}

// Succeeded reports whether the transaction's receipt has status 1.
func (b *EthBlock) Succeeded(hash string) (bool, bool) {
	for _, tx := range b.Txs {
		if equalHex(tx.Hash, hash) {
			return tx.Status == types.ReceiptStatusSuccessful, true
		}
	}
	return false, false
}
