package chain

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"metachain-devtest/core/model"
)

// AlithPrivateKey is the well known development key funded in dev chain specs.
const AlithPrivateKey = "0x5fb92d6e98884f76de468fa3f6278f8807c48bebc13595d45af5bdc4da702133"

// KeySigner signs with a secp256k1 key over keccak256, the scheme used by Ethereum style
// accounts on Frontier runtimes.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewKeySigner(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, err
	}
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func Alith() *KeySigner {
	s, err := NewKeySigner(AlithPrivateKey)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) PrivateKey() *ecdsa.PrivateKey {
	return s.key
}

func (s *KeySigner) Sign(payload []byte) ([]byte, error) {
	return crypto.Sign(model.Keccak256(payload), s.key)
}
