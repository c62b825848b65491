package model

import (
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

func Keccak256(data []byte) []byte {
	hasher := sha3.NewLegacyKeccak256()

	hasher.Write(data)

	return hasher.Sum(nil)
}

func Blake2b256(data []byte) []byte {
	hash := blake2b.Sum256(data)
	return hash[:]
}

// HexHash renders a hash the way the node RPC does: lower-case with a 0x prefix.
func HexHash(hash []byte) string {
	return fmt.Sprintf("0x%x", hash)
}
