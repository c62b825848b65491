package model

import (
	"strings"
	"testing"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func TestUnsignedExtrinsic(t *testing.T) {
	call := types.Call{CallIndex: types.CallIndex{SectionIndex: 0, MethodIndex: 7}, Args: types.Args{0x08, 0xaa, 0xbb}}

	ext, err := NewUnsignedExtrinsic(call)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x18, 0x04, 0x00, 0x07, 0x08, 0xaa, 0xbb}, ext.Encoded)
	assert.False(t, ext.IsSigned())
	assert.Equal(t, "0x1804000708aabb", ext.Hex())

	sum := blake2b.Sum256(ext.Encoded)
	assert.Equal(t, HexHash(sum[:]), ext.Hash())

	got, err := ext.Call()
	require.NoError(t, err)
	assert.Equal(t, call, got)

	pending, err := Native(ext)
	require.NoError(t, err)
	assert.Equal(t, KindUnsignedExtrinsic, pending.Kind())
	assert.Equal(t, call, pending.Call())
}

func TestSignedExtrinsic(t *testing.T) {
	ext, err := WrapExtrinsicBody([]byte{0x84, 0x01, 0x02})
	require.NoError(t, err)
	assert.True(t, ext.IsSigned())

	_, err = ext.Call()
	assert.ErrorIs(t, err, ErrSignedNoCall)

	pending, err := Native(ext)
	require.NoError(t, err)
	assert.Equal(t, KindSignedExtrinsic, pending.Kind())
	assert.Same(t, ext, pending.Extrinsic())
}

func TestExtrinsicLengthPrefix(t *testing.T) {
	body := make([]byte, 100)
	body[0] = 0x04
	ext, err := WrapExtrinsicBody(body)
	require.NoError(t, err)
	// two byte compact: 100<<2|1
	assert.Equal(t, []byte{0x91, 0x01}, ext.Encoded[:2])

	got, err := ext.Body()
	require.NoError(t, err)
	assert.Equal(t, body, got)

	broken := &Extrinsic{Encoded: []byte{0x10, 0x04}}
	_, err = broken.Body()
	assert.Error(t, err)
	assert.False(t, broken.IsSigned())
}

func TestNewExtrinsicFromHex(t *testing.T) {
	ext, err := NewExtrinsicFromHex("0x0C040001")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0c, 0x04, 0x00, 0x01}, ext.Encoded)

	_, err = NewExtrinsicFromHex("0x")
	assert.ErrorIs(t, err, ErrEmptyExtrinsic)
	_, err = NewExtrinsicFromHex("zz")
	assert.Error(t, err)
}

func TestEmptyExtrinsicBody(t *testing.T) {
	_, err := NewExtrinsicFromHex("0x00")
	assert.ErrorIs(t, err, ErrEmptyExtrinsic)

	empty := &Extrinsic{Encoded: []byte{0x00}}
	_, err = empty.Body()
	assert.ErrorIs(t, err, ErrEmptyExtrinsic)
	assert.False(t, empty.IsSigned())
	_, err = empty.Call()
	assert.ErrorIs(t, err, ErrEmptyExtrinsic)
	_, err = Native(empty)
	assert.ErrorIs(t, err, ErrEmptyExtrinsic)
}

func TestPendingTransactionKinds(t *testing.T) {
	raw := RawEth("0xf86c")
	assert.Equal(t, KindRawEth, raw.Kind())
	assert.Equal(t, "0xf86c", raw.RawPayload())
	assert.Equal(t, "RawEthPayload", raw.Kind().String())
	assert.True(t, strings.HasPrefix(TxKind(9).String(), "TxKind"))
}

func TestBlockFindExtrinsic(t *testing.T) {
	b := &Block{Extrinsics: []*ExtrinsicRef{{Index: 0, Hash: "0xaa"}, {Index: 1, Hash: "0xBB"}}}
	assert.Equal(t, 1, b.FindExtrinsic("0xbb"))
	assert.Equal(t, 0, b.FindExtrinsic("AA"))
	assert.Equal(t, -1, b.FindExtrinsic("0xcc"))
}

func TestPhase(t *testing.T) {
	p := ApplyExtrinsic(2)
	assert.True(t, p.AppliesTo(2))
	assert.False(t, p.AppliesTo(1))
	assert.False(t, p.AppliesTo(-1))
	assert.Equal(t, "ApplyExtrinsic(2)", p.String())

	fin := Phase{Kind: PhaseFinalization}
	assert.False(t, fin.AppliesTo(0))
	assert.Equal(t, "Finalization", fin.String())
}
