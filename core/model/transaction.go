package model

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/ethereum/go-ethereum/common"
)

type TxKind int8

const (
	KindRawEth TxKind = iota
	KindSignedExtrinsic
	KindUnsignedExtrinsic
)

func (k TxKind) String() string {
	switch k {
	case KindRawEth:
		return "RawEthPayload"
	case KindSignedExtrinsic:
		return "SignedExtrinsic"
	case KindUnsignedExtrinsic:
		return "UnsignedExtrinsic"
	}
	return fmt.Sprintf("TxKind(%d)", int8(k))
}

// PendingTransaction is a transaction waiting to be submitted. Build it with RawEth, Signed or
// Unsigned; the zero value is not valid.
type PendingTransaction struct {
	kind      TxKind
	raw       string
	extrinsic *Extrinsic
	call      types.Call
}

func RawEth(raw string) PendingTransaction {
	return PendingTransaction{kind: KindRawEth, raw: raw}
}

func Signed(ext *Extrinsic) PendingTransaction {
	return PendingTransaction{kind: KindSignedExtrinsic, extrinsic: ext}
}

func Unsigned(call types.Call) PendingTransaction {
	return PendingTransaction{kind: KindUnsignedExtrinsic, call: call}
}

// Native picks Signed or Unsigned from the extrinsic's version byte. An unsigned extrinsic
// is reduced to its call.
func Native(ext *Extrinsic) (PendingTransaction, error) {
	if ext.IsSigned() {
		return Signed(ext), nil
	}
	call, err := ext.Call()
	if err != nil {
		return PendingTransaction{}, err
	}
	return Unsigned(call), nil
}

func (p PendingTransaction) Kind() TxKind          { return p.kind }
func (p PendingTransaction) RawPayload() string    { return p.raw }
func (p PendingTransaction) Extrinsic() *Extrinsic { return p.extrinsic }
func (p PendingTransaction) Call() types.Call      { return p.call }

type RecordKind string

const (
	RecordEth    RecordKind = "eth"
	RecordNative RecordKind = "native"
)

type SubmissionRecord struct {
	Kind RecordKind
	Hash string
}

const (
	extrinsicVersion = 4
	signedFlag       = 0x80
)

var (
	ErrEmptyExtrinsic = errors.New("empty extrinsic")
	ErrSignedNoCall   = errors.New("signed extrinsic call cannot be split from its signature")
)

// Extrinsic holds a SCALE encoded extrinsic including its compact length prefix, exactly as
// it appears in a block body.
type Extrinsic struct {
	Encoded []byte
}

func NewExtrinsicFromHex(s string) (*Extrinsic, error) {
	b, err := hex.DecodeString(trimHex(s))
	if err != nil {
		return nil, err
	}
	ext := &Extrinsic{Encoded: b}
	if _, err := ext.Body(); err != nil {
		return nil, err
	}
	return ext, nil
}

// NewUnsignedExtrinsic wraps a call as a bare (unsigned) v4 extrinsic.
func NewUnsignedExtrinsic(call types.Call) (*Extrinsic, error) {
	var body []byte
	body = append(body, extrinsicVersion)
	body = append(body, call.CallIndex.SectionIndex, call.CallIndex.MethodIndex)
	body = append(body, call.Args...)
	return WrapExtrinsicBody(body)
}

// WrapExtrinsicBody prefixes an extrinsic body with its compact length.
func WrapExtrinsicBody(body []byte) (*Extrinsic, error) {
	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)
	if err := enc.EncodeUintCompact(*big.NewInt(int64(len(body)))); err != nil {
		return nil, err
	}
	if err := enc.Write(body); err != nil {
		return nil, err
	}
	return &Extrinsic{Encoded: buf.Bytes()}, nil
}

// Body strips the compact length prefix.
func (e *Extrinsic) Body() ([]byte, error) {
	if len(e.Encoded) == 0 {
		return nil, ErrEmptyExtrinsic
	}
	r := bytes.NewReader(e.Encoded)
	n, err := scale.NewDecoder(r).DecodeUintCompact()
	if err != nil {
		return nil, err
	}
	body := e.Encoded[len(e.Encoded)-r.Len():]
	if !n.IsUint64() || n.Uint64() != uint64(len(body)) {
		return nil, fmt.Errorf("extrinsic length prefix %s does not match body length %d", n, len(body))
	}
	if len(body) == 0 {
		return nil, ErrEmptyExtrinsic
	}
	return body, nil
}

func (e *Extrinsic) IsSigned() bool {
	body, err := e.Body()
	if err != nil {
		return false
	}
	return body[0]&signedFlag != 0
}

// Call returns the call of an unsigned extrinsic.
func (e *Extrinsic) Call() (types.Call, error) {
	body, err := e.Body()
	if err != nil {
		return types.Call{}, err
	}
	if body[0]&signedFlag != 0 {
		return types.Call{}, ErrSignedNoCall
	}
	if len(body) < 3 {
		return types.Call{}, fmt.Errorf("extrinsic body too short: %d bytes", len(body))
	}
	return types.Call{
		CallIndex: types.CallIndex{SectionIndex: body[1], MethodIndex: body[2]},
		Args:      types.Args(body[3:]),
	}, nil
}

func (e *Extrinsic) Hash() string {
	return HexHash(Blake2b256(e.Encoded))
}

func (e *Extrinsic) Hex() string {
	return "0x" + hex.EncodeToString(e.Encoded)
}

// Signer signs extrinsic payloads on behalf of an Ethereum style (20 byte) account.
type Signer interface {
	Address() common.Address
	Sign(payload []byte) ([]byte, error)
}

func trimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
