package chain

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"metachain-devtest/core/model"
)

const (
	signedExtrinsicVersion = 0x84
	maxUnhashedPayload     = 256
)

var ErrUnsupportedExtension = errors.New("unsupported signed extension")

// SigningContext is the chain state a signature commits to.
type SigningContext struct {
	Nonce              uint64
	Tip                uint64
	SpecVersion        uint32
	TransactionVersion uint32
	GenesisHash        common.Hash
}

// SignExtrinsic builds a v4 signed extrinsic for call. The signed payload is call ++ extra ++
// additional, blake2b hashed when longer than 256 bytes.
func (r *Registry) SignExtrinsic(call types.Call, signer model.Signer, sc SigningContext) (*model.Extrinsic, error) {
	callBytes := encodeCall(call)
	extra, additional, err := r.encodeExtensions(sc)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, 0, len(callBytes)+len(extra)+len(additional))
	payload = append(payload, callBytes...)
	payload = append(payload, extra...)
	payload = append(payload, additional...)
	if len(payload) > maxUnhashedPayload {
		payload = model.Blake2b256(payload)
	}
	sig, err := signer.Sign(payload)
	if err != nil {
		return nil, errors.Wrap(err, "sign extrinsic payload")
	}

	address, err := r.encodeAddress(signer.Address())
	if err != nil {
		return nil, err
	}
	signature, err := r.encodeSignature(sig)
	if err != nil {
		return nil, err
	}

	body := []byte{signedExtrinsicVersion}
	body = append(body, address...)
	body = append(body, signature...)
	body = append(body, extra...)
	body = append(body, callBytes...)
	return model.WrapExtrinsicBody(body)
}

func encodeCall(call types.Call) []byte {
	b := []byte{call.CallIndex.SectionIndex, call.CallIndex.MethodIndex}
	return append(b, call.Args...)
}

func (r *Registry) encodeExtensions(sc SigningContext) ([]byte, []byte, error) {
	var extra, additional bytes.Buffer
	extraEnc := scale.NewEncoder(&extra)
	for _, ext := range r.meta.AsMetadataV14.Extrinsic.SignedExtensions {
		var err error
		identifier := string(ext.Identifier)
		switch identifier {
		case "CheckNonZeroSender", "CheckWeight":
		case "CheckSpecVersion":
			additional.Write(u32(sc.SpecVersion))
		case "CheckTxVersion":
			additional.Write(u32(sc.TransactionVersion))
		case "CheckGenesis":
			additional.Write(sc.GenesisHash.Bytes())
		case "CheckMortality", "CheckEra":
			// immortal era; the checkpoint block is genesis
			extra.WriteByte(0)
			additional.Write(sc.GenesisHash.Bytes())
		case "CheckNonce":
			err = extraEnc.EncodeUintCompact(*new(big.Int).SetUint64(sc.Nonce))
		case "ChargeTransactionPayment":
			err = extraEnc.EncodeUintCompact(*new(big.Int).SetUint64(sc.Tip))
		case "ChargeAssetTxPayment":
			if err = extraEnc.EncodeUintCompact(*new(big.Int).SetUint64(sc.Tip)); err == nil {
				extra.WriteByte(0)
			}
		case "CheckMetadataHash":
			extra.WriteByte(0)
			additional.WriteByte(0)
		default:
			if !r.isUnit(ext.Type.Int64()) || !r.isUnit(ext.AdditionalSigned.Int64()) {
				return nil, nil, errors.Wrap(ErrUnsupportedExtension, identifier)
			}
		}
		if err != nil {
			return nil, nil, errors.WithMessage(err, identifier)
		}
	}
	return extra.Bytes(), additional.Bytes(), nil
}

// encodeAddress supports raw 20 byte account ids and MultiAddress-like enums with an
// Address20 variant.
func (r *Registry) encodeAddress(addr common.Address) ([]byte, error) {
	def, err := r.extrinsicParamType("Address")
	if err != nil || def == nil {
		return addr.Bytes(), err
	}
	if !def.Def.IsVariant {
		return addr.Bytes(), nil
	}
	v, ok := variantByName(def, "Address20")
	if !ok {
		return nil, fmt.Errorf("address type %v cannot hold a 20 byte account", def.Path)
	}
	return append([]byte{byte(v.Index)}, addr.Bytes()...), nil
}

func (r *Registry) encodeSignature(sig []byte) ([]byte, error) {
	if len(sig) != 65 {
		return nil, fmt.Errorf("expected 65 byte ecdsa signature, got %d", len(sig))
	}
	def, err := r.extrinsicParamType("Signature")
	if err != nil || def == nil {
		return sig, err
	}
	if !def.Def.IsVariant {
		return sig, nil
	}
	v, ok := variantByName(def, "Ecdsa")
	if !ok {
		return nil, fmt.Errorf("signature type %v has no Ecdsa variant", def.Path)
	}
	return append([]byte{byte(v.Index)}, sig...), nil
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
