package signer

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"go-subtx/internal/keyring"

	"golang.org/x/crypto/blake2b"
)

const (
	// signed extrinsic, transaction version 4
	extrinsicVersion = 0x84
	// MultiAddress::Id discriminant
	multiAddressId = 0x00
	// MultiSignature::Sr25519 discriminant
	sigTypeSr25519 = 0x01
	// immortal era
	eraImmortal = 0x00

	// payloads longer than this are signed through their blake2b hash
	payloadHashThreshold = 256
)

// ErrNoSigner is raised when an account has neither an unlocked pair nor an
// attached external signer
var ErrNoSigner = errors.New("account has no usable signer")

type (
	// Context carries the chain constants mixed into every signing payload
	Context struct {
		GenesisHash        string
		SpecVersion        uint32
		TransactionVersion uint32
	}

	// ExtrinsicSigner assembles and signs version 4 extrinsics
	ExtrinsicSigner struct {
		context func() Context
	}
)

func New(context func() Context) *ExtrinsicSigner {
	return &ExtrinsicSigner{context: context}
}

// Sign builds the signing payload for a call, signs it with the account and
// assembles the hex encoded signed extrinsic
func (s *ExtrinsicSigner) Sign(callHex string, account keyring.Account, nonce uint64) (string, error) {
	call, err := hex.DecodeString(strings.TrimPrefix(callHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid call encoding: %w", err)
	}

	ctx := s.context()
	genesis, err := hex.DecodeString(strings.TrimPrefix(ctx.GenesisHash, "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid genesis hash: %w", err)
	}

	// extra: era ++ compact nonce ++ compact tip
	extra := []byte{eraImmortal}
	extra = append(extra, CompactUint(nonce)...)
	extra = append(extra, CompactUint(0)...)

	// additional: spec version ++ tx version ++ genesis hash ++ era anchor
	additional := make([]byte, 8)
	binary.LittleEndian.PutUint32(additional[0:4], ctx.SpecVersion)
	binary.LittleEndian.PutUint32(additional[4:8], ctx.TransactionVersion)
	additional = append(additional, genesis...)
	additional = append(additional, genesis...)

	payload := append(append(append([]byte{}, call...), extra...), additional...)
	if len(payload) > payloadHashThreshold {
		hashed := blake2b.Sum256(payload)
		payload = hashed[:]
	}

	signature, publicKey, err := signWith(account, payload)
	if err != nil {
		return "", err
	}

	body := []byte{extrinsicVersion, multiAddressId}
	body = append(body, publicKey...)
	body = append(body, sigTypeSr25519)
	body = append(body, signature...)
	body = append(body, extra...)
	body = append(body, call...)

	extrinsic := append(CompactUint(uint64(len(body))), body...)
	return "0x" + hex.EncodeToString(extrinsic), nil
}

func signWith(account keyring.Account, payload []byte) (signature, publicKey []byte, err error) {
	if account.Pair != nil {
		signature, err = account.Pair.Sign(payload)
		if err != nil {
			return nil, nil, err
		}
		return signature, account.Pair.PublicKey(), nil
	}
	if account.External != nil {
		signature, err = account.External.SignPayload(payload, account.Address)
		if err != nil {
			return nil, nil, err
		}
		publicKey, err = keyring.DecodeAddress(account.Address)
		if err != nil {
			return nil, nil, err
		}
		return signature, publicKey, nil
	}
	return nil, nil, ErrNoSigner
}

// TxHash computes the transaction hash of a hex encoded signed extrinsic
func TxHash(signedHex string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(signedHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid extrinsic encoding: %w", err)
	}
	sum := blake2b.Sum256(raw)
	return "0x" + hex.EncodeToString(sum[:]), nil
}

// CompactUint encodes an unsigned integer in SCALE compact form
func CompactUint(value uint64) []byte {
	switch {
	case value < 1<<6:
		return []byte{byte(value) << 2}
	case value < 1<<14:
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(value)<<2|0b01)
		return buf
	case value < 1<<30:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(value)<<2|0b10)
		return buf
	default:
		data := make([]byte, 8)
		binary.LittleEndian.PutUint64(data, value)
		for len(data) > 4 && data[len(data)-1] == 0 {
			data = data[:len(data)-1]
		}
		out := []byte{byte(len(data)-4)<<2 | 0b11}
		return append(out, data...)
	}
}
