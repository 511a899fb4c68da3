package keyring

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	// hex encoding of the "SS58PRE" checksum preamble
	ss58Preamble = "53533538505245"

	// generic substrate prefix used when formatting without the network prefix
	genericPrefix uint16 = 42

	publicKeyLen      = 32
	checksumLen       = 2
	simplePrefixLimit = 64
)

// ErrInvalidAddress is raised when an address cannot be decoded back to a
// public key
var ErrInvalidAddress = errors.New("invalid address")

// EncodeAddress encodes a raw public key into an ss58 address under the
// given network prefix
func EncodeAddress(publicKey []byte, prefix uint16) (string, error) {
	if len(publicKey) != publicKeyLen {
		return "", fmt.Errorf("%w: public key must be %d bytes", ErrInvalidAddress, publicKeyLen)
	}
	if prefix >= simplePrefixLimit {
		return "", fmt.Errorf("%w: unsupported network prefix %d", ErrInvalidAddress, prefix)
	}

	prefixHex := fmt.Sprintf("%02x", prefix)
	pubHex := hex.EncodeToString(publicKey)
	checksumBytes, err := hex.DecodeString(ss58Preamble + prefixHex + pubHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	checksum := blake2b.Sum512(checksumBytes)
	checksumEnd := hex.EncodeToString(checksum[:checksumLen])

	finalBytes, err := hex.DecodeString(prefixHex + pubHex + checksumEnd)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return base58.Encode(finalBytes), nil
}

// DecodeAddress decodes an ss58 address into its raw public key, verifying
// the embedded checksum
func DecodeAddress(address string) ([]byte, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != 1+publicKeyLen+checksumLen {
		return nil, fmt.Errorf("%w: unexpected length %d", ErrInvalidAddress, len(raw))
	}

	preamble, err := hex.DecodeString(ss58Preamble)
	if err != nil {
		return nil, err
	}
	checksumBytes := append(preamble, raw[:1+publicKeyLen]...)
	checksum := blake2b.Sum512(checksumBytes)
	if checksum[0] != raw[1+publicKeyLen] || checksum[1] != raw[1+publicKeyLen+1] {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}

	publicKey := make([]byte, publicKeyLen)
	copy(publicKey, raw[1:1+publicKeyLen])
	return publicKey, nil
}

// FormatAddress decodes an address to its raw public key and re-encodes it,
// with the network prefix or with the generic substrate one
func FormatAddress(address string, withNetworkPrefix bool, networkPrefix uint16) (string, error) {
	publicKey, err := DecodeAddress(address)
	if err != nil {
		return "", err
	}
	prefix := genericPrefix
	if withNetworkPrefix {
		prefix = networkPrefix
	}
	return EncodeAddress(publicKey, prefix)
}

// ValidateAddress reports whether an address decodes cleanly. It never fails.
func ValidateAddress(address string) bool {
	_, err := DecodeAddress(address)
	return err == nil
}
