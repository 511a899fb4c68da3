package keyring

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// well known development account public key
const alicePublicKeyHex = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"

func alicePublicKey(t *testing.T) []byte {
	t.Helper()
	publicKey, err := hex.DecodeString(alicePublicKeyHex)
	require.NoError(t, err)
	return publicKey
}

func TestEncodeAddressGenericPrefix(t *testing.T) {
	address, err := EncodeAddress(alicePublicKey(t), 42)
	require.NoError(t, err)
	assert.Equal(t, "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", address)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	publicKey := alicePublicKey(t)

	for _, prefix := range []uint16{0, 2, 42, 69} {
		address, err := EncodeAddress(publicKey, prefix)
		require.NoError(t, err)

		decoded, err := DecodeAddress(address)
		require.NoError(t, err)
		assert.Equal(t, publicKey, decoded)
	}
}

func TestEncodeAddressRejectsBadInput(t *testing.T) {
	_, err := EncodeAddress([]byte{1, 2, 3}, 42)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = EncodeAddress(alicePublicKey(t), 64)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestDecodeAddressRejectsTamperedChecksum(t *testing.T) {
	address, err := EncodeAddress(alicePublicKey(t), 42)
	require.NoError(t, err)

	tampered := []byte(address)
	if tampered[4] == 'A' {
		tampered[4] = 'B'
	} else {
		tampered[4] = 'A'
	}

	_, err = DecodeAddress(string(tampered))
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestFormatAddressSwitchesPrefix(t *testing.T) {
	publicKey := alicePublicKey(t)
	networkAddress, err := EncodeAddress(publicKey, 69)
	require.NoError(t, err)

	generic, err := FormatAddress(networkAddress, false, 69)
	require.NoError(t, err)
	assert.Equal(t, "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", generic)

	backAgain, err := FormatAddress(generic, true, 69)
	require.NoError(t, err)
	assert.Equal(t, networkAddress, backAgain)
}

func TestValidateAddress(t *testing.T) {
	address, err := EncodeAddress(alicePublicKey(t), 42)
	require.NoError(t, err)

	assert.True(t, ValidateAddress(address))
	assert.False(t, ValidateAddress("not an address"))
	assert.False(t, ValidateAddress(""))
}
