package crypto

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := make([]byte, AddressLength)
	raw[19] = 0x42
	addr := NewAddress(CafiPrefix, raw)

	decoded, err := DecodeAddress(addr.String())
	require.NoError(t, err)
	require.True(t, decoded.Equal(addr))
	require.Equal(t, CafiPrefix, decoded.Prefix())
	require.False(t, decoded.IsZero())
}

func TestAddressCopiesInput(t *testing.T) {
	raw := make([]byte, AddressLength)
	addr := NewAddress(CafiPrefix, raw)
	raw[0] = 0xFF
	require.True(t, addr.IsZero())
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	_, err := DecodeAddress("cafi1notanaddress")
	require.Error(t, err)
}

func TestModuleAddressDeterministic(t *testing.T) {
	a := ModuleAddress("farming")
	b := ModuleAddress("farming")
	c := ModuleAddress("bank")
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keys", "operator.json")
	require.NoError(t, SaveToKeystore(path, key, "correct horse", LightKeystore))

	loaded, err := LoadFromKeystore(path, "correct horse")
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().String(), loaded.PubKey().Address().String())

	_, err = LoadFromKeystore(path, "wrong")
	require.Error(t, err)
}
