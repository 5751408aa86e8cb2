package vault

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyDerivation(t *testing.T) {
	require.Equal(t, "abc/access-token", AccessTokenKey("abc"))
	require.Equal(t, "abc/refresh-token", RefreshTokenKey("abc"))
}

func TestVaultBackends(t *testing.T) {
	backends := map[string]Vault{
		"memory": NewMemory(),
		"file":   NewFileVault(filepath.Join(t.TempDir(), "secrets.json")),
	}
	for name, v := range backends {
		t.Run(name, func(t *testing.T) {
			_, ok, err := v.Get("missing")
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, v.Set("k", "s3cret"))
			secret, ok, err := v.Get("k")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "s3cret", secret)

			require.NoError(t, v.Set("k", "rotated"))
			secret, _, err = v.Get("k")
			require.NoError(t, err)
			require.Equal(t, "rotated", secret)

			require.NoError(t, v.Delete("k"))
			require.NoError(t, v.Delete("k"))
			_, ok, err = v.Get("k")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestKeyringUsesMockInTests(t *testing.T) {
	// go-keyring ships a process-local mock so tests never touch the real
	// OS keychain.
	keyring.MockInit()
	v := NewKeyring("forgecred-test")

	require.NoError(t, v.Set("k", "s3cret"))
	secret, ok, err := v.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "s3cret", secret)

	require.NoError(t, v.Delete("k"))
	_, ok, err = v.Get("k")
	require.NoError(t, err)
	require.False(t, ok)
}
