package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgelabs/forgecred/pkg/config"
	"github.com/forgelabs/forgecred/pkg/store"
	"github.com/forgelabs/forgecred/pkg/vault"
)

func configPathForTest(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.yaml")
}

// writeTestConfig persists a config using file-backed token storage and
// points the account and secret files at the test's temp dir.
func writeTestConfig(t *testing.T, mutate func(*config.Config)) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FORGECRED_ACCOUNTS", filepath.Join(dir, "accounts.json"))
	t.Setenv("FORGECRED_SECRETS", filepath.Join(dir, "secrets.json"))

	cfg := config.DefaultConfig()
	cfg.Provider = config.Provider{
		Authority: "https://login.example.com/tenant",
		ClientID:  "client-123",
	}
	cfg.Settings.TokenStorage = config.TokenStorageFile
	if mutate != nil {
		mutate(&cfg)
	}
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(path, &cfg))
	return path
}

// seedStoredAccount plants an account record and tokens in the file-backed
// store and vault the CLI will open.
func seedStoredAccount(t *testing.T, record store.Record, access, refresh string) {
	t.Helper()
	st := store.NewFileStore(config.DefaultAccountsPath())
	require.NoError(t, st.Put(record))
	v := vault.NewFileVault(config.DefaultSecretsPath())
	require.NoError(t, v.Set(vault.AccessTokenKey(record.ID), access))
	if refresh != "" {
		require.NoError(t, v.Set(vault.RefreshTokenKey(record.ID), refresh))
	}
}

func futureExpiry() time.Time {
	return time.Now().Add(time.Hour).UTC().Truncate(time.Second)
}
