package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgelabs/forgecred/pkg/config"
	"github.com/forgelabs/forgecred/pkg/forgecred/output"
	"github.com/forgelabs/forgecred/pkg/store"
	"github.com/forgelabs/forgecred/pkg/vault"
)

func TestAccountListTable(t *testing.T) {
	path := writeTestConfig(t, nil)
	seedStoredAccount(t, store.Record{
		ID:          "acc-1",
		ServerURL:   "https://forge.example.com/org",
		DisplayName: "Example",
		ExpiresAt:   futureExpiry(),
	}, "access-1", "refresh-1")

	buf := &bytes.Buffer{}
	root := NewRootCommand(Config{ConfigPath: path, OutputWriter: buf})
	root.SetArgs([]string{"account", "list"})
	require.NoError(t, root.Execute())

	out := buf.String()
	assert.Contains(t, out, "SERVER")
	assert.Contains(t, out, "acc-1")
	assert.Contains(t, out, "https://forge.example.com/org")
	assert.Contains(t, out, "valid")
}

func TestAccountListJSON(t *testing.T) {
	path := writeTestConfig(t, nil)
	seedStoredAccount(t, store.Record{
		ID:        "acc-1",
		ServerURL: "https://forge.example.com/org",
		ExpiresAt: futureExpiry(),
	}, "access-1", "refresh-1")

	buf := &bytes.Buffer{}
	root := NewRootCommand(Config{ConfigPath: path, OutputWriter: buf})
	root.SetArgs([]string{"account", "list", "-o", "json"})
	require.NoError(t, root.Execute())

	var rows []output.AccountRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "acc-1", rows[0].Record.ID)
	assert.Equal(t, "valid", string(rows[0].State))
}

func TestAccountStatus(t *testing.T) {
	path := writeTestConfig(t, nil)
	seedStoredAccount(t, store.Record{
		ID:        "acc-1",
		ServerURL: "https://forge.example.com/org",
		ExpiresAt: futureExpiry(),
	}, "access-1", "refresh-1")

	buf := &bytes.Buffer{}
	root := NewRootCommand(Config{ConfigPath: path, OutputWriter: buf})
	root.SetArgs([]string{"account", "status", "acc-1"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "valid\n", buf.String())
}

func TestAccountStatusUnknownAccount(t *testing.T) {
	path := writeTestConfig(t, nil)

	root := NewRootCommand(Config{ConfigPath: path, OutputWriter: &bytes.Buffer{}})
	root.SetArgs([]string{"account", "status", "missing"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account not found")
}

func TestAccountRemove(t *testing.T) {
	path := writeTestConfig(t, nil)
	seedStoredAccount(t, store.Record{
		ID:        "acc-1",
		ServerURL: "https://forge.example.com/org",
		ExpiresAt: futureExpiry(),
	}, "access-1", "refresh-1")

	buf := &bytes.Buffer{}
	root := NewRootCommand(Config{ConfigPath: path, OutputWriter: buf})
	root.SetArgs([]string{"account", "remove", "acc-1"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Removed account acc-1")

	st := store.NewFileStore(config.DefaultAccountsPath())
	_, ok, err := st.Get("acc-1")
	require.NoError(t, err)
	assert.False(t, ok)

	v := vault.NewFileVault(config.DefaultSecretsPath())
	_, ok, err = v.Get(vault.AccessTokenKey("acc-1"))
	require.NoError(t, err)
	assert.False(t, ok)
}
