package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgelabs/forgecred/pkg/config"
	"github.com/forgelabs/forgecred/pkg/store"
)

func TestTokenFromStoredAccount(t *testing.T) {
	path := writeTestConfig(t, nil)
	seedStoredAccount(t, store.Record{
		ID:        "acc-1",
		ServerURL: "https://forge.example.com/org",
		ExpiresAt: futureExpiry(),
	}, "access-1", "refresh-1")

	buf := &bytes.Buffer{}
	root := NewRootCommand(Config{ConfigPath: path, OutputWriter: buf})
	root.SetArgs([]string{"token", "https://forge.example.com/org"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "access-1\n", buf.String())
}

func TestTokenFromStaticConfig(t *testing.T) {
	path := writeTestConfig(t, func(cfg *config.Config) {
		cfg.StaticTokens = []config.StaticToken{
			{Server: "https://legacy.example.com", Token: "legacy-token"},
		}
	})

	buf := &bytes.Buffer{}
	root := NewRootCommand(Config{ConfigPath: path, OutputWriter: buf})
	root.SetArgs([]string{"token", "https://legacy.example.com"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "legacy-token\n", buf.String())
}

func TestTokenResolvesOrganizationName(t *testing.T) {
	path := writeTestConfig(t, func(cfg *config.Config) {
		cfg.Organizations = []config.Organization{
			{Name: "legacy", Server: "https://legacy.example.com"},
		}
		cfg.StaticTokens = []config.StaticToken{
			{Server: "https://legacy.example.com", Token: "legacy-token"},
		}
	})

	buf := &bytes.Buffer{}
	root := NewRootCommand(Config{ConfigPath: path, OutputWriter: buf})
	root.SetArgs([]string{"token", "legacy"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "legacy-token\n", buf.String())
}

func TestTokenFromHelper(t *testing.T) {
	path := writeTestConfig(t, func(cfg *config.Config) {
		cfg.CredentialHelper = []string{"sh", "-c", `printf 'helper-token\n' # "$0"`}
	})

	buf := &bytes.Buffer{}
	root := NewRootCommand(Config{ConfigPath: path, OutputWriter: buf})
	root.SetArgs([]string{"token", "https://helper.example.com"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "helper-token\n", buf.String())
}

func TestTokenNoCredential(t *testing.T) {
	path := writeTestConfig(t, nil)

	root := NewRootCommand(Config{ConfigPath: path, OutputWriter: &bytes.Buffer{}})
	root.SetArgs([]string{"token", "https://nowhere.example.com"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credential available")
}
