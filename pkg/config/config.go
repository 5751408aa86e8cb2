// Package config holds the non-secret client configuration: identity
// provider settings, known organizations, static-token fallbacks, and the
// credential-helper command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	VersionV1 = "v1"

	TokenStorageKeychain = "keychain"
	TokenStorageFile     = "file"
)

type Config struct {
	Version          string         `yaml:"version"`
	Provider         Provider       `yaml:"provider,omitempty"`
	Organizations    []Organization `yaml:"organizations,omitempty"`
	StaticTokens     []StaticToken  `yaml:"static-tokens,omitempty"`
	CredentialHelper []string       `yaml:"credential-helper,omitempty"`
	Settings         Settings       `yaml:"settings,omitempty"`
}

// Provider is the OAuth2 device-flow identity provider.
type Provider struct {
	Authority       string   `yaml:"authority"`
	ClientID        string   `yaml:"client-id"`
	Scopes          []string `yaml:"scopes,omitempty"`
	CAFile          string   `yaml:"ca-file,omitempty"`
	InsecureSkipTLS bool     `yaml:"insecure-skip-tls-verify,omitempty"`
}

// Organization names a server the user works against.
type Organization struct {
	Name   string `yaml:"name"`
	Server string `yaml:"server"`
}

// StaticToken is a per-server token with no refresh semantics. Exactly one
// of token, token-env, or token-file should be set.
type StaticToken struct {
	Server    string `yaml:"server"`
	Token     string `yaml:"token,omitempty"`
	TokenEnv  string `yaml:"token-env,omitempty"`
	TokenFile string `yaml:"token-file,omitempty"`
}

type Settings struct {
	OutputFormat string `yaml:"output-format,omitempty"`
	TokenStorage string `yaml:"token-storage,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Version: VersionV1,
		Settings: Settings{
			OutputFormat: "table",
			TokenStorage: TokenStorageKeychain,
		},
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}

// FindOrganization resolves a name or server URL to an organization entry.
func (c *Config) FindOrganization(nameOrServer string) (*Organization, error) {
	for i := range c.Organizations {
		if c.Organizations[i].Name == nameOrServer || c.Organizations[i].Server == nameOrServer {
			return &c.Organizations[i], nil
		}
	}
	return nil, fmt.Errorf("organization not found: %s", nameOrServer)
}

func (c *Config) Validate() error {
	if c.Version == "" {
		return errors.New("config version missing")
	}
	for _, org := range c.Organizations {
		if strings.TrimSpace(org.Name) == "" {
			return errors.New("organization name cannot be empty")
		}
		if strings.TrimSpace(org.Server) == "" {
			return fmt.Errorf("organization %s server is required", org.Name)
		}
	}
	for _, static := range c.StaticTokens {
		if strings.TrimSpace(static.Server) == "" {
			return errors.New("static token server is required")
		}
	}
	switch c.Settings.TokenStorage {
	case "", TokenStorageKeychain, TokenStorageFile:
	default:
		return fmt.Errorf("unknown token storage: %s", c.Settings.TokenStorage)
	}
	return nil
}
