package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDirName = "forgecred"
	defaultConfigFile    = "config.yaml"
	defaultAccountsFile  = "accounts.json"
	defaultSecretsFile   = "secrets.json"
)

func DefaultConfigPath() string {
	if env := os.Getenv("FORGECRED_CONFIG"); env != "" {
		return env
	}
	return defaultPath(defaultConfigFile)
}

// DefaultAccountsPath is where the non-secret account records live.
func DefaultAccountsPath() string {
	if env := os.Getenv("FORGECRED_ACCOUNTS"); env != "" {
		return env
	}
	return defaultPath(defaultAccountsFile)
}

// DefaultSecretsPath is the file-vault location used when no keychain is
// available.
func DefaultSecretsPath() string {
	if env := os.Getenv("FORGECRED_SECRETS"); env != "" {
		return env
	}
	return defaultPath(defaultSecretsFile)
}

func defaultPath(file string) string {
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, file)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+defaultConfigDirName, file)
}
