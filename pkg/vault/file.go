package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type secretsFile struct {
	Secrets map[string]string `json:"secrets"`
}

// FileVault stores secrets in a 0600 JSON file. It is the fallback for
// headless environments without a keychain; writes are atomic via temp file
// plus rename.
type FileVault struct {
	path string
	mu   sync.Mutex
}

func NewFileVault(path string) *FileVault {
	return &FileVault{path: path}
}

func (v *FileVault) load() (*secretsFile, error) {
	content, err := os.ReadFile(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &secretsFile{Secrets: map[string]string{}}, nil
		}
		return nil, err
	}
	var file secretsFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse secret file: %w", err)
	}
	if file.Secrets == nil {
		file.Secrets = map[string]string{}
	}
	return &file, nil
}

func (v *FileVault) save(file *secretsFile) error {
	if err := os.MkdirAll(filepath.Dir(v.path), 0o700); err != nil {
		return fmt.Errorf("failed to create secret dir: %w", err)
	}
	content, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}
	tmp := v.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o600); err != nil {
		return fmt.Errorf("failed to write secret file: %w", err)
	}
	if err := os.Rename(tmp, v.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace secret file: %w", err)
	}
	return nil
}

func (v *FileVault) Set(key, secret string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	file, err := v.load()
	if err != nil {
		return err
	}
	file.Secrets[key] = secret
	return v.save(file)
}

func (v *FileVault) Get(key string) (string, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	file, err := v.load()
	if err != nil {
		return "", false, err
	}
	secret, ok := file.Secrets[key]
	return secret, ok, nil
}

func (v *FileVault) Delete(key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	file, err := v.load()
	if err != nil {
		return err
	}
	if _, ok := file.Secrets[key]; !ok {
		return nil
	}
	delete(file.Secrets, key)
	return v.save(file)
}
