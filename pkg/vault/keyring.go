package vault

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// Keyring stores secrets in the operating system keychain.
type Keyring struct {
	service string
}

// NewKeyring returns a Vault backed by the OS keychain under the given
// service name.
func NewKeyring(service string) *Keyring {
	return &Keyring{service: service}
}

func (k *Keyring) Set(key, secret string) error {
	return keyring.Set(k.service, key, secret)
}

func (k *Keyring) Get(key string) (string, bool, error) {
	secret, err := keyring.Get(k.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return secret, true, nil
}

func (k *Keyring) Delete(key string) error {
	err := keyring.Delete(k.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}
