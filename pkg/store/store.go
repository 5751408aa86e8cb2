// Package store persists the non-secret account records. Token material
// never lives here; it belongs to the vault.
package store

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Record is the durable metadata for one registered account.
type Record struct {
	ID            string    `json:"id"`
	ServerURL     string    `json:"server_url"`
	DisplayName   string    `json:"display_name,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
	LastRefreshed time.Time `json:"last_refreshed,omitempty"`
}

// Store is the durable record store. Implementations must be safe for
// concurrent use.
type Store interface {
	List() ([]Record, error)
	Get(id string) (Record, bool, error)
	Put(record Record) error
	Delete(id string) error
}

// NormalizeServerURL canonicalizes a server URL for record matching:
// lowercased scheme and host, no trailing slash.
func NormalizeServerURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("server URL is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errors.New("server URL must include scheme and host")
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.Fragment = ""
	parsed.RawQuery = ""
	return parsed.String(), nil
}
