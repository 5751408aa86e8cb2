// Package vault stores token material. Backends: the OS keychain (default),
// a plain file for environments without one, and an in-memory fake for
// tests. Keys are deterministic per account so the account manager can find
// and remove secrets without extra bookkeeping.
package vault

// Vault is a secure key/secret store. Per-key operations are atomic;
// implementations must be safe for concurrent use across keys.
type Vault interface {
	Set(key, secret string) error
	// Get returns the secret and whether the key exists. A missing key is
	// not an error.
	Get(key string) (string, bool, error)
	// Delete removes the key. Deleting a missing key is a no-op.
	Delete(key string) error
}

// AccessTokenKey derives the vault key holding an account's access token.
func AccessTokenKey(accountID string) string { return accountID + "/access-token" }

// RefreshTokenKey derives the vault key holding an account's refresh token.
func RefreshTokenKey(accountID string) string { return accountID + "/refresh-token" }
