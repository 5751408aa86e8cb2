// Package account manages the registered accounts: sign-in via the device
// flow, derived credential health, and serialized token refresh.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"golang.org/x/oauth2"

	"github.com/forgelabs/forgecred/pkg/auth"
	"github.com/forgelabs/forgecred/pkg/metrics"
	"github.com/forgelabs/forgecred/pkg/store"
	"github.com/forgelabs/forgecred/pkg/vault"
)

// Tokens expiring within this window are refreshed eagerly so callers never
// receive a token that dies mid-request.
const refreshSlack = 2 * time.Minute

// AuthState is the derived health of an account's credentials.
type AuthState string

const (
	// StateUnknown: no grant has completed yet.
	StateUnknown AuthState = "unknown"
	// StateValid: the access token has not expired.
	StateValid AuthState = "valid"
	// StateExpired: expired, but a refresh token exists and has not been
	// rejected.
	StateExpired AuthState = "expired"
	// StateRevoked: the provider rejected the refresh token, or the account
	// is expired with no refresh token. Only a re-login helps.
	StateRevoked AuthState = "revoked"
)

var (
	// ErrNotFound indicates no account exists with the given id.
	ErrNotFound = errors.New("account not found")
	// ErrReauthorizationRequired indicates the stored credentials are beyond
	// automatic repair; the user must sign in again.
	ErrReauthorizationRequired = errors.New("reauthorization required")
	// ErrTransientRefresh indicates a refresh failed without changing any
	// state; callers may retry later.
	ErrTransientRefresh = errors.New("token refresh temporarily failed")
)

// LoginError is the typed failure of a sign-in attempt that ended in a
// terminal state other than granted.
type LoginError struct {
	Status auth.SessionStatus
	Err    error
}

func (e *LoginError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("login %s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("login %s", e.Status)
}

func (e *LoginError) Unwrap() error { return e.Err }

// TokenClient is the provider surface the manager needs: the device flow for
// sign-in plus the refresh exchange.
type TokenClient interface {
	auth.DeviceFlowClient
	Refresh(ctx context.Context, refreshToken string, scopes []string) (*oauth2.Token, error)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock used for expiry decisions.
func WithClock(clock auth.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithLogger attaches a logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(m *Manager) { m.log = log }
}

// WithScopes sets the scopes requested on sign-in and refresh.
func WithScopes(scopes []string) Option {
	return func(m *Manager) { m.scopes = scopes }
}

// WithSessionOptions appends options to every device session the manager
// starts.
func WithSessionOptions(opts ...auth.SessionOption) Option {
	return func(m *Manager) { m.sessionOpts = opts }
}

// Manager owns the account registry. Refreshes for one account are strictly
// serialized through a per-account mutex created lazily and kept for the
// lifetime of the process; different accounts proceed in parallel.
type Manager struct {
	store       store.Store
	vault       vault.Vault
	tokens      TokenClient
	clock       auth.Clock
	log         *zap.SugaredLogger
	scopes      []string
	sessionOpts []auth.SessionOption

	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	revoked map[string]bool
}

// NewManager wires the account manager to its collaborators.
func NewManager(st store.Store, v vault.Vault, tokens TokenClient, opts ...Option) *Manager {
	m := &Manager{
		store:   st,
		vault:   v,
		tokens:  tokens,
		clock:   auth.SystemClock(),
		log:     zap.NewNop().Sugar(),
		locks:   map[string]*sync.Mutex{},
		revoked: map[string]bool{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddAccount runs a device-authorization sign-in for the given server and,
// on grant, persists the record and token set. Callbacks surface the user
// code to whatever UI is driving the login. Nothing is persisted on any
// other terminal state.
func (m *Manager) AddAccount(ctx context.Context, serverURL, displayName string, cb auth.Callbacks) (store.Record, error) {
	normalized, err := store.NormalizeServerURL(serverURL)
	if err != nil {
		return store.Record{}, err
	}
	opts := append([]auth.SessionOption{
		auth.WithScopes(m.scopes),
		auth.WithClock(m.clock),
		auth.WithLogger(m.log),
		auth.WithCallbacks(cb),
	}, m.sessionOpts...)
	session := auth.StartSession(ctx, m.tokens, opts...)
	status, err := session.Wait(ctx)
	if status != auth.StatusGranted {
		session.Cancel()
		return store.Record{}, &LoginError{Status: status, Err: err}
	}
	token := session.Token()

	record := store.Record{
		ID:            uuid.NewString(),
		ServerURL:     normalized,
		DisplayName:   displayName,
		ExpiresAt:     m.tokenExpiry(token),
		LastRefreshed: m.clock.Now(),
	}
	if record.DisplayName == "" {
		record.DisplayName = normalized
	}
	if err := m.vault.Set(vault.AccessTokenKey(record.ID), token.AccessToken); err != nil {
		return store.Record{}, fmt.Errorf("failed to store access token: %w", err)
	}
	if token.RefreshToken != "" {
		if err := m.vault.Set(vault.RefreshTokenKey(record.ID), token.RefreshToken); err != nil {
			return store.Record{}, fmt.Errorf("failed to store refresh token: %w", err)
		}
	}
	if err := m.store.Put(record); err != nil {
		// The vault must never hold secrets no record references.
		_ = m.vault.Delete(vault.AccessTokenKey(record.ID))
		_ = m.vault.Delete(vault.RefreshTokenKey(record.ID))
		return store.Record{}, fmt.Errorf("failed to persist account: %w", err)
	}
	m.clearRevoked(record.ID)
	m.log.Infow("account added", "account", record.ID, "server", record.ServerURL)
	return record, nil
}

// RemoveAccount deletes the record and both vault entries. Idempotent.
func (m *Manager) RemoveAccount(id string) error {
	if err := m.vault.Delete(vault.AccessTokenKey(id)); err != nil {
		return fmt.Errorf("failed to delete access token: %w", err)
	}
	if err := m.vault.Delete(vault.RefreshTokenKey(id)); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	if err := m.store.Delete(id); err != nil {
		return fmt.Errorf("failed to delete account record: %w", err)
	}
	m.clearRevoked(id)
	m.log.Infow("account removed", "account", id)
	return nil
}

// ReLogin removes the account and signs in again against the same server,
// surfaced to callers as one operation.
func (m *Manager) ReLogin(ctx context.Context, id string, cb auth.Callbacks) (store.Record, error) {
	record, ok, err := m.store.Get(id)
	if err != nil {
		return store.Record{}, err
	}
	if !ok {
		return store.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := m.RemoveAccount(id); err != nil {
		return store.Record{}, err
	}
	return m.AddAccount(ctx, record.ServerURL, record.DisplayName, cb)
}

// List returns all account records, sorted by server URL.
func (m *Manager) List() ([]store.Record, error) {
	records, err := m.store.List()
	if err != nil {
		return nil, err
	}
	slices.SortFunc(records, func(a, b store.Record) int {
		return strings.Compare(a.ServerURL, b.ServerURL)
	})
	return records, nil
}

// FindByServer returns the account registered for the given server URL.
func (m *Manager) FindByServer(serverURL string) (store.Record, bool, error) {
	normalized, err := store.NormalizeServerURL(serverURL)
	if err != nil {
		return store.Record{}, false, err
	}
	records, err := m.store.List()
	if err != nil {
		return store.Record{}, false, err
	}
	for _, record := range records {
		if record.ServerURL == normalized {
			return record, true, nil
		}
	}
	return store.Record{}, false, nil
}

// AuthState derives the credential health of an account. No network I/O;
// deterministic given a fixed clock.
func (m *Manager) AuthState(id string) (AuthState, error) {
	record, ok, err := m.store.Get(id)
	if err != nil {
		return StateUnknown, err
	}
	if !ok {
		return StateUnknown, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	_, hasRefresh, err := m.vault.Get(vault.RefreshTokenKey(id))
	if err != nil {
		return StateUnknown, err
	}
	return m.deriveState(record, hasRefresh), nil
}

func (m *Manager) deriveState(record store.Record, hasRefresh bool) AuthState {
	if record.ExpiresAt.IsZero() {
		return StateUnknown
	}
	if m.isRevoked(record.ID) {
		return StateRevoked
	}
	if m.clock.Now().Before(record.ExpiresAt) {
		return StateValid
	}
	if !hasRefresh {
		return StateRevoked
	}
	return StateExpired
}

// EnsureFreshToken returns a usable token set for the account, refreshing
// through the provider when the stored one is expired or about to expire.
// Concurrent calls for the same account result in exactly one refresh; the
// freshness re-check happens under the per-account lock so waiters observe
// the first caller's result.
func (m *Manager) EnsureFreshToken(ctx context.Context, id string) (*oauth2.Token, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	record, ok, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	access, hasAccess, err := m.vault.Get(vault.AccessTokenKey(id))
	if err != nil {
		return nil, err
	}
	refresh, hasRefresh, err := m.vault.Get(vault.RefreshTokenKey(id))
	if err != nil {
		return nil, err
	}

	switch state := m.deriveState(record, hasRefresh); state {
	case StateRevoked, StateUnknown:
		return nil, fmt.Errorf("account %s is %s: %w", id, state, ErrReauthorizationRequired)
	case StateValid:
		fresh := record.ExpiresAt.After(m.clock.Now().Add(refreshSlack))
		if hasAccess && (fresh || !hasRefresh) {
			return storedToken(access, refresh, record.ExpiresAt), nil
		}
	}

	if !hasRefresh {
		return nil, fmt.Errorf("account %s has no refresh token: %w", id, ErrReauthorizationRequired)
	}

	token, err := m.tokens.Refresh(ctx, refresh, m.scopes)
	if err != nil {
		var refreshErr *auth.RefreshError
		if errors.As(err, &refreshErr) && !refreshErr.Recoverable {
			m.markRevoked(id)
			metrics.TokenRefreshes.WithLabelValues("rejected").Inc()
			m.log.Warnw("refresh token rejected, account requires re-login", "account", id, "error", err)
			return nil, fmt.Errorf("refresh rejected for account %s: %w", id, ErrReauthorizationRequired)
		}
		metrics.TokenRefreshes.WithLabelValues("transient_failure").Inc()
		m.log.Warnw("token refresh failed, will retry later", "account", id, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrTransientRefresh, err)
	}

	// Some providers omit the refresh token on renewal; keep the old one.
	if token.RefreshToken == "" {
		token.RefreshToken = refresh
	}
	expiry := m.tokenExpiry(token)
	// Expiry never moves backwards across successful refreshes.
	if expiry.Before(record.ExpiresAt) {
		expiry = record.ExpiresAt
	}
	token.Expiry = expiry

	if err := m.vault.Set(vault.AccessTokenKey(id), token.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}
	if err := m.vault.Set(vault.RefreshTokenKey(id), token.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	record.ExpiresAt = expiry
	record.LastRefreshed = m.clock.Now()
	if err := m.store.Put(record); err != nil {
		return nil, fmt.Errorf("failed to persist account: %w", err)
	}
	m.clearRevoked(id)
	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	m.log.Infow("token refreshed", "account", id, "expires_at", expiry)
	return token, nil
}

func storedToken(access, refresh string, expiry time.Time) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       expiry,
	}
}

// tokenExpiry falls back to the access token's JWT exp claim when the
// provider response carried no expires_in.
func (m *Manager) tokenExpiry(token *oauth2.Token) time.Time {
	if !token.Expiry.IsZero() {
		return token.Expiry
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token.AccessToken, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return time.Time{}
}

func (m *Manager) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}

func (m *Manager) isRevoked(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[id]
}

func (m *Manager) markRevoked(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[id] = true
}

func (m *Manager) clearRevoked(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.revoked, id)
}
