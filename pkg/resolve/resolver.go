// Package resolve is the single entry point other subsystems use to obtain
// a bearer token for a server: registered account first, then statically
// configured tokens, then an external credential helper.
package resolve

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/forgelabs/forgecred/pkg/metrics"
	"github.com/forgelabs/forgecred/pkg/store"
)

// ErrNoCredential indicates no chain entry produced a token.
var ErrNoCredential = errors.New("no credential available")

// Accounts is the account-manager surface the resolver consumes.
type Accounts interface {
	FindByServer(serverURL string) (store.Record, bool, error)
	EnsureFreshToken(ctx context.Context, id string) (*oauth2.Token, error)
}

// StaticToken is a per-server token configured out of band. The token value
// may be given literally, via an environment variable, or in a file.
type StaticToken struct {
	Server    string
	Token     string
	TokenEnv  string
	TokenFile string
}

func (s StaticToken) value() (string, error) {
	if s.Token != "" {
		return s.Token, nil
	}
	if s.TokenEnv != "" {
		value := strings.TrimSpace(os.Getenv(s.TokenEnv))
		if value == "" {
			return "", fmt.Errorf("static token env var not set: %s", s.TokenEnv)
		}
		return value, nil
	}
	if s.TokenFile != "" {
		content, err := os.ReadFile(s.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read static token file: %w", err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return "", nil
}

// Helper looks up a credential from an external source. An empty string with
// a nil error means the helper has nothing for this server.
type Helper interface {
	Lookup(ctx context.Context, serverURL string) (string, error)
}

// CommandHelper shells out to a configured credential-helper command,
// passing the server URL as the final argument and reading the secret from
// the first line of stdout.
type CommandHelper struct {
	Command []string
}

func (h CommandHelper) Lookup(ctx context.Context, serverURL string) (string, error) {
	if len(h.Command) == 0 {
		return "", nil
	}
	args := append(h.Command[1:], serverURL)
	cmd := exec.CommandContext(ctx, h.Command[0], args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("credential helper failed: %w", err)
	}
	scanner := bufio.NewScanner(&stdout)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	return "", nil
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithStaticTokens configures the static-token fallback entries.
func WithStaticTokens(tokens []StaticToken) Option {
	return func(r *Resolver) { r.static = tokens }
}

// WithHelper configures the external credential helper.
func WithHelper(helper Helper) Option {
	return func(r *Resolver) { r.helper = helper }
}

// WithLogger attaches a logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(r *Resolver) { r.log = log }
}

// Resolver walks the credential priority chain; first success wins.
type Resolver struct {
	accounts Accounts
	static   []StaticToken
	helper   Helper
	log      *zap.SugaredLogger
}

// NewResolver builds a resolver over the given account manager.
func NewResolver(accounts Accounts, opts ...Option) *Resolver {
	r := &Resolver{
		accounts: accounts,
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns a bearer token for the server. Account credentials are
// refreshed as needed; static tokens and helper results are passed through
// untouched, with no expiry semantics (a 401 from the actual API is the
// caller's concern).
func (r *Resolver) Resolve(ctx context.Context, serverURL string) (string, error) {
	normalized, err := store.NormalizeServerURL(serverURL)
	if err != nil {
		return "", err
	}

	record, ok, err := r.accounts.FindByServer(normalized)
	if err != nil {
		return "", err
	}
	if ok {
		token, err := r.accounts.EnsureFreshToken(ctx, record.ID)
		if err != nil {
			// A broken account does not shadow the fallbacks, but the
			// failure is worth surfacing if nothing else matches.
			r.log.Warnw("account credential unusable", "account", record.ID, "server", normalized, "error", err)
		} else {
			metrics.ResolverLookups.WithLabelValues("account").Inc()
			return token.AccessToken, nil
		}
	}

	for _, static := range r.static {
		staticServer, err := store.NormalizeServerURL(static.Server)
		if err != nil || staticServer != normalized {
			continue
		}
		value, err := static.value()
		if err != nil {
			return "", err
		}
		if value != "" {
			metrics.ResolverLookups.WithLabelValues("static").Inc()
			return value, nil
		}
	}

	if r.helper != nil {
		value, err := r.helper.Lookup(ctx, normalized)
		if err != nil {
			return "", err
		}
		if value != "" {
			metrics.ResolverLookups.WithLabelValues("helper").Inc()
			return value, nil
		}
	}

	metrics.ResolverLookups.WithLabelValues("miss").Inc()
	return "", fmt.Errorf("%w for %s", ErrNoCredential, normalized)
}
