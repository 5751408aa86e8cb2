package cmd

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/forgelabs/forgecred/pkg/account"
	"github.com/forgelabs/forgecred/pkg/auth"
	"github.com/forgelabs/forgecred/pkg/config"
	"github.com/forgelabs/forgecred/pkg/resolve"
	"github.com/forgelabs/forgecred/pkg/store"
	"github.com/forgelabs/forgecred/pkg/vault"
)

// keyringService is the OS keychain namespace for stored tokens.
const keyringService = "forgecred"

func (rt *runtimeState) logger() *zap.SugaredLogger {
	if !rt.verbose {
		return zap.NewNop().Sugar()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return log.Sugar()
}

func (rt *runtimeState) newVault() (vault.Vault, error) {
	switch storage := rt.TokenStorage(); storage {
	case config.TokenStorageKeychain:
		return vault.NewKeyring(keyringService), nil
	case config.TokenStorageFile:
		return vault.NewFileVault(config.DefaultSecretsPath()), nil
	default:
		return nil, fmt.Errorf("unknown token storage: %s", storage)
	}
}

func (rt *runtimeState) newManager() (*account.Manager, error) {
	if rt.cfg == nil {
		return nil, errors.New("config not loaded")
	}
	provider := rt.cfg.Provider
	if provider.Authority == "" || provider.ClientID == "" {
		return nil, errors.New("provider authority and client-id must be configured")
	}
	httpClient, err := auth.NewHTTPClient(provider.CAFile, provider.InsecureSkipTLS)
	if err != nil {
		return nil, err
	}
	tokens := auth.NewEndpointClient(provider.Authority, provider.ClientID, auth.WithHTTPClient(httpClient))
	v, err := rt.newVault()
	if err != nil {
		return nil, err
	}
	return account.NewManager(store.NewFileStore(config.DefaultAccountsPath()), v, tokens,
		account.WithScopes(provider.Scopes),
		account.WithLogger(rt.logger())), nil
}

func (rt *runtimeState) newResolver(accounts *account.Manager) *resolve.Resolver {
	opts := []resolve.Option{resolve.WithLogger(rt.logger())}
	if rt.cfg != nil {
		static := make([]resolve.StaticToken, 0, len(rt.cfg.StaticTokens))
		for _, s := range rt.cfg.StaticTokens {
			static = append(static, resolve.StaticToken{
				Server:    s.Server,
				Token:     s.Token,
				TokenEnv:  s.TokenEnv,
				TokenFile: s.TokenFile,
			})
		}
		opts = append(opts, resolve.WithStaticTokens(static))
		if len(rt.cfg.CredentialHelper) > 0 {
			opts = append(opts, resolve.WithHelper(resolve.CommandHelper{Command: rt.cfg.CredentialHelper}))
		}
	}
	return resolve.NewResolver(accounts, opts...)
}
