package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgelabs/forgecred/pkg/config"
	"github.com/forgelabs/forgecred/pkg/forgecred/output"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage forgecred configuration",
	}
	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigViewCommand(),
	)
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		authority    string
		clientID     string
		scopes       []string
		orgName      string
		orgServer    string
		tokenStorage string
		caFile       string
		insecure     bool
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a forgecred config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			path := rt.configPathValue()
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config already exists: %s", path)
				}
			}
			if authority == "" || clientID == "" {
				return errors.New("authority and client-id are required")
			}
			cfg := config.DefaultConfig()
			cfg.Provider = config.Provider{
				Authority:       authority,
				ClientID:        clientID,
				Scopes:          scopes,
				CAFile:          caFile,
				InsecureSkipTLS: insecure,
			}
			if tokenStorage != "" {
				cfg.Settings.TokenStorage = tokenStorage
			}
			if orgServer != "" {
				if orgName == "" {
					orgName = "default"
				}
				cfg.Organizations = []config.Organization{{Name: orgName, Server: orgServer}}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, &cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Initialized config at %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&authority, "authority", "", "OAuth2 authority URL")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth2 client ID")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "Scope to request (repeatable)")
	cmd.Flags().StringVar(&orgName, "org-name", "", "Name of the initial organization")
	cmd.Flags().StringVar(&orgServer, "org-server", "", "Server URL of the initial organization")
	cmd.Flags().StringVar(&tokenStorage, "token-storage", "", "Token storage backend: keychain or file")
	cmd.Flags().StringVar(&caFile, "ca-file", "", "CA bundle for the identity provider")
	cmd.Flags().BoolVar(&insecure, "insecure-skip-tls-verify", false, "Skip TLS verification")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")

	_ = cmd.MarkFlagRequired("authority")
	_ = cmd.MarkFlagRequired("client-id")
	return cmd
}

func newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the current configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			return output.WriteObject(rt.Writer(), output.FormatYAML, rt.cfg)
		},
	}
}
