package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token SERVER|ORGANIZATION",
		Short: "Print a bearer token for a server",
		Long: "Print a bearer token for the given server, walking the credential " +
			"chain: registered account (refreshed if needed), static tokens from " +
			"the config, then the external credential helper.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.newManager()
			if err != nil {
				return err
			}
			resolver := rt.newResolver(manager)
			token, err := resolver.Resolve(cmd.Context(), rt.resolveServer(args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), token)
			return nil
		},
	}
}
