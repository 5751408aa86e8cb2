package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgelabs/forgecred/pkg/account"
	"github.com/forgelabs/forgecred/pkg/auth"
	"github.com/forgelabs/forgecred/pkg/forgecred/output"
)

func NewAccountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage signed-in accounts",
	}
	cmd.AddCommand(
		newAccountAddCommand(),
		newAccountListCommand(),
		newAccountRemoveCommand(),
		newAccountReloginCommand(),
		newAccountStatusCommand(),
	)
	return cmd
}

func newAccountAddCommand() *cobra.Command {
	var displayName string

	cmd := &cobra.Command{
		Use:   "add SERVER|ORGANIZATION",
		Short: "Sign in to a server via the device flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.newManager()
			if err != nil {
				return err
			}
			server := rt.resolveServer(args[0])
			record, err := manager.AddAccount(cmd.Context(), server, displayName, rt.loginCallbacks())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Signed in to %s. Token expires at %s\n",
				record.ServerURL, record.ExpiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&displayName, "name", "", "Display name for the account")
	return cmd
}

func (rt *runtimeState) loginCallbacks() auth.Callbacks {
	return auth.Callbacks{
		OnUserCode: func(userCode, verificationURI string) {
			_, _ = fmt.Fprintf(rt.Writer(), "To sign in, open %s and enter the code %s\n", verificationURI, userCode)
			rt.openBrowser(verificationURI)
		},
	}
}

func newAccountListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List accounts with their credential state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.newManager()
			if err != nil {
				return err
			}
			records, err := manager.List()
			if err != nil {
				return err
			}
			rows := make([]output.AccountRow, 0, len(records))
			for _, record := range records {
				state, err := manager.AuthState(record.ID)
				if err != nil {
					state = account.StateUnknown
				}
				rows = append(rows, output.AccountRow{Record: record, State: state})
			}
			return output.WriteAccounts(rt.Writer(), output.Format(rt.OutputFormat()), rows)
		},
	}
}

func newAccountRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove ID",
		Aliases: []string{"rm"},
		Short:   "Remove an account and its stored tokens",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.newManager()
			if err != nil {
				return err
			}
			if err := manager.RemoveAccount(args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Removed account %s\n", args[0])
			return nil
		},
	}
}

func newAccountReloginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "relogin ID",
		Short: "Sign in again for an account whose credentials were revoked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.newManager()
			if err != nil {
				return err
			}
			record, err := manager.ReLogin(cmd.Context(), args[0], rt.loginCallbacks())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Signed in to %s as account %s\n", record.ServerURL, record.ID)
			return nil
		},
	}
}

func newAccountStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status ID",
		Short: "Show the derived credential state of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.newManager()
			if err != nil {
				return err
			}
			state, err := manager.AuthState(args[0])
			if err != nil {
				return err
			}
			switch format := rt.OutputFormat(); format {
			case "table":
				_, _ = fmt.Fprintln(rt.Writer(), string(state))
				return nil
			default:
				return output.WriteObject(rt.Writer(), output.Format(format), map[string]string{
					"id":    args[0],
					"state": string(state),
				})
			}
		},
	}
}
