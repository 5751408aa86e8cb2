package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgelabs/forgecred/pkg/forgecred/output"
	"github.com/forgelabs/forgecred/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show forgecred version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()

			rt, _ := getRuntime(cmd)
			writer := cmd.OutOrStdout()
			if rt != nil {
				writer = rt.Writer()
			}

			switch outputFormat {
			case "json", "yaml":
				return output.WriteObject(writer, output.Format(outputFormat), info)
			default:
				_, _ = fmt.Fprintln(writer, info.String())
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: json, yaml")
	return cmd
}
