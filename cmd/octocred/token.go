package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/octocode/octocred/pkg/secrets"
)

func newTokenCmd() *cobra.Command {
	var (
		host string
		show bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Resolve and print the token for a host",
		Long: `Resolve the token for a host through the full priority chain:
environment variables, the native secret store, the encrypted file,
OAuth refresh and the gh CLI. Prints the token masked unless --show
is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := newResolver(cmd)
			defer resolver.WaitMigrations()

			resolved, err := resolver.RequireToken(cmd.Context(), host)
			if err != nil {
				return err
			}

			value := resolved.Token
			if !show {
				value = secrets.Mask(value)
			}
			fmt.Println(value)
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				pterm.Info.Printfln("source: %s, refreshed: %t", resolved.Source, resolved.WasRefreshed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "github.com", "Host to resolve a token for")
	cmd.Flags().BoolVar(&show, "show", false, "Print the token in clear text")

	return cmd
}
