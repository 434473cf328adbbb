package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/octocode/octocred/pkg/credentials"
)

func newLogoutCmd() *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored credential for a host",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := newResolver(cmd)

			deleted, err := resolver.DeleteCredentials(cmd.Context(), host)
			if err != nil {
				return err
			}
			hostname := credentials.NormalizeHostname(host)
			if !deleted {
				pterm.Info.Printfln("No stored credentials for %s", hostname)
				return nil
			}
			pterm.Success.Printfln("Removed credentials for %s", hostname)
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "github.com", "Host to remove credentials for")

	return cmd
}
