package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newRefreshCmd() *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Force an OAuth refresh of the stored token for a host",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := newResolver(cmd)

			result := resolver.RefreshCredentials(cmd.Context(), host)
			switch {
			case result.Refreshed:
				pterm.Success.Printfln("Refreshed token for %s", host)
				return nil
			case result.Reason == "":
				pterm.Info.Printfln("Token for %s is still valid, nothing to refresh", host)
				return nil
			default:
				return fmt.Errorf("refresh failed: %s", result.Reason)
			}
		},
	}

	cmd.Flags().StringVar(&host, "host", "github.com", "Host whose token to refresh")

	return cmd
}
