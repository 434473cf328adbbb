package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List hosts with stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := newResolver(cmd)

			hosts := resolver.ListHosts(cmd.Context())
			if len(hosts) == 0 {
				pterm.Info.Println("No stored credentials")
				return nil
			}

			rows := pterm.TableData{{"Host", "Username", "Protocol", "Expires"}}
			for _, host := range hosts {
				creds := resolver.GetCredentials(cmd.Context(), host)
				if creds == nil {
					continue
				}
				expires := "never"
				if creds.Token.ExpiresAt != nil {
					expires = creds.Token.ExpiresAt.Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{creds.Hostname, creds.Username, string(creds.Protocol), expires})
			}
			resolver.WaitMigrations()
			return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
		},
	}
	return cmd
}
