package main

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/octocode/octocred/pkg/credentials"
)

func newLoginCmd() *cobra.Command {
	var (
		host         string
		token        string
		refreshToken string
		username     string
		protocol     string
		expiresIn    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a credential for a host",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return fmt.Errorf("--token is required")
			}

			creds := credentials.StoredCredentials{
				Hostname: host,
				Username: username,
				Protocol: credentials.Protocol(protocol),
				Token: credentials.OAuthToken{
					Token:        token,
					RefreshToken: refreshToken,
				},
			}
			if expiresIn > 0 {
				expiry := time.Now().Add(expiresIn)
				creds.Token.ExpiresAt = &expiry
			}

			resolver := newResolver(cmd)
			if err := resolver.StoreCredentials(cmd.Context(), creds); err != nil {
				return err
			}
			pterm.Success.Printfln("Stored credentials for %s", credentials.NormalizeHostname(host))
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "github.com", "Host the credential belongs to")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token to store")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "OAuth refresh token, if any")
	cmd.Flags().StringVar(&username, "username", "", "Account username")
	cmd.Flags().StringVar(&protocol, "protocol", "https", "Protocol the credential is used with (https, ssh)")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "Token lifetime from now (e.g. 8h); omit for non-expiring tokens")

	return cmd
}
