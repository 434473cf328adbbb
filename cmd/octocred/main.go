// Package main implements the octocred credential manager CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/octocode/octocred/pkg/credentials"
	"github.com/octocode/octocred/pkg/credentials/storage"
)

// version is overridden by release builds via
// -ldflags "-X main.version=...".
var version = "0.3.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "octocred",
		Short: "octocred - secure credential storage for the octocode toolchain",
		Long: `octocred stores and resolves API credentials for octocode.

Tokens are kept in the OS-native secret store when one is available
(macOS Keychain, Windows Credential Manager, Linux Secret Service) and
otherwise in an encrypted file under ~/.octocode. Resolution also honors
the OCTOCODE_TOKEN, GH_TOKEN and GITHUB_TOKEN environment variables,
which always take priority over stored credentials.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newRefreshCmd())

	return cmd
}

// loadConfig reads ~/.octocode/config.yaml plus OCTOCRED_* environment
// overrides.
func loadConfig() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(xdg.Home, ".octocode"))
	v.SetEnvPrefix("octocred")
	v.AutomaticEnv()

	v.SetDefault("cache_ttl", credentials.DefaultCacheTTL)
	v.SetDefault("client_id", credentials.DefaultClientID)
	v.SetDefault("token_url", credentials.DefaultTokenURL)
	v.SetDefault("keyring_timeout", storage.DefaultKeyringTimeout)

	// Missing config file is fine; defaults apply.
	_ = v.ReadInConfig()
	return v
}

// newResolver builds the resolver from configuration and command flags.
func newResolver(cmd *cobra.Command) *credentials.Resolver {
	cfg := loadConfig()

	logger := zerolog.Nop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
	}

	keyring := storage.NewKeyringStore(
		storage.WithKeyringTimeout(cfg.GetDuration("keyring_timeout")),
		storage.WithKeyringLogger(logger),
	)

	return credentials.NewResolver(
		credentials.WithSecretStore(keyring),
		credentials.WithFileStore(storage.NewFileStore(storage.WithFileLogger(logger))),
		credentials.WithCacheTTL(cfg.GetDuration("cache_ttl")),
		credentials.WithClientID(cfg.GetString("client_id")),
		credentials.WithTokenURL(cfg.GetString("token_url")),
		credentials.WithFallback(ghCLIFallback),
		credentials.WithLogger(logger),
	)
}
