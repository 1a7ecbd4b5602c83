package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "bankctl",
		Short: "CLI tool for the board game bank",
		Long: `bankctl is a CLI tool for the board game bank JSON API.

It can create and join games, move money between players and the bank,
show transfer history, and stream live balance updates over SSE.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = NewClient(cfg.ServerURL)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: BANKCTL_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.IdentityFile, "identity-file", cfg.IdentityFile, "Player identity file (env: BANKCTL_IDENTITY_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newGameCmd())
	rootCmd.AddCommand(newTransferCmd())
	rootCmd.AddCommand(newBankCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command. Requests rejected by the server exit
// with status 2, every other failure with status 1.
func Execute() {
	err := NewRootCmd().ExecuteContext(context.Background())
	if err == nil {
		return
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status < 500 {
		os.Exit(2)
	}
	os.Exit(1)
}
