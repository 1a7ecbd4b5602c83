package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long: `Check the server is up and report how many games are live.

With --wait, keep retrying until the server answers or the duration passes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult

			deadline := time.Now().Add(wait)
			for {
				err := client.Get(cmd.Context(), "/api/v1/health", &result)
				if err == nil {
					break
				}
				if time.Now().After(deadline) {
					return err
				}
				if cfg.Verbose {
					fmt.Printf("waiting for server: %v\n", err)
				}
				time.Sleep(200 * time.Millisecond)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Retry until the server is healthy or this much time passes")

	return cmd
}
