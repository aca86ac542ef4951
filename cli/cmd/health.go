// ABOUTME: Health command for the fitcheck CLI
// ABOUTME: Checks relay connectivity and which integrations are configured

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fitcheck/fitcheck/cli/internal/client"
	"github.com/fitcheck/fitcheck/cli/internal/tui/styles"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check relay connectivity",
	Long: `Check connectivity to the FitCheck relay and report integration status.

Exit codes:
  0 - Relay reachable
  2 - Connection error`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runHealth(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

// runHealth executes the health check and returns exit code
func runHealth(ctx context.Context, w io.Writer) int {
	url := GetAPIURL()
	c := client.New(url)

	resp, err := c.Health(ctx)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if IsJSONOutput() {
		writeJSON(w, formatHealthJSON(url, resp))
	} else {
		fmt.Fprintln(w, formatHealthHuman(url, resp))
	}

	return 0
}

// formatHealthHuman formats health response for human readability
func formatHealthHuman(url string, resp *client.HealthResponse) string {
	return fmt.Sprintf(`Relay:    %s
Backend:  %s
Try-on:   %s
Weather:  %s
Storage:  %s
Cache:    %s`, url,
		styles.Status(resp.Backend),
		styles.Status(resp.TryOn),
		styles.Status(resp.Weather),
		styles.Status(resp.Storage),
		styles.Status(resp.Cache))
}

func formatHealthJSON(url string, resp *client.HealthResponse) map[string]interface{} {
	return map[string]interface{}{
		"relay":   url,
		"backend": resp.Backend,
		"tryon":   resp.TryOn,
		"weather": resp.Weather,
		"storage": resp.Storage,
		"cache":   resp.Cache,
	}
}
