// ABOUTME: Root command for the fitcheck CLI
// ABOUTME: Handles global flags, configuration and the stored session

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fitcheck/fitcheck/cli/internal/client"
	"github.com/fitcheck/fitcheck/cli/internal/config"
)

var (
	apiURL     string
	jsonOutput bool
)

const defaultAPIURL = "http://localhost:8080"

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "fitcheck",
	Short: "CLI for the FitCheck closet and resale service",
	Long: `fitcheck is a command-line interface for the FitCheck relay.

It lists clothing items on resale marketplaces, runs virtual try-ons and
checks service health from scripts.

Environment Variables:
  FITCHECK_API_URL  Relay API URL (default: http://localhost:8080)
  XDG_CONFIG_HOME   Location of fitcheck/credentials.json`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Relay API URL (overrides FITCHECK_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
}

// GetAPIURL returns the API URL from flag, env, or default (in priority order)
func GetAPIURL() string {
	if apiURL != "" {
		return apiURL
	}
	if envURL := os.Getenv("FITCHECK_API_URL"); envURL != "" {
		return envURL
	}
	return defaultAPIURL
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// sessionClient returns a client carrying the stored session token.
func sessionClient() (*client.Client, error) {
	creds, err := config.Load()
	if err != nil {
		return nil, err
	}
	if creds == nil || creds.Token == "" {
		return nil, client.ErrUnauthorized
	}
	return client.New(GetAPIURL()).WithToken(creds.Token), nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func writeJSON(w io.Writer, v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(data))
}

// exitCodeFor maps client errors onto exit codes: 2 for connectivity and
// session problems, 1 for everything the service rejected.
func exitCodeFor(err error) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return 1
	}
	return 2
}
