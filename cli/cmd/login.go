// ABOUTME: Login and logout commands for the fitcheck CLI
// ABOUTME: Stores the session token from the relay's login cookie in the credentials file

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/fitcheck/fitcheck/cli/internal/client"
	"github.com/fitcheck/fitcheck/cli/internal/config"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session",
	Long: `Log in to FitCheck. The session token is stored in
$XDG_CONFIG_HOME/fitcheck/credentials.json with owner-only permissions.

The password is prompted for when --password is not given.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		password := loginPassword
		if password == "" {
			if !isTerminal() {
				fmt.Fprintln(os.Stderr, "Error: --password is required without a terminal")
				os.Exit(2)
			}
			err := huh.NewForm(huh.NewGroup(
				huh.NewInput().
					Title("Password for " + loginEmail).
					EchoMode(huh.EchoModePassword).
					Value(&password),
			)).RunWithContext(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(2)
			}
		}

		if code := runLogin(ctx, os.Stdout, loginEmail, password); code != 0 {
			os.Exit(code)
		}
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and remove stored credentials",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if code := runLogout(ctx, os.Stdout); code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted when omitted)")
	loginCmd.MarkFlagRequired("email")
}

func runLogin(ctx context.Context, w io.Writer, email, password string) int {
	url := GetAPIURL()

	user, token, err := client.New(url).Login(ctx, email, password)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitCodeFor(err)
	}

	err = config.Save(&config.Credentials{
		APIURL:    url,
		Email:     email,
		Token:     token,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if IsJSONOutput() {
		writeJSON(w, user)
	} else {
		fmt.Fprintf(w, "Logged in as %s (%s)\n", user.Name, user.Email)
	}
	return 0
}

// runLogout always removes local credentials, even when the relay cannot
// be reached.
func runLogout(ctx context.Context, w io.Writer) int {
	c, err := sessionClient()
	if errors.Is(err, client.ErrUnauthorized) {
		fmt.Fprintln(w, "Not logged in")
		return 0
	}
	if err != nil {
		fmt.Fprintf(w, "Warning: %v\n", err)
	} else if err := c.Logout(ctx); err != nil {
		fmt.Fprintf(w, "Warning: %v\n", err)
	}

	if err := config.Remove(); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	fmt.Fprintln(w, "Logged out")
	return 0
}
