// ABOUTME: Try-on command: render a garment on a person photo
// ABOUTME: Waits on the relay with a spinner; Ctrl-C cancels the request

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fitcheck/fitcheck/cli/internal/client"
	"github.com/fitcheck/fitcheck/cli/internal/tui/tryon"
)

type tryOnOptions struct {
	request     client.TryOnRequest
	timeout     time.Duration
	interactive bool
}

var tryOnOpts tryOnOptions

var tryOnCmd = &cobra.Command{
	Use:   "tryon",
	Short: "Run a virtual try-on",
	Long: `Run a virtual try-on of a garment image on a person photo and print the
result image URL.

Exit codes:
  0 - Result ready
  1 - The try-on failed or timed out
  2 - Connection error or cancelled`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		opts := tryOnOpts
		opts.interactive = !IsJSONOutput() && isTerminal()

		if code := runTryOn(ctx, os.Stdout, opts); code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	rootCmd.AddCommand(tryOnCmd)
	f := tryOnCmd.Flags()
	f.StringVar(&tryOnOpts.request.PersonImageURL, "person", "", "Person photo URL")
	f.StringVar(&tryOnOpts.request.GarmentImageURL, "garment", "", "Garment image URL")
	f.StringVar(&tryOnOpts.request.Category, "category", "", "upper_body, lower_body or dresses")
	f.DurationVar(&tryOnOpts.timeout, "timeout", 3*time.Minute, "How long to wait for the result")
	tryOnCmd.MarkFlagRequired("person")
	tryOnCmd.MarkFlagRequired("garment")
}

func runTryOn(ctx context.Context, w io.Writer, opts tryOnOptions) int {
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	c := client.New(GetAPIURL()).WithTimeout(0)
	run := func(ctx context.Context) (*client.TryOnResponse, error) {
		return c.TryOn(ctx, &opts.request)
	}

	var (
		resp *client.TryOnResponse
		err  error
	)
	if opts.interactive {
		model := tryon.New(ctx, run)
		final, runErr := tea.NewProgram(model, tea.WithOutput(w)).Run()
		if runErr != nil {
			fmt.Fprintf(w, "Error: %v\n", runErr)
			return 2
		}
		m := final.(*tryon.Model)
		if m.Cancelled() {
			return 2
		}
		resp, err = m.Result()
		if err != nil {
			return exitCodeFor(err)
		}
		return 0
	}

	resp, err = run(ctx)
	if err != nil {
		if IsJSONOutput() {
			writeJSON(w, map[string]string{"error": err.Error()})
		} else {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
		return exitCodeFor(err)
	}

	if IsJSONOutput() {
		writeJSON(w, resp)
	} else {
		fmt.Fprintln(w, resp.ResultURL)
	}
	return 0
}
