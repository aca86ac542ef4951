// ABOUTME: Weather command for the fitcheck CLI
// ABOUTME: Shows the conditions the closet uses for outfit suggestions

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
	"github.com/fitcheck/fitcheck/cli/internal/tui/icons"
	"github.com/fitcheck/fitcheck/cli/internal/tui/styles"
)

var weatherLat, weatherLon string

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Show current weather",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if code := runWeather(ctx, os.Stdout, weatherLat, weatherLon); code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	rootCmd.AddCommand(weatherCmd)
	weatherCmd.Flags().StringVar(&weatherLat, "lat", "", "Latitude (defaults to the service location)")
	weatherCmd.Flags().StringVar(&weatherLon, "lon", "", "Longitude (defaults to the service location)")
}

func runWeather(ctx context.Context, w io.Writer, lat, lon string) int {
	weather, err := client.New(GetAPIURL()).Weather(ctx, lat, lon)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitCodeFor(err)
	}

	if IsJSONOutput() {
		writeJSON(w, weather)
		return 0
	}

	line := fmt.Sprintf("%s %s  %s  %s", icons.Weather, weather.Location,
		styles.ValueStyle.Render(fmt.Sprintf("%.0f°F", weather.Temperature)), weather.Condition)
	if weather.Fallback {
		line += "  " + styles.Subtitle.Render("(default)")
	}
	fmt.Fprintln(w, line)
	return 0
}
