// ABOUTME: List command: post a clothing item to resale marketplaces
// ABOUTME: Runs the interactive wizard on a terminal, or straight from flags with --no-input

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fitcheck/fitcheck/cli/internal/client"
	"github.com/fitcheck/fitcheck/cli/internal/tui/wizard"
)

type listOptions struct {
	draft       client.ListingDraft
	platforms   []string
	ebay        client.EbayDetails
	shipping    client.EbayShippingOption
	interactive bool
}

var (
	listOpts    listOptions
	listNoInput bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a clothing item on Facebook Marketplace and eBay",
	Long: `List a clothing item on one or more resale marketplaces.

On a terminal an interactive wizard collects the listing; flags prefill it.
With --no-input (or without a terminal) the listing is posted from flags.

Exit codes:
  0 - Listed on every selected platform
  1 - Listing failed`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		opts := listOpts
		opts.interactive = !listNoInput && !IsJSONOutput() && isTerminal()

		if code := runList(ctx, os.Stdout, opts); code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	f := listCmd.Flags()
	f.IntVar(&listOpts.draft.ClothingItemID, "item-id", 0, "Clothing item ID")
	f.StringVar(&listOpts.draft.Name, "name", "", "Listing title")
	f.StringVar(&listOpts.draft.Description, "description", "", "Listing description")
	f.StringVar(&listOpts.draft.Size, "size", "", "Item size")
	f.Float64Var(&listOpts.draft.Price, "price", 0, "Price")
	f.StringVar(&listOpts.draft.Currency, "currency", "USD", "ISO currency code")
	f.IntVar(&listOpts.draft.Quantity, "quantity", 1, "Quantity")
	f.StringVar(&listOpts.draft.ImageURL, "image-url", "", "Public image URL")
	f.StringSliceVar(&listOpts.platforms, "platform", nil, "Marketplaces: facebook, ebay (repeatable)")
	f.StringVar(&listOpts.ebay.CategoryID, "ebay-category", "", "eBay category ID")
	f.StringVar(&listOpts.ebay.Location.Country, "ebay-country", "US", "Item location country code")
	f.StringVar(&listOpts.ebay.Location.PostalCode, "ebay-postal-code", "", "Item location postal code")
	f.StringVar(&listOpts.shipping.ShippingServiceCode, "ebay-shipping", "", "eBay shipping service code")
	f.Float64Var(&listOpts.shipping.ShippingCost, "ebay-shipping-cost", 0, "eBay shipping cost")
	f.BoolVar(&listNoInput, "no-input", false, "Post from flags without the wizard")
}

// request builds the listing request from flags. eBay details are only
// sent when eBay is selected.
func (o listOptions) request() *client.CreateListingRequest {
	draft := o.draft
	for _, p := range o.platforms {
		if p == "ebay" {
			ebay := o.ebay
			ebay.Condition = "USED_EXCELLENT"
			ebay.ShippingOptions = []client.EbayShippingOption{o.shipping}
			draft.Ebay = &ebay
			break
		}
	}
	return &client.CreateListingRequest{Draft: draft, Platforms: o.platforms}
}

func runList(ctx context.Context, w io.Writer, opts listOptions) int {
	c, err := sessionClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 1
	}

	if opts.interactive {
		return runListWizard(ctx, w, c, opts)
	}

	outcome, err := c.CreateListing(ctx, opts.request())
	if IsJSONOutput() {
		if outcome != nil {
			writeJSON(w, outcome)
		} else {
			writeJSON(w, map[string]string{"error": err.Error()})
		}
	} else {
		fmt.Fprint(w, wizard.RenderOutcome(outcome, err))
	}

	if err != nil || outcome == nil || outcome.State != "success" {
		return 1
	}
	return 0
}

func runListWizard(ctx context.Context, w io.Writer, c *client.Client, opts listOptions) int {
	draft := opts.draft
	if opts.ebay.CategoryID != "" {
		ebay := opts.ebay
		ebay.ShippingOptions = []client.EbayShippingOption{opts.shipping}
		draft.Ebay = &ebay
	}

	model := wizard.New(ctx, c.CreateListing, draft, opts.platforms)
	final, err := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(w)).Run()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 1
	}

	wz, ok := final.(*wizard.Wizard)
	if !ok || wz.Cancelled() || !wz.Succeeded() {
		return 1
	}
	return 0
}
