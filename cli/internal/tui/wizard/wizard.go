// ABOUTME: Listing wizard as a bubbletea model: details, platforms, posting, result
// ABOUTME: Uses huh forms with a visual progress indicator for step navigation

package wizard

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/fitcheck/fitcheck/cli/internal/client"
	"github.com/fitcheck/fitcheck/cli/internal/tui/icons"
	"github.com/fitcheck/fitcheck/cli/internal/tui/styles"
)

// SubmitFunc posts the collected listing
type SubmitFunc func(ctx context.Context, req *client.CreateListingRequest) (*client.ListingOutcome, error)

type step int

const (
	stepDetails step = iota + 1
	stepPlatforms
	stepEbay
	stepPosting
	stepDone
)

type postedMsg struct {
	outcome *client.ListingOutcome
	err     error
}

// Wizard collects a listing and posts it
type Wizard struct {
	ctx     context.Context
	submit  SubmitFunc
	form    *huh.Form
	spinner spinner.Model
	step    step
	width   int

	cancelled bool
	outcome   *client.ListingOutcome
	err       error

	// Form field values (strings for huh)
	itemID      string
	name        string
	description string
	size        string
	price       string
	currency    string
	quantity    string
	imageURL    string
	platforms   []string

	ebayCategory     string
	ebayCountry      string
	ebayPostalCode   string
	ebayShipping     string
	ebayShippingCost string
}

// createTheme returns a huh theme matching the FitCheck palette
func createTheme() *huh.Theme {
	t := huh.ThemeBase()

	pink := lipgloss.Color("#DB2777")
	pinkLight := lipgloss.Color("#F472B6")
	gray := lipgloss.Color("#9CA3AF")
	grayLight := lipgloss.Color("#E5E7EB")
	red := lipgloss.Color("#F87171")
	slate := lipgloss.Color("#334155")

	t.Group.Title = lipgloss.NewStyle().
		Foreground(pink).
		Bold(true).
		MarginBottom(1)
	t.Group.Description = lipgloss.NewStyle().
		Foreground(gray).
		MarginBottom(1)

	t.Focused.Base = lipgloss.NewStyle().
		PaddingLeft(1).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(pink)
	t.Focused.Title = lipgloss.NewStyle().
		Foreground(pinkLight).
		Bold(true)
	t.Focused.Description = lipgloss.NewStyle().
		Foreground(gray)
	t.Focused.ErrorIndicator = lipgloss.NewStyle().
		Foreground(red).
		SetString(" *")
	t.Focused.ErrorMessage = lipgloss.NewStyle().
		Foreground(red)

	t.Focused.SelectSelector = lipgloss.NewStyle().
		Foreground(pink).
		SetString("> ")
	t.Focused.Option = lipgloss.NewStyle().
		Foreground(grayLight)
	t.Focused.SelectedOption = lipgloss.NewStyle().
		Foreground(pink).
		Bold(true)

	t.Focused.TextInput.Cursor = lipgloss.NewStyle().
		Foreground(pink)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().
		Foreground(gray)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().
		Foreground(pink)
	t.Focused.TextInput.Text = lipgloss.NewStyle().
		Foreground(grayLight)

	t.Focused.FocusedButton = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(pink).
		Padding(0, 2).
		MarginRight(1)
	t.Focused.BlurredButton = lipgloss.NewStyle().
		Foreground(gray).
		Background(slate).
		Padding(0, 2).
		MarginRight(1)

	t.Blurred = t.Focused
	t.Blurred.Base = lipgloss.NewStyle().
		PaddingLeft(1).
		BorderStyle(lipgloss.HiddenBorder()).
		BorderLeft(true)
	t.Blurred.Title = lipgloss.NewStyle().
		Foreground(gray)
	t.Blurred.Option = lipgloss.NewStyle().
		Foreground(gray)

	return t
}

var platformOptions = []huh.Option[string]{
	huh.NewOption("Facebook Marketplace", "facebook"),
	huh.NewOption("eBay", "ebay"),
}

// New creates a wizard prefilled from defaults. platforms preselects
// marketplaces.
func New(ctx context.Context, submit SubmitFunc, defaults client.ListingDraft, platforms []string) *Wizard {
	w := &Wizard{
		ctx:         ctx,
		submit:      submit,
		step:        stepDetails,
		name:        defaults.Name,
		description: defaults.Description,
		size:        defaults.Size,
		currency:    defaults.Currency,
		imageURL:    defaults.ImageURL,
		platforms:   slices.Clone(platforms),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.Primary)),
		),
	}
	if defaults.ClothingItemID > 0 {
		w.itemID = strconv.Itoa(defaults.ClothingItemID)
	}
	if defaults.Price > 0 {
		w.price = strconv.FormatFloat(defaults.Price, 'f', 2, 64)
	}
	if w.currency == "" {
		w.currency = "USD"
	}
	w.quantity = "1"
	if defaults.Quantity > 0 {
		w.quantity = strconv.Itoa(defaults.Quantity)
	}
	if e := defaults.Ebay; e != nil {
		w.ebayCategory = e.CategoryID
		w.ebayCountry = e.Location.Country
		w.ebayPostalCode = e.Location.PostalCode
		if len(e.ShippingOptions) > 0 {
			w.ebayShipping = e.ShippingOptions[0].ShippingServiceCode
			w.ebayShippingCost = strconv.FormatFloat(e.ShippingOptions[0].ShippingCost, 'f', 2, 64)
		}
	}

	w.form = w.createDetailsForm()
	return w
}

func (w *Wizard) createDetailsForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Clothing item ID").
				Placeholder("e.g., 42").
				Value(&w.itemID).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Title").
				CharLimit(150).
				Value(&w.name).
				Validate(validateRequired),
			huh.NewText().
				Title("Description").
				CharLimit(5000).
				Value(&w.description),
			huh.NewInput().
				Title("Size").
				Placeholder("e.g., M").
				Value(&w.size),
		).Title("Step 1: Details").
			Description("Describe the item you are selling"),
		huh.NewGroup(
			huh.NewInput().
				Title("Price").
				Placeholder("e.g., 25.00").
				Value(&w.price).
				Validate(validatePrice),
			huh.NewInput().
				Title("Currency").
				CharLimit(3).
				Value(&w.currency).
				Validate(validateCurrency),
			huh.NewInput().
				Title("Quantity").
				Value(&w.quantity).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Image URL").
				Value(&w.imageURL).
				Validate(validateURL),
		).Title("Step 1: Pricing").
			Description("Set a price and the photo buyers will see"),
	).WithTheme(createTheme())
}

func (w *Wizard) createPlatformsForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Marketplaces").
				Description("Space to toggle, Enter to confirm").
				Options(platformOptions...).
				Value(&w.platforms).
				Validate(func(selected []string) error {
					if len(selected) == 0 {
						return fmt.Errorf("select at least one platform")
					}
					return nil
				}),
		).Title("Step 2: Platforms").
			Description("Where should this listing go?"),
	).WithTheme(createTheme())
}

func (w *Wizard) createEbayForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("eBay category ID").
				Placeholder("e.g., 57988").
				Value(&w.ebayCategory).
				Validate(validateRequired),
			huh.NewInput().
				Title("Country").
				Placeholder("US").
				CharLimit(2).
				Value(&w.ebayCountry).
				Validate(validateCountry),
			huh.NewInput().
				Title("Postal code").
				Value(&w.ebayPostalCode).
				Validate(validateRequired),
			huh.NewInput().
				Title("Shipping service").
				Placeholder("e.g., USPSPriority").
				Value(&w.ebayShipping).
				Validate(validateRequired),
			huh.NewInput().
				Title("Shipping cost").
				Placeholder("0.00").
				Value(&w.ebayShippingCost).
				Validate(validateNonNegative),
		).Title("Step 3: eBay").
			Description("eBay needs a category, item location and shipping"),
	).WithTheme(createTheme())
}

// Init implements tea.Model
func (w *Wizard) Init() tea.Cmd {
	return w.form.Init()
}

// Update implements tea.Model
func (w *Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.width = msg.Width

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || (msg.String() == "esc" && w.step < stepPosting) {
			w.cancelled = true
			return w, tea.Quit
		}

	case postedMsg:
		w.outcome = msg.outcome
		w.err = msg.err
		w.step = stepDone
		return w, tea.Quit

	case spinner.TickMsg:
		if w.step != stepPosting {
			return w, nil
		}
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return w, cmd
	}

	if w.step >= stepPosting {
		return w, nil
	}

	form, cmd := w.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		w.form = f
	}

	switch w.form.State {
	case huh.StateCompleted:
		return w.advanceStep()
	case huh.StateAborted:
		w.cancelled = true
		return w, tea.Quit
	}
	return w, cmd
}

func (w *Wizard) advanceStep() (tea.Model, tea.Cmd) {
	switch w.step {
	case stepDetails:
		w.step = stepPlatforms
		w.form = w.createPlatformsForm()
		return w, w.form.Init()

	case stepPlatforms:
		if slices.Contains(w.platforms, "ebay") {
			w.step = stepEbay
			w.form = w.createEbayForm()
			return w, w.form.Init()
		}
		return w.startPosting()

	case stepEbay:
		return w.startPosting()
	}
	return w, nil
}

func (w *Wizard) startPosting() (tea.Model, tea.Cmd) {
	w.step = stepPosting
	return w, tea.Batch(w.spinner.Tick, w.post())
}

func (w *Wizard) post() tea.Cmd {
	req := w.Request()
	return func() tea.Msg {
		outcome, err := w.submit(w.ctx, req)
		return postedMsg{outcome: outcome, err: err}
	}
}

// Request builds the listing request from the collected values
func (w *Wizard) Request() *client.CreateListingRequest {
	itemID, _ := strconv.Atoi(strings.TrimSpace(w.itemID))
	price, _ := strconv.ParseFloat(strings.TrimSpace(w.price), 64)
	quantity, _ := strconv.Atoi(strings.TrimSpace(w.quantity))

	draft := client.ListingDraft{
		ClothingItemID: itemID,
		Name:           strings.TrimSpace(w.name),
		Description:    w.description,
		Size:           strings.TrimSpace(w.size),
		Price:          price,
		Currency:       strings.ToUpper(strings.TrimSpace(w.currency)),
		Quantity:       quantity,
		ImageURL:       strings.TrimSpace(w.imageURL),
	}

	if slices.Contains(w.platforms, "ebay") {
		cost, _ := strconv.ParseFloat(strings.TrimSpace(w.ebayShippingCost), 64)
		draft.Ebay = &client.EbayDetails{
			CategoryID: strings.TrimSpace(w.ebayCategory),
			Condition:  "USED_EXCELLENT",
			Location: client.EbayLocation{
				Country:    strings.ToUpper(strings.TrimSpace(w.ebayCountry)),
				PostalCode: strings.TrimSpace(w.ebayPostalCode),
			},
			ShippingOptions: []client.EbayShippingOption{{
				ShippingServiceCode: strings.TrimSpace(w.ebayShipping),
				ShippingCost:        cost,
			}},
		}
	}

	return &client.CreateListingRequest{Draft: draft, Platforms: slices.Clone(w.platforms)}
}

// Cancelled reports whether the user quit before posting finished
func (w *Wizard) Cancelled() bool {
	return w.cancelled
}

// Result returns the posting outcome and error once the wizard is done
func (w *Wizard) Result() (*client.ListingOutcome, error) {
	return w.outcome, w.err
}

// Succeeded reports whether every selected platform was listed
func (w *Wizard) Succeeded() bool {
	return w.step == stepDone && w.err == nil && w.outcome != nil && w.outcome.State == "success"
}

// View implements tea.Model
func (w *Wizard) View() string {
	var sb strings.Builder

	sb.WriteString(w.renderProgress())
	sb.WriteString("\n\n")

	switch w.step {
	case stepPosting:
		fmt.Fprintf(&sb, "%s Posting to %s...\n", w.spinner.View(), strings.Join(w.platforms, ", "))
	case stepDone:
		sb.WriteString(RenderOutcome(w.outcome, w.err))
	default:
		if w.cancelled {
			sb.WriteString(styles.Subtitle.Render("Cancelled"))
			break
		}
		sb.WriteString(w.form.View())
	}

	return sb.String()
}

func (w *Wizard) stepNames() []string {
	names := []string{"Details", "Platforms"}
	if slices.Contains(w.platforms, "ebay") {
		names = append(names, "eBay")
	}
	return append(names, "Posting")
}

// renderProgress renders the step indicator line
func (w *Wizard) renderProgress() string {
	current := w.stepIndex()

	var steps []string
	for i, name := range w.stepNames() {
		var indicator string
		var nameStyle lipgloss.Style

		switch {
		case i < current:
			indicator = lipgloss.NewStyle().Foreground(styles.Secondary).Render(icons.CheckOK.String())
			nameStyle = lipgloss.NewStyle().Foreground(styles.Muted)
		case i == current:
			indicator = lipgloss.NewStyle().Foreground(styles.Primary).Bold(true).Render("●")
			nameStyle = lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
		default:
			indicator = lipgloss.NewStyle().Foreground(styles.Muted).Render("○")
			nameStyle = lipgloss.NewStyle().Foreground(styles.Muted)
		}

		steps = append(steps, fmt.Sprintf("%s %s", indicator, nameStyle.Render(name)))
	}

	return styles.Title.Render(icons.Tag.String()+" New listing") + "\n" + strings.Join(steps, "    ")
}

// stepIndex maps the current step onto stepNames, which omits eBay when
// it was not selected.
func (w *Wizard) stepIndex() int {
	names := w.stepNames()
	switch w.step {
	case stepDetails:
		return 0
	case stepPlatforms:
		return 1
	case stepEbay:
		return 2
	case stepPosting:
		return len(names) - 1
	default:
		return len(names)
	}
}

// RenderOutcome formats a listing result for the terminal
func RenderOutcome(outcome *client.ListingOutcome, err error) string {
	var sb strings.Builder

	if outcome == nil {
		fmt.Fprintf(&sb, "%s %s\n", styles.StatusCritical.Render(icons.Critical.String()), err)
		return sb.String()
	}

	if outcome.Fallback != nil {
		fmt.Fprintf(&sb, "%s %s listed on %s instead: %s\n",
			styles.StatusWarning.Render(icons.Warning.String()),
			outcome.Fallback.From, outcome.Fallback.To, outcome.Fallback.Reason)
	}

	for _, p := range outcome.Platforms {
		icon := styles.StatusOK.Render(icons.CheckOK.String())
		if p.Status != "active" {
			icon = styles.StatusCritical.Render(icons.Critical.String())
		}
		line := fmt.Sprintf("%s %-9s %s", icon, p.Platform, styles.Status(p.Status))
		if p.URL != "" {
			line += "  " + p.URL
		}
		if p.Error != "" {
			line += "  " + p.Error
		}
		sb.WriteString(line + "\n")
	}

	if outcome.State == "success" {
		sb.WriteString(styles.StatusOK.Render("Listing posted") + "\n")
	} else {
		msg := outcome.Error
		if msg == "" && err != nil {
			msg = err.Error()
		}
		sb.WriteString(styles.StatusCritical.Render("Listing failed: "+msg) + "\n")
	}
	return sb.String()
}

var currencyPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	return nil
}

func validatePositiveInt(s string) error {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}

func validatePrice(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("must be a positive amount")
	}
	return nil
}

func validateNonNegative(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return fmt.Errorf("must be zero or more")
	}
	return nil
}

func validateCurrency(s string) error {
	if !currencyPattern.MatchString(strings.TrimSpace(s)) {
		return fmt.Errorf("must be a 3-letter currency code")
	}
	return nil
}

func validateCountry(s string) error {
	if len(strings.TrimSpace(s)) != 2 {
		return fmt.Errorf("must be a 2-letter country code")
	}
	return nil
}

func validateURL(s string) error {
	u, err := url.ParseRequestURI(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}
