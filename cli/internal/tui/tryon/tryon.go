// ABOUTME: Spinner shown while the relay waits on a virtual try-on job
// ABOUTME: Ctrl-C cancels the in-flight request and quits

package tryon

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fitcheck/fitcheck/cli/internal/client"
	"github.com/fitcheck/fitcheck/cli/internal/tui/icons"
	"github.com/fitcheck/fitcheck/cli/internal/tui/styles"
)

// RunFunc performs the try-on request
type RunFunc func(ctx context.Context) (*client.TryOnResponse, error)

type doneMsg struct {
	resp *client.TryOnResponse
	err  error
}

// Model waits for one try-on request
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	run     RunFunc
	spinner spinner.Model
	started time.Time
	now     func() time.Time

	done      bool
	cancelled bool
	resp      *client.TryOnResponse
	err       error
}

// New creates the model. The request runs under a child of ctx.
func New(ctx context.Context, run RunFunc) *Model {
	ctx, cancel := context.WithCancel(ctx)
	return &Model{
		ctx:    ctx,
		cancel: cancel,
		run:    run,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.Primary)),
		),
		now: time.Now,
	}
}

func (m *Model) Init() tea.Cmd {
	m.started = m.now()
	return tea.Batch(m.spinner.Tick, m.request())
}

func (m *Model) request() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.run(m.ctx)
		return doneMsg{resp: resp, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" || msg.String() == "esc" {
			m.cancelled = true
			m.cancel()
			return m, tea.Quit
		}

	case doneMsg:
		m.done = true
		m.resp = msg.resp
		m.err = msg.err
		m.cancel()
		return m, tea.Quit

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) View() string {
	switch {
	case m.cancelled:
		return styles.Subtitle.Render("Try-on cancelled") + "\n"
	case !m.done:
		elapsed := m.now().Sub(m.started).Round(time.Second)
		return fmt.Sprintf("%s Generating try-on... %s %s\n",
			m.spinner.View(), styles.Subtitle.Render(elapsed.String()), styles.Help.Render("(ctrl+c to cancel)"))
	case m.err != nil:
		return fmt.Sprintf("%s %v\n", styles.StatusCritical.Render(icons.Critical.String()), m.err)
	default:
		return fmt.Sprintf("%s %s\n", styles.StatusOK.Render(icons.CheckOK.String()), m.resp.ResultURL)
	}
}

// Result returns the response once the model has quit
func (m *Model) Result() (*client.TryOnResponse, error) {
	return m.resp, m.err
}

// Cancelled reports whether the user abandoned the request
func (m *Model) Cancelled() bool {
	return m.cancelled
}
