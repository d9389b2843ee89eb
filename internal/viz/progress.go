package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/dicesim/internal/optim"
)

type (
	iterMsg optim.Iteration
	doneMsg struct {
		res *optim.WelfareResult
		err error
	}
	tickMsg time.Time
)

// Progress is a Bubble Tea model following a running optimization.
type Progress struct {
	title   string
	maxIter int
	theme   int
	cancel  context.CancelFunc
	updates <-chan optim.Iteration

	frame   int
	start   time.Time
	last    optim.Iteration
	history []float64
	done    *doneMsg
}

// NewProgress follows iterations arriving on updates. cancel is called when
// the user quits before the optimization has finished.
func NewProgress(title string, maxIter int, theme string, updates <-chan optim.Iteration, cancel context.CancelFunc) Progress {
	return Progress{
		title:   title,
		maxIter: maxIter,
		theme:   themeIndex(theme),
		cancel:  cancel,
		updates: updates,
		start:   time.Now(),
	}
}

func waitForIteration(ch <-chan optim.Iteration) tea.Cmd {
	return func() tea.Msg {
		it, ok := <-ch
		if !ok {
			return nil
		}
		return iterMsg(it)
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Progress) Init() tea.Cmd {
	return tea.Batch(waitForIteration(m.updates), tick())
}

func (m Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.done == nil && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
		}
	case iterMsg:
		m.last = optim.Iteration(msg)
		// The solver minimizes negated welfare.
		m.history = append(m.history, -msg.F)
		return m, waitForIteration(m.updates)
	case doneMsg:
		m.done = &msg
		return m, tea.Quit
	case tickMsg:
		if m.done != nil {
			return m, nil
		}
		m.frame++
		return m, tick()
	}
	return m, nil
}

func (m Progress) View() string {
	theme := Themes[m.theme]
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary)
	accent := lipgloss.NewStyle().Foreground(theme.Accent)
	muted := lipgloss.NewStyle().Foreground(theme.Muted)

	var b strings.Builder
	b.WriteString(title.Render(AnimatedSpinner(m.frame) + " " + m.title))
	b.WriteString("\n\n")

	pct := 0.0
	if m.maxIter > 0 {
		pct = float64(m.last.Iter) / float64(m.maxIter)
	}
	fmt.Fprintf(&b, "%s %s\n", ProgressBar(pct, 40), muted.Render(fmt.Sprintf("%d/%d", m.last.Iter, m.maxIter)))
	fmt.Fprintf(&b, "welfare  %s\n", accent.Render(fmt.Sprintf("%.6f", -m.last.F)))
	fmt.Fprintf(&b, "step     %s\n", accent.Render(fmt.Sprintf("%.3e", m.last.StepNorm)))
	fmt.Fprintf(&b, "evals    %s\n", accent.Render(fmt.Sprintf("%d", m.last.Evals)))
	fmt.Fprintf(&b, "elapsed  %s\n\n", muted.Render(time.Since(m.start).Round(time.Second).String()))
	b.WriteString(SparklineChart(m.history, 40))
	b.WriteString("\n\n")

	if m.done != nil {
		status := lipgloss.NewStyle().Bold(true).Foreground(theme.Success)
		msg := "finished"
		if m.done.err != nil {
			status = status.Foreground(theme.Error)
			msg = m.done.err.Error()
		} else if m.done.res != nil {
			msg = m.done.res.Message
			if !m.done.res.Success {
				status = status.Foreground(theme.Error)
			}
		}
		b.WriteString(status.Render(msg))
		b.WriteString("\n")
	} else {
		b.WriteString(KeyHint.Render("q: cancel  t: theme"))
		b.WriteString("\n")
	}
	return b.String()
}

// RunLive runs optimize while showing its progress. The recorder passed to
// optimize feeds the view; quitting the view cancels ctx for optimize.
func RunLive(
	ctx context.Context,
	title string,
	maxIter int,
	theme string,
	optimize func(ctx context.Context, rec optim.Recorder) (*optim.WelfareResult, error),
	opts ...tea.ProgramOption,
) (*optim.WelfareResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan optim.Iteration, 16)
	p := tea.NewProgram(NewProgress(title, maxIter, theme, updates, cancel), opts...)

	type outcome struct {
		res *optim.WelfareResult
		err error
	}
	finished := make(chan outcome, 1)
	go func() {
		rec := func(it optim.Iteration) {
			select {
			case updates <- it:
			case <-ctx.Done():
			}
		}
		res, err := optimize(ctx, rec)
		close(updates)
		finished <- outcome{res, err}
		p.Send(doneMsg{res: res, err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-finished
		return nil, err
	}
	out := <-finished
	return out.res, out.err
}
