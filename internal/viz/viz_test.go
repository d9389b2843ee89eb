package viz

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/dicesim/internal/models"
	"github.com/san-kum/dicesim/internal/optim"
	"github.com/san-kum/dicesim/internal/sim"
)

func trace(t *testing.T) *sim.Result {
	t.Helper()
	spec := models.NewSpec(models.Baseline, models.WithSteps(8))
	x := make([]float64, spec.Dim())
	for i := range x {
		x[i] = 0.4
	}
	s := sim.New(spec)
	res, err := s.Run(context.Background(), x)
	if err != nil {
		t.Fatal(err)
	}
	res.Metrics["peak_temperature"] = 1.25
	return res
}

func TestSummary(t *testing.T) {
	res := &optim.WelfareResult{
		Success:     true,
		Message:     optim.Success.String(),
		Welfare:     1234.5,
		Elapsed:     1500 * time.Millisecond,
		Iterations:  12,
		Evaluations: 300,
	}
	out := Summary("baseline", res, trace(t))
	for _, want := range []string{"baseline", "Optimization terminated successfully", "1234.500000", "1.5s", "peak temperature"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	res.Success = false
	res.Message = optim.IterationLimit.String()
	res.Err = errors.New("boom")
	out = Summary("baseline", res, nil)
	if !strings.Contains(out, "Iteration limit reached") || !strings.Contains(out, "boom") {
		t.Errorf("failed summary missing status:\n%s", out)
	}
}

func TestDryRunSummary(t *testing.T) {
	out := DryRunSummary("alternate", 3, []float64{0.5, 0, 0, 0, 0, 0, 0})
	if !strings.Contains(out, "dry run") || !strings.Contains(out, "0.5000") {
		t.Errorf("unexpected dry run summary:\n%s", out)
	}
}

func TestPlot(t *testing.T) {
	res := trace(t)
	graphs, err := Plot(res.States, nil, 40, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(graphs) != len(DefaultPlotColumns) {
		t.Errorf("expected %d graphs, got %d", len(DefaultPlotColumns), len(graphs))
	}
	if !strings.Contains(graphs[2], "temperature vs period") {
		t.Errorf("missing caption:\n%s", graphs[2])
	}

	if _, err := Plot(res.States, []string{"theta"}, 40, 5); err == nil {
		t.Error("expected unknown column error")
	}
	if _, err := Plot(nil, nil, 40, 5); err == nil {
		t.Error("expected error for empty trace")
	}
}

func TestColumn(t *testing.T) {
	res := trace(t)
	temps, err := Column(res.States, "temperature")
	if err != nil {
		t.Fatal(err)
	}
	for i, x := range res.States {
		if temps[i] != x.Temperature {
			t.Fatalf("period %d: got %g, want %g", i, temps[i], x.Temperature)
		}
	}
}

func TestProgressUpdate(t *testing.T) {
	canceled := false
	updates := make(chan optim.Iteration)
	var m tea.Model = NewProgress("optimizing", 10, "ocean", updates, func() { canceled = true })

	m, cmd := m.Update(iterMsg{Iter: 3, F: -42, StepNorm: 0.1, Evals: 90})
	if cmd == nil {
		t.Error("expected a command waiting for the next iteration")
	}
	view := m.View()
	if !strings.Contains(view, "3/10") || !strings.Contains(view, "42.000000") {
		t.Errorf("unexpected view:\n%s", view)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
	if m.(Progress).theme != themeIndex("minimal") {
		t.Errorf("theme did not advance: %d", m.(Progress).theme)
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !canceled {
		t.Error("quitting early must cancel the optimization")
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
}

func TestProgressDone(t *testing.T) {
	canceled := false
	var m tea.Model = NewProgress("optimizing", 10, "", nil, func() { canceled = true })

	m, _ = m.Update(doneMsg{res: &optim.WelfareResult{Success: true, Message: "Optimization terminated successfully"}})
	if !strings.Contains(m.View(), "Optimization terminated successfully") {
		t.Errorf("unexpected view:\n%s", m.View())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if canceled {
		t.Error("quitting after completion must not cancel")
	}
}

func TestSparklineChart(t *testing.T) {
	if got := SparklineChart(nil, 5); got != "─────" {
		t.Errorf("unexpected empty sparkline %q", got)
	}
	if got := SparklineChart([]float64{1, 2, 3}, 10); got == "" {
		t.Error("expected sparkline")
	}
}
