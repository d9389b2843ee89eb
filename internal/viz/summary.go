package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/dicesim/internal/optim"
	"github.com/san-kum/dicesim/internal/sim"
)

// Summary renders the outcome of an optimization and, when available, the
// metrics of its trace.
func Summary(variant string, res *optim.WelfareResult, trace *sim.Result) string {
	var b strings.Builder
	b.WriteString(Title.Render("dicesim · " + variant))
	b.WriteString("\n\n")

	status := StatusOK.Render("✓ " + res.Message)
	if !res.Success {
		status = StatusFailed.Render("✗ " + res.Message)
	}
	b.WriteString(status)
	b.WriteString("\n\n")

	rows := [][2]string{
		{"welfare", fmt.Sprintf("%.6f", res.Welfare)},
		{"elapsed", res.Elapsed.Round(time.Millisecond).String()},
		{"iterations", fmt.Sprintf("%d", res.Iterations)},
		{"objective evaluations", fmt.Sprintf("%d", res.Evaluations)},
	}
	if res.Err != nil {
		rows = append(rows, [2]string{"error", res.Err.Error()})
	}
	writeRows(&b, rows)

	if trace != nil && len(trace.Metrics) > 0 {
		b.WriteString("\n")
		b.WriteString(Separator(44))
		b.WriteString("\n\n")
		writeRows(&b, metricRows(trace.Metrics))
	}
	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}

// DryRunSummary renders what an optimization would have started from.
func DryRunSummary(variant string, steps int, guess []float64) string {
	var b strings.Builder
	b.WriteString(Title.Render("dicesim · " + variant + " (dry run)"))
	b.WriteString("\n\n")
	writeRows(&b, [][2]string{
		{"periods", fmt.Sprintf("%d", steps)},
		{"controls", fmt.Sprintf("%d", len(guess))},
		{"initial savings guess", fmt.Sprintf("%.4f", guess[0])},
	})
	b.WriteString("\n")
	b.WriteString(KeyHint.Render("no optimization was run and nothing was saved"))
	return Panel.Render(b.String())
}

func metricRows(metrics map[string]float64) [][2]string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][2]string, len(names))
	for i, name := range names {
		rows[i] = [2]string{strings.ReplaceAll(name, "_", " "), fmt.Sprintf("%.6g", metrics[name])}
	}
	return rows
}

func writeRows(b *strings.Builder, rows [][2]string) {
	for _, r := range rows {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, MetricLabel.Render(r[0]), MetricValue.Render(r[1])))
		b.WriteString("\n")
	}
}
