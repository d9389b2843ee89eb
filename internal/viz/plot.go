package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/dicesim/internal/models"
)

// DefaultPlotColumns are the trace columns plotted when none are requested.
var DefaultPlotColumns = []string{"abatement", "savings_rate", "temperature", "emissions", "consumption", "welfare"}

// Column extracts one named column from a trace.
func Column(states []models.State, name string) ([]float64, error) {
	idx := -1
	for i, c := range models.Columns() {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("unknown column %q (available: %v)", name, models.Columns())
	}

	data := make([]float64, len(states))
	for i, x := range states {
		data[i] = x.Values()[idx]
	}
	return data, nil
}

// Plot draws one ASCII chart per column against the period index.
func Plot(states []models.State, columns []string, width, height int) ([]string, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("no data to plot")
	}
	if len(columns) == 0 {
		columns = DefaultPlotColumns
	}

	graphs := make([]string, 0, len(columns))
	for _, name := range columns {
		data, err := Column(states, name)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, asciigraph.Plot(data,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(name+" vs period"),
		))
	}
	return graphs, nil
}
