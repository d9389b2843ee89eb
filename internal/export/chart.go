// Package export writes trace charts as image files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/dicesim/internal/models"
)

// Formats lists the supported chart file extensions.
var Formats = []string{"png", "svg", "pdf"}

func validFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// LineChart builds a plot of one trace column against years since the first
// period.
func LineChart(states []models.State, column string, timestep float64) (*plot.Plot, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("plot data invalid")
	}
	idx := columnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("unknown column %q", column)
	}

	p := plot.New()
	p.Title.Text = strings.ReplaceAll(column, "_", " ")
	p.X.Label.Text = "years"
	p.Y.Label.Text = column
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)
	p.X.Padding = vg.Points(10)
	p.Y.Padding = vg.Points(10)
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(states))
	for i, x := range states {
		pts[i].X = float64(x.Time) * timestep
		pts[i].Y = x.Values()[idx]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(2.0)
	p.Add(line)
	return p, nil
}

// SaveCharts writes one chart per column into dir as <prefix>_<column>.<format>
// and returns the written paths.
func SaveCharts(states []models.State, columns []string, timestep float64, dir, prefix, format string) ([]string, error) {
	if !validFormat(format) {
		return nil, fmt.Errorf("unsupported chart format %q (supported: %v)", format, Formats)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create directory: %w", err)
	}

	paths := make([]string, 0, len(columns))
	for _, column := range columns {
		p, err := LineChart(states, column, timestep)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", prefix, column, format))
		if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
			return paths, fmt.Errorf("cannot write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func columnIndex(name string) int {
	for i, c := range models.Columns() {
		if c == name {
			return i
		}
	}
	return -1
}
