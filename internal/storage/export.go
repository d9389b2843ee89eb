package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/dicesim/internal/models"
)

type ExportData struct {
	Run     RunMetadata `json:"run"`
	Columns []string    `json:"columns"`
	Steps   int         `json:"steps"`
	States  [][]float64 `json:"states"`
}

func newExportData(meta *RunMetadata, states []models.State) ExportData {
	data := ExportData{
		Run:     *meta,
		Columns: models.Columns(),
		Steps:   len(states),
		States:  make([][]float64, len(states)),
	}
	for i, x := range states {
		data.States[i] = x.Values()
	}
	return data
}

// WriteJSON encodes a run and its trace to w.
func WriteJSON(w io.Writer, meta *RunMetadata, states []models.State) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(meta, states))
}

func ExportJSON(path string, meta *RunMetadata, states []models.State) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, meta, states)
}
