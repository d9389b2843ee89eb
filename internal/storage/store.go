package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/dicesim/internal/models"
)

const (
	metadataFile   = "metadata.json"
	indexFile      = "runs.db"
	timestampShape = "20060102_150405"
)

// ErrNoTrace is returned by Save for an empty trace.
var ErrNoTrace = errors.New("storage: trace has no states")

type Store struct {
	baseDir string
	index   *Index
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

// Open creates the data directory and its run index.
func Open(baseDir string) (*Store, error) {
	s := New(baseDir)
	if err := s.Init(); err != nil {
		return nil, err
	}
	ix, err := OpenIndex(filepath.Join(baseDir, indexFile))
	if err != nil {
		return nil, err
	}
	s.index = ix
	return s, nil
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Close() error {
	if s.index == nil {
		return nil
	}
	return s.index.Close()
}

// Index returns the run index, or nil for a store built with New.
func (s *Store) Index() *Index { return s.index }

type RunMetadata struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Variant     string             `json:"variant"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Guess       string             `json:"guess"`
	Steps       int                `json:"steps"`
	Scaled      bool               `json:"scaled"`
	Success     bool               `json:"success"`
	Message     string             `json:"message"`
	Welfare     float64            `json:"welfare"`
	Elapsed     float64            `json:"elapsed_seconds"`
	Iterations  int                `json:"iterations"`
	Evaluations int                `json:"evaluations"`
	Controls    []float64          `json:"controls,omitempty"`
	Params      models.Params      `json:"params"`
	Metrics     map[string]float64 `json:"metrics"`
	TraceFile   string             `json:"trace_file"`
}

// Save writes the trace and metadata into a new run directory named
// <variant>_<timestamp> and returns the completed metadata. ID, Name,
// Timestamp and TraceFile are assigned here. A failed write removes the run
// directory.
func (s *Store) Save(meta RunMetadata, states []models.State) (*RunMetadata, error) {
	if len(states) == 0 {
		return nil, ErrNoTrace
	}

	meta.Timestamp = s.now()
	stamp := meta.Timestamp.Format(timestampShape)
	meta.ID = uuid.New().String()

	runDir, name, err := s.makeRunDir(meta.Variant + "_" + stamp)
	if err != nil {
		return nil, err
	}
	meta.Name = name
	meta.TraceFile = fmt.Sprintf("%s_sim_%s.csv", meta.Variant, stamp)

	if err := s.writeRun(runDir, &meta, states); err != nil {
		if rmErr := os.RemoveAll(runDir); rmErr != nil {
			return nil, errors.Join(err, rmErr)
		}
		return nil, err
	}
	return &meta, nil
}

func (s *Store) writeRun(runDir string, meta *RunMetadata, states []models.State) error {
	if err := writeTrace(filepath.Join(runDir, meta.TraceFile), states); err != nil {
		return err
	}
	if err := writeMetadata(filepath.Join(runDir, metadataFile), meta); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.Record(*meta); err != nil {
			return fmt.Errorf("index run %s: %w", meta.Name, err)
		}
	}
	return nil
}

// makeRunDir creates base, or base-2, base-3, ... if it already exists.
func (s *Store) makeRunDir(base string) (string, string, error) {
	name := base
	for i := 2; ; i++ {
		dir := filepath.Join(s.baseDir, name)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", err
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
}

func writeMetadata(path string, meta *RunMetadata) error {
	metaFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeTrace(path string, states []models.State) error {
	csvFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(models.Columns()); err != nil {
		return err
	}
	row := make([]string, len(models.Columns()))
	for _, x := range states {
		for j, v := range x.Values() {
			row[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every run directory, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(name string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, name, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}
	return &meta, nil
}

// LoadStates reads the trace of a run back into states.
func (s *Store) LoadStates(name string) ([]models.State, error) {
	meta, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(s.baseDir, name, meta.TraceFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []models.State{}, nil
	}

	states := make([]models.State, 0, len(records)-1)
	values := make([]float64, len(records[0]))
	for i, record := range records[1:] {
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %s: %w", meta.TraceFile, i+1, records[0][j], err)
			}
			values[j] = v
		}
		x, err := models.StateFromValues(values)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", meta.TraceFile, i+1, err)
		}
		states = append(states, x)
	}
	return states, nil
}
