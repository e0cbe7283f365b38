package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	energyFile   = "energy.csv"
)

var energyHeader = []string{"time", "kinetic", "potential", "total", "habitable"}

// Store keeps run records under a base directory, one directory per run.
// Records hold configuration, summary metrics and energy samples only.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID               string             `json:"id"`
	Scenario         string             `json:"scenario"`
	Controller       string             `json:"controller"`
	Law              string             `json:"law,omitempty"`
	Timestamp        time.Time          `json:"timestamp"`
	Dt               float64            `json:"dt"`
	Duration         float64            `json:"duration"`
	Substeps         int                `json:"substeps"`
	G                float64            `json:"g"`
	Softening        float64            `json:"softening"`
	Bodies           int                `json:"bodies"`
	Params           map[string]float64 `json:"params,omitempty"`
	ControllerParams map[string]float64 `json:"controller_params,omitempty"`
	StepsTaken       int                `json:"steps_taken"`
	EnergyDrift      float64            `json:"energy_drift"`
	Diverged         bool               `json:"diverged"`
	Metrics          map[string]float64 `json:"metrics"`
}

// Save writes meta and the result's samples as a new run and returns its ID.
// Result fields override the matching meta fields.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Scenario, now.UnixNano())
	meta.Timestamp = now
	meta.StepsTaken = result.StepsTaken
	meta.EnergyDrift = result.EnergyDrift
	meta.Diverged = result.Diverged
	meta.Metrics = result.Metrics

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeEnergy(filepath.Join(runDir, energyFile), result.Samples); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeEnergy(path string, samples []sim.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(energyHeader); err != nil {
		return err
	}
	for _, smp := range samples {
		row := []string{
			formatFloat(smp.Time),
			formatFloat(smp.Stats.Kinetic),
			formatFloat(smp.Stats.Potential),
			formatFloat(smp.Stats.Total),
			strconv.FormatBool(smp.Stats.Habitable),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns every readable run, newest first.
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

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadEnergy reads a run's energy samples.
func (s *Store) LoadEnergy(runID string) ([]sim.Sample, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, energyFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(energyHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if len(records) < 2 {
		return []sim.Sample{}, nil
	}

	samples := make([]sim.Sample, 0, len(records)-1)
	for i, record := range records[1:] {
		smp, err := parseSample(record)
		if err != nil {
			return nil, fmt.Errorf("run %s: row %d: %w", runID, i+1, err)
		}
		samples = append(samples, smp)
	}
	return samples, nil
}

func parseSample(record []string) (sim.Sample, error) {
	var vals [4]float64
	for j := range vals {
		v, err := strconv.ParseFloat(record[j], 64)
		if err != nil {
			return sim.Sample{}, err
		}
		vals[j] = v
	}
	habitable, err := strconv.ParseBool(record[4])
	if err != nil {
		return sim.Sample{}, err
	}
	return sim.Sample{
		Time: vals[0],
		Stats: dynamo.EnergyStats{
			Kinetic:   vals[1],
			Potential: vals[2],
			Total:     vals[3],
			Habitable: habitable,
		},
	}, nil
}

// Series extracts one energy column from samples. Unknown names yield nil.
func Series(samples []sim.Sample, name string) (times, values []float64) {
	var pick func(dynamo.EnergyStats) float64
	switch name {
	case "kinetic":
		pick = func(s dynamo.EnergyStats) float64 { return s.Kinetic }
	case "potential":
		pick = func(s dynamo.EnergyStats) float64 { return s.Potential }
	case "total":
		pick = func(s dynamo.EnergyStats) float64 { return s.Total }
	default:
		return nil, nil
	}

	times = make([]float64, len(samples))
	values = make([]float64, len(samples))
	for i, smp := range samples {
		times[i] = smp.Time
		values[i] = pick(smp.Stats)
	}
	return times, values
}
