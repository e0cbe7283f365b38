package dynamo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Body is a massive point body. Radius, Color and IsStar are cosmetic and never
// enter the dynamics.
type Body struct {
	Name     string
	Mass     float64
	Radius   float64
	Color    string
	IsStar   bool
	Position r3.Vec
	Velocity r3.Vec
}

// State is the ordered body sequence an engine evolves. Index i always refers
// to the same logical body.
type State []Body

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, b := range s {
		if !finiteVec(b.Position) || !finiteVec(b.Velocity) {
			return false
		}
	}
	return true
}

func (s State) TotalMass() float64 {
	m := 0.0
	for _, b := range s {
		m += b.Mass
	}
	return m
}

// Index returns the position of the body called name, or -1.
func (s State) Index(name string) int {
	for i, b := range s {
		if b.Name == name {
			return i
		}
	}
	return -1
}

func finiteVec(v r3.Vec) bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// AccelerationLaw produces per-body corrective accelerations, index-aligned
// with state, from a state and the elapsed simulated time. Implementations
// close over constants only.
type AccelerationLaw interface {
	Accelerations(state State, t float64) []r3.Vec
}

// LawFactory derives an AccelerationLaw from an initial-condition snapshot and
// optional named numeric parameters.
type LawFactory func(initial State, params map[string]float64) (AccelerationLaw, error)

// EnergyStats is derived from a state snapshot and never stored authoritatively.
type EnergyStats struct {
	Kinetic   float64 `json:"kinetic"`
	Potential float64 `json:"potential"`
	Total     float64 `json:"total"`
	Habitable bool    `json:"habitable"`
}

// Habitability classifies energy values. It is policy, not physics.
type Habitability interface {
	Habitable(stats EnergyStats) bool
}

// HabitabilityFunc adapts a plain function to Habitability.
type HabitabilityFunc func(stats EnergyStats) bool

func (f HabitabilityFunc) Habitable(stats EnergyStats) bool { return f(stats) }

type Metric interface {
	Name() string
	Observe(x State, u []r3.Vec, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u []r3.Vec, t float64)
}

// Configurable is implemented by laws whose parameters can be listed.
type Configurable interface {
	GetParams() map[string]float64
}

// Config is fixed at engine construction.
type Config struct {
	G                    float64
	Softening            float64
	TimeStep             float64
	EnergySampleInterval int
	Controller           AccelerationLaw
	Habitability         Habitability
}

func DefaultConfig() Config {
	return Config{
		G:                    1.0,
		Softening:            0.01,
		TimeStep:             0.001,
		EnergySampleInterval: 10,
	}
}
