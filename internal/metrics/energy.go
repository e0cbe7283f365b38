package metrics

import (
	"math"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r3"
)

// EnergyModel derives EnergyStats from a state snapshot using the same
// softened field as the integrator.
type EnergyModel struct {
	gravity      *physics.Gravity
	habitability dynamo.Habitability
}

// NewEnergyModel returns a model for the given field. A nil habitability
// falls back to Bound.
func NewEnergyModel(g, softening float64, habitability dynamo.Habitability) *EnergyModel {
	if habitability == nil {
		habitability = Bound
	}
	return &EnergyModel{
		gravity:      physics.NewGravity(g, softening),
		habitability: habitability,
	}
}

// Compute is pure and O(n²).
func (m *EnergyModel) Compute(x dynamo.State) dynamo.EnergyStats {
	s := dynamo.EnergyStats{
		Kinetic:   physics.Kinetic(x),
		Potential: m.gravity.Potential(x),
	}
	s.Total = s.Kinetic + s.Potential
	s.Habitable = m.habitability.Habitable(s)
	return s
}

// EnergyDrift tracks the largest relative departure of total energy from the
// first observed sample.
type EnergyDrift struct {
	name          string
	model         *EnergyModel
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(model *EnergyModel) *EnergyDrift {
	return &EnergyDrift{
		name:  "energy_drift",
		model: model,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamo.State, u []r3.Vec, t float64) {
	energy := e.model.Compute(x).Total

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
