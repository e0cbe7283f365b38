package metrics

import (
	"math"

	"github.com/san-kum/orbitsim/internal/dynamo"
)

// Bound classifies a system as habitable while its total energy is negative.
var Bound dynamo.Habitability = dynamo.HabitabilityFunc(func(s dynamo.EnergyStats) bool {
	return s.Total < 0
})

// Always reports every snapshot as habitable.
var Always dynamo.Habitability = dynamo.HabitabilityFunc(func(dynamo.EnergyStats) bool {
	return true
})

// VirialWithin reports habitable while |2K + U| / |U| ≤ tol.
func VirialWithin(tol float64) dynamo.Habitability {
	return dynamo.HabitabilityFunc(func(s dynamo.EnergyStats) bool {
		if s.Potential == 0 {
			return false
		}
		return math.Abs(2*s.Kinetic+s.Potential)/math.Abs(s.Potential) <= tol
	})
}

// DriftWithin reports habitable while total energy stays within tol of
// baseline, relative to |baseline|.
func DriftWithin(baseline, tol float64) dynamo.Habitability {
	return dynamo.HabitabilityFunc(func(s dynamo.EnergyStats) bool {
		if baseline == 0 {
			return math.Abs(s.Total) <= tol
		}
		return math.Abs(s.Total-baseline)/math.Abs(baseline) <= tol
	})
}

// Policy names accepted by Habitability.
const (
	PolicyBound  = "bound"
	PolicyAlways = "always"
	PolicyVirial = "virial"
	PolicyDrift  = "drift"
)

// Habitability resolves a named policy. tol is used by virial and drift;
// baseline only by drift.
func Habitability(policy string, tol, baseline float64) (dynamo.Habitability, error) {
	switch policy {
	case "", PolicyBound:
		return Bound, nil
	case PolicyAlways:
		return Always, nil
	case PolicyVirial:
		if !(tol > 0) {
			return nil, dynamo.Invalid("habitability.tolerance", "must be positive, got %g", tol)
		}
		return VirialWithin(tol), nil
	case PolicyDrift:
		if !(tol > 0) {
			return nil, dynamo.Invalid("habitability.tolerance", "must be positive, got %g", tol)
		}
		return DriftWithin(baseline, tol), nil
	default:
		return nil, dynamo.Invalid("habitability.policy", "unknown policy %q", policy)
	}
}
