package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Summary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	// MaxDrift is the largest |v − v₀| / |v₀|, or 0 when v₀ is zero.
	MaxDrift float64 `json:"max_drift"`
}

func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	var s Summary
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		s.StdDev = 0
	}
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)

	if v0 := values[0]; v0 != 0 {
		for _, v := range values {
			s.MaxDrift = math.Max(s.MaxDrift, math.Abs(v-v0)/math.Abs(v0))
		}
	}
	return s
}
