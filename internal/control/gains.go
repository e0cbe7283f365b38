package control

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/san-kum/orbitsim/internal/dynamo"
)

// Gains for the ring station-keeper. Defaults are tuned for G = 1 and target
// angular speeds near 1; scale stiffness with ω*² and damping with ω* for
// other unit systems.
type Gains struct {
	RadialStiffness     float64
	RadialDamping       float64
	TangentialStiffness float64
	TangentialDamping   float64
	Drag                float64
	MaxAccel            float64
}

const (
	DefaultRadialStiffness     = 4.0
	DefaultRadialDamping       = 3.0
	DefaultTangentialStiffness = 2.0
	DefaultTangentialDamping   = 0.05
	DefaultDrag                = 0.01
	DefaultMaxAccel            = 50.0
)

func DefaultGains() Gains {
	return Gains{
		RadialStiffness:     DefaultRadialStiffness,
		RadialDamping:       DefaultRadialDamping,
		TangentialStiffness: DefaultTangentialStiffness,
		TangentialDamping:   DefaultTangentialDamping,
		Drag:                DefaultDrag,
		MaxAccel:            DefaultMaxAccel,
	}
}

type paramRange struct {
	min, max     float64
	exclusiveMin bool
}

func (r paramRange) contains(v float64) bool {
	if math.IsNaN(v) || v > r.max {
		return false
	}
	if r.exclusiveMin {
		return v > r.min
	}
	return v >= r.min
}

func (r paramRange) String() string {
	open := "["
	if r.exclusiveMin {
		open = "("
	}
	return fmt.Sprintf("%s%g, %g]", open, r.min, r.max)
}

// GainRanges lists the accepted range for every gain parameter key.
var GainRanges = map[string]paramRange{
	"kr":        {0, 1e4, false},
	"cr":        {0, 1e4, false},
	"kt":        {0, 1e4, false},
	"ct":        {0, 1e4, false},
	"drag":      {0, 1e3, false},
	"max_accel": {0, 1e6, true},
}

// GainKeys returns the gain parameter keys in sorted order.
func GainKeys() []string {
	keys := make([]string, 0, len(GainRanges))
	for k := range GainRanges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (g *Gains) GetParams() map[string]float64 {
	return map[string]float64{
		"kr":        g.RadialStiffness,
		"cr":        g.RadialDamping,
		"kt":        g.TangentialStiffness,
		"ct":        g.TangentialDamping,
		"drag":      g.Drag,
		"max_accel": g.MaxAccel,
	}
}

// SetParam adjusts one gain after checking its range.
func (g *Gains) SetParam(name string, value float64) error {
	r, ok := GainRanges[name]
	if !ok {
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	if !r.contains(value) {
		return dynamo.Invalid(name, "must be in %s, got %g", r, value)
	}

	switch name {
	case "kr":
		g.RadialStiffness = value
	case "cr":
		g.RadialDamping = value
	case "kt":
		g.TangentialStiffness = value
	case "ct":
		g.TangentialDamping = value
	case "drag":
		g.Drag = value
	case "max_accel":
		g.MaxAccel = value
	}
	return nil
}

// ParseGains overlays the gain keys present in params onto the defaults.
// Keys that are not gains are ignored.
func ParseGains(params map[string]float64) (Gains, error) {
	g := DefaultGains()
	for _, key := range GainKeys() {
		v, ok := params[key]
		if !ok {
			continue
		}
		if err := g.SetParam(key, v); err != nil {
			return Gains{}, err
		}
	}
	return g, nil
}

// CheckKeys rejects params keys that are neither gains nor listed in extra.
func CheckKeys(params map[string]float64, extra ...string) error {
	for key := range params {
		if _, ok := GainRanges[key]; ok || slices.Contains(extra, key) {
			continue
		}
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, key)
	}
	return nil
}
