package control

import (
	"fmt"
	"math"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

const degenerate = 1e-12

// DefaultNormal is the orbital-plane normal used when the subset's angular
// momentum vanishes.
var DefaultNormal = r3.Vec{Z: 1}

// RingKeys are the parameter keys RingKeeper accepts besides the gains.
var RingKeys = []string{"ring_first", "ring_count", "target_radius", "target_omega"}

// RingKeeper holds a subset of bodies near a circular configuration of radius
// TargetRadius rotating at TargetOmega about the subset's centroid.
type RingKeeper struct {
	Gains        Gains
	TargetRadius float64
	TargetOmega  float64

	members []int
	inRing  []bool
}

// NewRingKeeper builds a station-keeper from an initial snapshot. The ring
// subset is every non-star body unless ring_first/ring_count name an index
// range. Targets are the mass-weighted mean radius and angular speed about the
// origin unless target_radius/target_omega are given.
func NewRingKeeper(initial dynamo.State, params map[string]float64) (*RingKeeper, error) {
	if err := CheckKeys(params, RingKeys...); err != nil {
		return nil, err
	}
	gains, err := ParseGains(params)
	if err != nil {
		return nil, err
	}

	members, err := selectMembers(initial, params)
	if err != nil {
		return nil, err
	}

	radii := make([]float64, len(members))
	omegas := make([]float64, len(members))
	weights := make([]float64, len(members))
	for k, i := range members {
		b := initial[i]
		r := r3.Norm(b.Position)
		radii[k] = r
		if r > degenerate {
			omegas[k] = r3.Norm(r3.Cross(b.Position, b.Velocity)) / (r * r)
		}
		weights[k] = b.Mass
	}

	rk := &RingKeeper{
		Gains:        gains,
		TargetRadius: stat.Mean(radii, weights),
		TargetOmega:  stat.Mean(omegas, weights),
		members:      members,
		inRing:       make([]bool, len(initial)),
	}
	for _, i := range members {
		rk.inRing[i] = true
	}

	if v, ok := params["target_radius"]; ok {
		if !(v > 0) {
			return nil, dynamo.Invalid("target_radius", "must be positive, got %g", v)
		}
		rk.TargetRadius = v
	}
	if v, ok := params["target_omega"]; ok {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, dynamo.Invalid("target_omega", "must be finite, got %g", v)
		}
		rk.TargetOmega = v
	}
	if !(rk.TargetRadius > degenerate) {
		return nil, dynamo.Invalid("ring", "members sit at the origin; target radius is undefined")
	}

	return rk, nil
}

// RingKeeperFactory is the dynamo.LawFactory for RingKeeper.
func RingKeeperFactory(initial dynamo.State, params map[string]float64) (dynamo.AccelerationLaw, error) {
	return NewRingKeeper(initial, params)
}

func selectMembers(initial dynamo.State, params map[string]float64) ([]int, error) {
	first, hasFirst := params["ring_first"]
	count, hasCount := params["ring_count"]

	if hasFirst || hasCount {
		lo, err := index("ring_first", first, len(initial)-1)
		if err != nil {
			return nil, err
		}
		n := len(initial) - lo
		if hasCount {
			if n, err = index("ring_count", count, n); err != nil {
				return nil, err
			}
		}
		if n == 0 {
			return nil, dynamo.Invalid("ring", "empty index range starting at %d", lo)
		}
		members := make([]int, n)
		for k := range members {
			members[k] = lo + k
		}
		return members, nil
	}

	var members []int
	for i, b := range initial {
		if !b.IsStar {
			members = append(members, i)
		}
	}
	if len(members) == 0 {
		return nil, dynamo.Invalid("ring", "no non-star bodies to keep")
	}
	return members, nil
}

// index checks that v is a whole number in [0, limit].
func index(key string, v float64, limit int) (int, error) {
	if !(v >= 0) || v > float64(limit) || v != math.Trunc(v) {
		return 0, dynamo.Invalid(key, "must be an integer in [0, %d], got %g", limit, v)
	}
	return int(v), nil
}

// Members returns the indices of the ring subset.
func (rk *RingKeeper) Members() []int {
	out := make([]int, len(rk.members))
	copy(out, rk.members)
	return out
}

func (rk *RingKeeper) GetParams() map[string]float64 {
	p := rk.Gains.GetParams()
	p["target_radius"] = rk.TargetRadius
	p["target_omega"] = rk.TargetOmega
	return p
}

// centroid returns the subset's mass-weighted centre position and velocity.
func (rk *RingKeeper) centroid(x dynamo.State) (pos, vel r3.Vec) {
	m := 0.0
	for _, i := range rk.members {
		b := x[i]
		pos = r3.Add(pos, r3.Scale(b.Mass, b.Position))
		vel = r3.Add(vel, r3.Scale(b.Mass, b.Velocity))
		m += b.Mass
	}
	return r3.Scale(1/m, pos), r3.Scale(1/m, vel)
}

// normal returns the unit normal of the subset's orbital plane about c.
func (rk *RingKeeper) normal(x dynamo.State, c, cv r3.Vec) r3.Vec {
	var l r3.Vec
	for _, i := range rk.members {
		b := x[i]
		rel := r3.Sub(b.Position, c)
		relv := r3.Sub(b.Velocity, cv)
		l = r3.Add(l, r3.Scale(b.Mass, r3.Cross(rel, relv)))
	}
	mag := r3.Norm(l)
	if mag < degenerate {
		return DefaultNormal
	}
	return r3.Scale(1/mag, l)
}

func (rk *RingKeeper) Accelerations(x dynamo.State, t float64) []r3.Vec {
	out := make([]r3.Vec, len(x))
	if len(x) != len(rk.inRing) {
		return out
	}

	c, cv := rk.centroid(x)
	n := rk.normal(x, c, cv)
	g := rk.Gains

	for _, i := range rk.members {
		rel := r3.Sub(x[i].Position, c)
		relv := r3.Sub(x[i].Velocity, cv)

		r := r3.Norm(rel)
		if r < degenerate {
			continue
		}
		rHat := r3.Scale(1/r, rel)
		tHat := r3.Cross(n, rHat)

		vr := r3.Dot(relv, rHat)
		vt := r3.Dot(relv, tHat)

		aR := g.RadialStiffness*(rk.TargetRadius-r) - g.RadialDamping*vr
		aT := g.TangentialStiffness*(rk.TargetOmega*r-vt) - g.TangentialDamping*vt

		a := r3.Add(r3.Scale(aR, rHat), r3.Scale(aT, tHat))
		a = r3.Sub(a, r3.Scale(g.Drag, relv))
		out[i] = Clamp(a, g.MaxAccel)
	}

	return out
}

// RadiusError returns the mean |r − r*| / r* over the subset, with r measured
// from the subset centroid.
func (rk *RingKeeper) RadiusError(x dynamo.State) float64 {
	if len(x) != len(rk.inRing) {
		return math.NaN()
	}
	c, _ := rk.centroid(x)
	sum := 0.0
	for _, i := range rk.members {
		sum += math.Abs(r3.Norm(r3.Sub(x[i].Position, c)) - rk.TargetRadius)
	}
	return sum / float64(len(rk.members)) / rk.TargetRadius
}

// MeanRadius returns the mass-weighted mean distance of the subset from its
// centroid.
func (rk *RingKeeper) MeanRadius(x dynamo.State) float64 {
	c, _ := rk.centroid(x)
	radii := make([]float64, len(rk.members))
	weights := make([]float64, len(rk.members))
	for k, i := range rk.members {
		radii[k] = r3.Norm(r3.Sub(x[i].Position, c))
		weights[k] = x[i].Mass
	}
	return stat.Mean(radii, weights)
}

func (rk *RingKeeper) String() string {
	return fmt.Sprintf("ring(%d bodies, r*=%.4g, ω*=%.4g)", len(rk.members), rk.TargetRadius, rk.TargetOmega)
}

// Clamp rescales v to magnitude limit when it is longer, preserving direction.
func Clamp(v r3.Vec, limit float64) r3.Vec {
	mag := r3.Norm(v)
	if mag <= limit || mag == 0 {
		return v
	}
	return r3.Scale(limit/mag, v)
}
