package scenario

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r3"
)

// Binary places two bodies on circular orbits about their common centre of
// mass at the origin.
// Params: m1 (1), m2 (1), separation (2), g (1).
func Binary(p Params) (dynamo.State, error) {
	m1, err := p.positive("m1", 1)
	if err != nil {
		return nil, err
	}
	m2, err := p.positive("m2", 1)
	if err != nil {
		return nil, err
	}
	d, err := p.positive("separation", 2)
	if err != nil {
		return nil, err
	}
	g, err := p.positive("g", 1)
	if err != nil {
		return nil, err
	}

	m := m1 + m2
	v := math.Sqrt(g * m / d)
	r1, r2 := d*m2/m, d*m1/m

	return dynamo.State{
		{Name: "primary", Mass: m1, Radius: bodyRadius(m1), Color: Palette(0, 2),
			Position: r3.Vec{X: r1}, Velocity: r3.Vec{Y: v * m2 / m}},
		{Name: "secondary", Mass: m2, Radius: bodyRadius(m2), Color: Palette(1, 2),
			Position: r3.Vec{X: -r2}, Velocity: r3.Vec{Y: -v * m1 / m}},
	}, nil
}

// ringSum returns Σ 1/sin(πk/n) for k in [1, n), the geometric factor of the
// mutual pull inside a regular ring of n equal masses.
func ringSum(n int) float64 {
	s := 0.0
	for k := 1; k < n; k++ {
		s += 1 / math.Sin(math.Pi*float64(k)/float64(n))
	}
	return s
}

// Ring is n equal masses co-rotating on a circle under their mutual gravity
// alone. The configuration is an equilibrium but unstable.
// Params: n (8), mass (1), radius (10), g (1), jitter (0), seed (1).
func Ring(p Params) (dynamo.State, error) {
	n, err := p.count("n", 8, 2)
	if err != nil {
		return nil, err
	}
	m, err := p.positive("mass", 1)
	if err != nil {
		return nil, err
	}
	r, err := p.positive("radius", 10)
	if err != nil {
		return nil, err
	}
	g, err := p.positive("g", 1)
	if err != nil {
		return nil, err
	}

	v := math.Sqrt(g * m * ringSum(n) / (4 * r))
	return ring(n, m, r, v, p, nil)
}

// StarRing places n light bodies on a circle around a central star.
// Params: n (6), star_mass (1000), mass (0.001), radius (10), g (1),
// jitter (0), seed (1).
func StarRing(p Params) (dynamo.State, error) {
	n, err := p.count("n", 6, 1)
	if err != nil {
		return nil, err
	}
	ms, err := p.positive("star_mass", 1000)
	if err != nil {
		return nil, err
	}
	m, err := p.positive("mass", 1e-3)
	if err != nil {
		return nil, err
	}
	r, err := p.positive("radius", 10)
	if err != nil {
		return nil, err
	}
	g, err := p.positive("g", 1)
	if err != nil {
		return nil, err
	}

	v := math.Sqrt(g * (ms + m*ringSum(n)/4) / r)
	star := &dynamo.Body{Name: "star", Mass: ms, Radius: bodyRadius(ms), Color: StarColor, IsStar: true}
	return ring(n, m, r, v, p, star)
}

func ring(n int, m, r, v float64, p Params, star *dynamo.Body) (dynamo.State, error) {
	jitter := p.Get("jitter", 0)
	if jitter < 0 || jitter >= 1 {
		return nil, dynamo.Invalid("jitter", "must be in [0, 1), got %g", jitter)
	}
	seed := uint64(p.Get("seed", 1))
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	x := make(dynamo.State, 0, n+1)
	if star != nil {
		x = append(x, *star)
	}
	for k := 0; k < n; k++ {
		th := 2 * math.Pi * float64(k) / float64(n)
		c, s := math.Cos(th), math.Sin(th)
		rk := r
		if jitter > 0 {
			rk *= 1 + jitter*(2*rng.Float64()-1)
		}
		x = append(x, dynamo.Body{
			Name:     fmt.Sprintf("ring-%d", k),
			Mass:     m,
			Radius:   bodyRadius(m),
			Color:    Palette(k, n),
			Position: r3.Vec{X: rk * c, Y: rk * s},
			Velocity: r3.Vec{X: -v * s, Y: v * c},
		})
	}
	return x, nil
}

// Figure8 is the periodic three-body choreography for unit masses and G = 1.
// Params: scale (1) stretches lengths by s and velocities by 1/√s.
func Figure8(p Params) (dynamo.State, error) {
	s, err := p.positive("scale", 1)
	if err != nil {
		return nil, err
	}
	vs := 1 / math.Sqrt(s)

	x1 := r3.Vec{X: 0.97000436, Y: -0.24308753}
	v3 := r3.Vec{X: -0.93240737, Y: -0.86473146}
	v1 := r3.Scale(-0.5, v3)

	return dynamo.State{
		{Name: "a", Mass: 1, Radius: 0.05, Color: Palette(0, 3), Position: r3.Scale(s, x1), Velocity: r3.Scale(vs, v1)},
		{Name: "b", Mass: 1, Radius: 0.05, Color: Palette(1, 3), Position: r3.Scale(-s, x1), Velocity: r3.Scale(vs, v1)},
		{Name: "c", Mass: 1, Radius: 0.05, Color: Palette(2, 3), Position: r3.Vec{}, Velocity: r3.Scale(vs, v3)},
	}, nil
}

type planet struct {
	name   string
	mass   float64
	radius float64
	orbit  float64
	phase  float64
	incl   float64
}

var innerPlanets = []planet{
	{"mercury", 1.7e-4, 0.2, 3.9, 0.3, 0.12},
	{"venus", 2.4e-3, 0.3, 7.2, 2.1, 0.06},
	{"earth", 3.0e-3, 0.3, 10, 4.0, 0},
	{"mars", 3.2e-4, 0.25, 15.2, 5.5, 0.03},
}

// InnerSystem is a star with four planets on circular, slightly inclined
// orbits, in units where the third planet's orbit has radius 10.
// Params: star_mass (1000), g (1), scale (1) multiplies orbit radii.
func InnerSystem(p Params) (dynamo.State, error) {
	ms, err := p.positive("star_mass", 1000)
	if err != nil {
		return nil, err
	}
	g, err := p.positive("g", 1)
	if err != nil {
		return nil, err
	}
	scale, err := p.positive("scale", 1)
	if err != nil {
		return nil, err
	}

	x := dynamo.State{{Name: "sun", Mass: ms, Radius: 1, Color: StarColor, IsStar: true}}
	for k, pl := range innerPlanets {
		r := pl.orbit * scale
		v := physics.CircularSpeed(g, ms, r)
		c, s := math.Cos(pl.phase), math.Sin(pl.phase)
		ci, si := math.Cos(pl.incl), math.Sin(pl.incl)
		x = append(x, dynamo.Body{
			Name:     pl.name,
			Mass:     pl.mass,
			Radius:   pl.radius,
			Color:    Palette(k, len(innerPlanets)),
			Position: r3.Vec{X: r * c, Y: r * s * ci, Z: r * s * si},
			Velocity: r3.Vec{X: -v * s, Y: v * c * ci, Z: v * c * si},
		})
	}

	// Put the centre of mass at rest at the origin.
	com, vcom := physics.CenterOfMass(x)
	for i := range x {
		x[i].Position = r3.Sub(x[i].Position, com)
		x[i].Velocity = r3.Sub(x[i].Velocity, vcom)
	}
	return x, nil
}

func bodyRadius(m float64) float64 {
	return math.Max(0.05, 0.2*math.Cbrt(m))
}
