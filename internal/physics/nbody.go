package physics

import (
	"math"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// MinDistance2 is the floor for softened squared separations.
const MinDistance2 = 1e-18

// Gravity is the softened Newtonian field for a fixed G and softening length.
type Gravity struct {
	G         float64
	Softening float64
}

func NewGravity(g, softening float64) *Gravity {
	return &Gravity{G: g, Softening: softening}
}

// SofteningDistance2 returns |r|² + ε², floored at MinDistance2.
func SofteningDistance2(r r3.Vec, softening float64) float64 {
	d2 := r3.Norm2(r) + softening*softening
	if d2 < MinDistance2 {
		return MinDistance2
	}
	return d2
}

// Accelerations writes the gravitational acceleration of every body into acc,
// which must have len(x) entries. Existing contents are overwritten.
func (g *Gravity) Accelerations(x dynamo.State, acc []r3.Vec) {
	n := len(x)
	for i := range acc[:n] {
		acc[i] = r3.Vec{}
	}

	for i := 0; i < n; i++ {
		pi := x[i].Position

		for j := i + 1; j < n; j++ {
			r := r3.Sub(x[j].Position, pi)
			d2 := SofteningDistance2(r, g.Softening)

			rInv := 1.0 / math.Sqrt(d2)
			r3Inv := rInv * rInv * rInv

			acc[i] = r3.Add(acc[i], r3.Scale(g.G*x[j].Mass*r3Inv, r))
			acc[j] = r3.Sub(acc[j], r3.Scale(g.G*x[i].Mass*r3Inv, r))
		}
	}
}

// Potential returns Σ over distinct pairs of −G·m_i·m_j/d.
func (g *Gravity) Potential(x dynamo.State) float64 {
	pe := 0.0
	for i := 0; i < len(x); i++ {
		for j := i + 1; j < len(x); j++ {
			r := r3.Sub(x[j].Position, x[i].Position)
			d := math.Sqrt(SofteningDistance2(r, g.Softening))
			pe -= g.G * x[i].Mass * x[j].Mass / d
		}
	}
	return pe
}

// Kinetic returns Σ ½·m·|v|².
func Kinetic(x dynamo.State) float64 {
	ke := 0.0
	for _, b := range x {
		ke += 0.5 * b.Mass * r3.Norm2(b.Velocity)
	}
	return ke
}

func Momentum(x dynamo.State) r3.Vec {
	var p r3.Vec
	for _, b := range x {
		p = r3.Add(p, r3.Scale(b.Mass, b.Velocity))
	}
	return p
}

// AngularMomentum is taken about the origin.
func AngularMomentum(x dynamo.State) r3.Vec {
	var l r3.Vec
	for _, b := range x {
		l = r3.Add(l, r3.Scale(b.Mass, r3.Cross(b.Position, b.Velocity)))
	}
	return l
}

// CenterOfMass returns the mass-weighted centroid position and velocity.
func CenterOfMass(x dynamo.State) (pos, vel r3.Vec) {
	m := x.TotalMass()
	if m == 0 {
		return
	}
	for _, b := range x {
		pos = r3.Add(pos, r3.Scale(b.Mass, b.Position))
		vel = r3.Add(vel, r3.Scale(b.Mass, b.Velocity))
	}
	return r3.Scale(1/m, pos), r3.Scale(1/m, vel)
}

// CircularSpeed is the speed of a test body on a circular orbit of radius r
// around a point mass m.
func CircularSpeed(g, m, r float64) float64 {
	if r <= 0 {
		return 0
	}
	return math.Sqrt(g * m / r)
}
