package integrators

import (
	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Euler is the explicit single-pass scheme: every acceleration comes from the
// pre-step positions, then each body takes v += a·dt followed by pos += v·dt
// with the updated velocity.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

// Step advances x in place. acc must be index-aligned with x.
func (e *Euler) Step(x dynamo.State, acc []r3.Vec, dt float64) {
	for i := range x {
		x[i].Velocity = r3.Add(x[i].Velocity, r3.Scale(dt, acc[i]))
		x[i].Position = r3.Add(x[i].Position, r3.Scale(dt, x[i].Velocity))
	}
}
