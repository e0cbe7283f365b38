package control

import (
	"fmt"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Drag is linear velocity feedback on the non-star bodies: each is pushed
// toward the system's centre-of-mass velocity at rate Coefficient.
type Drag struct {
	Coefficient float64
	MaxAccel    float64

	bodies []bool
}

// NewDrag reads the "drag" and "max_accel" keys. The other gain keys are
// accepted and unused.
func NewDrag(initial dynamo.State, params map[string]float64) (*Drag, error) {
	if err := CheckKeys(params); err != nil {
		return nil, err
	}
	gains, err := ParseGains(params)
	if err != nil {
		return nil, err
	}
	d := &Drag{
		Coefficient: gains.Drag,
		MaxAccel:    gains.MaxAccel,
		bodies:      make([]bool, len(initial)),
	}
	found := false
	for i, b := range initial {
		if !b.IsStar {
			d.bodies[i], found = true, true
		}
	}
	if !found {
		return nil, dynamo.Invalid("drag", "no non-star bodies to slow")
	}
	return d, nil
}

// DragFactory is the dynamo.LawFactory for Drag.
func DragFactory(initial dynamo.State, params map[string]float64) (dynamo.AccelerationLaw, error) {
	return NewDrag(initial, params)
}

func (d *Drag) Accelerations(x dynamo.State, t float64) []r3.Vec {
	out := make([]r3.Vec, len(x))
	if len(x) != len(d.bodies) {
		return out
	}

	var cv r3.Vec
	m := 0.0
	for _, b := range x {
		cv = r3.Add(cv, r3.Scale(b.Mass, b.Velocity))
		m += b.Mass
	}
	if m > 0 {
		cv = r3.Scale(1/m, cv)
	}

	for i, b := range x {
		if !d.bodies[i] {
			continue
		}
		a := r3.Scale(-d.Coefficient, r3.Sub(b.Velocity, cv))
		out[i] = Clamp(a, d.MaxAccel)
	}
	return out
}

func (d *Drag) GetParams() map[string]float64 {
	return map[string]float64{"drag": d.Coefficient, "max_accel": d.MaxAccel}
}

func (d *Drag) String() string {
	return fmt.Sprintf("drag(c=%.4g)", d.Coefficient)
}
