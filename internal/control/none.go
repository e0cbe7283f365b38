package control

import (
	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

type None struct{}

func NewNone() *None {
	return &None{}
}

// NoneFactory is the dynamo.LawFactory for None.
func NoneFactory(_ dynamo.State, _ map[string]float64) (dynamo.AccelerationLaw, error) {
	return NewNone(), nil
}

func (n *None) Accelerations(x dynamo.State, t float64) []r3.Vec {
	return make([]r3.Vec, len(x))
}
