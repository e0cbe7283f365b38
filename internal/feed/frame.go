package feed

import (
	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// BodyFrame is the wire form of one body.
type BodyFrame struct {
	Name     string     `json:"name"`
	Mass     float64    `json:"mass"`
	Radius   float64    `json:"radius,omitempty"`
	Color    string     `json:"color,omitempty"`
	Star     bool       `json:"star,omitempty"`
	Position [3]float64 `json:"position"`
	Velocity [3]float64 `json:"velocity"`
}

// Frame is an immutable snapshot pushed to viewers.
type Frame struct {
	Time   float64            `json:"time"`
	Step   int                `json:"step"`
	Stats  dynamo.EnergyStats `json:"stats"`
	Bodies []BodyFrame        `json:"bodies"`
}

func NewFrame(t float64, step int, stats dynamo.EnergyStats, bodies dynamo.State) Frame {
	f := Frame{Time: t, Step: step, Stats: stats, Bodies: make([]BodyFrame, len(bodies))}
	for i, b := range bodies {
		f.Bodies[i] = BodyFrame{
			Name:     b.Name,
			Mass:     b.Mass,
			Radius:   b.Radius,
			Color:    b.Color,
			Star:     b.IsStar,
			Position: array(b.Position),
			Velocity: array(b.Velocity),
		}
	}
	return f
}

func array(v r3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }
