package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestEuler_UsesUpdatedVelocity(t *testing.T) {
	x := dynamo.State{{Mass: 1, Position: r3.Vec{X: 1}, Velocity: r3.Vec{Y: 2}}}
	acc := []r3.Vec{{X: -4}}

	NewEuler().Step(x, acc, 0.5)

	// v = (0,2) + (-4,0)*0.5 = (-2,2); p = (1,0) + (-2,2)*0.5 = (0,1)
	if x[0].Velocity != (r3.Vec{X: -2, Y: 2}) {
		t.Errorf("velocity = %v, want (-2,2,0)", x[0].Velocity)
	}
	if x[0].Position != (r3.Vec{X: 0, Y: 1}) {
		t.Errorf("position = %v, want (0,1,0)", x[0].Position)
	}
}

func TestEuler_FreeParticle(t *testing.T) {
	x := dynamo.State{{Mass: 1, Velocity: r3.Vec{X: 1, Z: -1}}}
	acc := []r3.Vec{{}}
	integ := NewEuler()

	for i := 0; i < 100; i++ {
		integ.Step(x, acc, 0.01)
	}
	if math.Abs(x[0].Position.X-1) > 1e-12 || math.Abs(x[0].Position.Z+1) > 1e-12 {
		t.Errorf("position = %v, want (1,0,-1)", x[0].Position)
	}
}

// Harmonic oscillator: the scheme is symplectic, so the amplitude stays bounded.
func TestEuler_OscillatorBounded(t *testing.T) {
	x := dynamo.State{{Mass: 1, Position: r3.Vec{X: 1}}}
	acc := make([]r3.Vec, 1)
	integ := NewEuler()
	dt := 0.01

	maxR := 0.0
	for i := 0; i < 10000; i++ {
		acc[0] = r3.Scale(-1, x[0].Position)
		integ.Step(x, acc, dt)
		maxR = math.Max(maxR, r3.Norm(x[0].Position))
	}
	if maxR > 1.01 {
		t.Errorf("amplitude grew to %.4f", maxR)
	}
}

func BenchmarkEuler(b *testing.B) {
	integ := NewEuler()
	x := make(dynamo.State, 8)
	acc := make([]r3.Vec, 8)
	for i := range x {
		x[i].Mass = 1
		acc[i] = r3.Vec{X: 0.1}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		integ.Step(x, acc, 0.001)
	}
}
