package integrators

import (
	"fmt"
	"math"
	"testing"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r3"
)

// disc places n unit masses on a circle of radius 10.
func disc(n int) dynamo.State {
	x := make(dynamo.State, n)
	for i := range x {
		a := 2 * math.Pi * float64(i) / float64(n)
		x[i] = dynamo.Body{
			Mass:     1,
			Position: r3.Vec{X: 10 * math.Cos(a), Y: 10 * math.Sin(a)},
			Velocity: r3.Vec{X: -math.Sin(a), Y: math.Cos(a)},
		}
	}
	return x
}

func BenchmarkGravityEuler(b *testing.B) {
	for _, n := range []int{8, 64, 256} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			g := physics.NewGravity(1, 0.1)
			integ := NewEuler()
			x := disc(n)
			acc := make([]r3.Vec, n)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				g.Accelerations(x, acc)
				integ.Step(x, acc, 0.001)
			}
		})
	}
}
