package sim_test

import (
	"errors"
	"fmt"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orbitsim/internal/control"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/metrics"
	"github.com/san-kum/orbitsim/internal/physics"
	"github.com/san-kum/orbitsim/internal/sim"
)

// binary is two unit masses on a circular orbit of separation 2 about the
// origin (G = 1, period 4π).
func binary() dynamo.State {
	return dynamo.State{
		{Name: "a", Mass: 1, Radius: 0.1, Position: r3.Vec{X: 1}, Velocity: r3.Vec{Y: 0.5}},
		{Name: "b", Mass: 1, Radius: 0.1, Position: r3.Vec{X: -1}, Velocity: r3.Vec{Y: -0.5}},
	}
}

// starRing places n light bodies at radius r with tangential speed v around
// a star of mass 1000 at index 0.
func starRing(n int, r, v float64) dynamo.State {
	x := dynamo.State{{Name: "star", Mass: 1000, Radius: 1, IsStar: true}}
	for k := 0; k < n; k++ {
		th := 2 * math.Pi * float64(k) / float64(n)
		c, s := math.Cos(th), math.Sin(th)
		x = append(x, dynamo.Body{
			Name:     fmt.Sprintf("p%d", k),
			Mass:     1e-3,
			Radius:   0.1,
			Position: r3.Vec{X: r * c, Y: r * s},
			Velocity: r3.Vec{X: -v * s, Y: v * c},
		})
	}
	return x
}

func config(softening float64) dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.Softening = softening
	return cfg
}

func separation(e *sim.Engine) float64 {
	a, _ := e.Body(0)
	b, _ := e.Body(1)
	return r3.Norm(r3.Sub(a.Position, b.Position))
}

type constantLaw []r3.Vec

func (c constantLaw) Accelerations(dynamo.State, float64) []r3.Vec { return c }

var _ = Describe("Engine", func() {
	Describe("construction", func() {
		DescribeTable("rejects invalid input",
			func(mutate func(x dynamo.State, cfg *dynamo.Config) dynamo.State, field string) {
				cfg := config(0.01)
				x := mutate(binary(), &cfg)

				e, err := sim.New(x, cfg)
				Expect(e).To(BeNil())
				Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())

				var ce *dynamo.ConfigurationError
				Expect(errors.As(err, &ce)).To(BeTrue())
				Expect(ce.Field).To(Equal(field))
			},
			Entry("no bodies", func(x dynamo.State, _ *dynamo.Config) dynamo.State { return nil }, "bodies"),
			Entry("zero mass", func(x dynamo.State, _ *dynamo.Config) dynamo.State { x[1].Mass = 0; return x }, "bodies[1].mass"),
			Entry("negative mass", func(x dynamo.State, _ *dynamo.Config) dynamo.State { x[0].Mass = -2; return x }, "bodies[0].mass"),
			Entry("NaN position", func(x dynamo.State, _ *dynamo.Config) dynamo.State { x[0].Position.Y = math.NaN(); return x }, "bodies"),
			Entry("infinite velocity", func(x dynamo.State, _ *dynamo.Config) dynamo.State { x[1].Velocity.Z = math.Inf(1); return x }, "bodies"),
			Entry("zero G", func(x dynamo.State, c *dynamo.Config) dynamo.State { c.G = 0; return x }, "g"),
			Entry("zero time step", func(x dynamo.State, c *dynamo.Config) dynamo.State { c.TimeStep = 0; return x }, "time_step"),
			Entry("negative softening", func(x dynamo.State, c *dynamo.Config) dynamo.State { c.Softening = -0.1; return x }, "softening"),
			Entry("zero sample interval", func(x dynamo.State, c *dynamo.Config) dynamo.State { c.EnergySampleInterval = 0; return x }, "energy_sample_interval"),
		)

		It("copies the initial bodies", func() {
			x := binary()
			e, err := sim.New(x, config(0))
			Expect(err).NotTo(HaveOccurred())

			x[0].Position = r3.Vec{X: 100}
			b, ok := e.Body(0)
			Expect(ok).To(BeTrue())
			Expect(b.Position).To(Equal(r3.Vec{X: 1}))
		})

		It("defaults habitability to Bound", func() {
			e, err := sim.New(binary(), config(0))
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Config().Habitability).NotTo(BeNil())
			Expect(e.Stats().Habitable).To(BeTrue())
		})
	})

	Describe("Step", func() {
		It("rejects non-positive and non-finite increments without side effects", func() {
			e, err := sim.New(binary(), config(0))
			Expect(err).NotTo(HaveOccurred())
			before := e.Bodies()

			for _, dt := range []float64{0, -0.01, math.NaN(), math.Inf(1)} {
				Expect(errors.Is(e.Step(dt), dynamo.ErrInvalidStep)).To(BeTrue(), "dt=%v", dt)
			}
			Expect(e.Bodies()).To(Equal(before))
			Expect(e.Time()).To(BeZero())
			Expect(e.Steps()).To(BeZero())
		})

		It("advances time and step count", func() {
			e, err := sim.New(binary(), config(0))
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 4; i++ {
				Expect(e.Step(0.25)).To(Succeed())
			}
			Expect(e.Steps()).To(Equal(4))
			Expect(e.Time()).To(BeNumerically("~", 1.0, 1e-12))
		})

		It("is deterministic", func() {
			law, err := control.NewRingKeeper(starRing(6, 10, 10), nil)
			Expect(err).NotTo(HaveOccurred())
			cfg := config(0.01)
			cfg.Controller = law

			a, err := sim.New(starRing(6, 11, 9), cfg)
			Expect(err).NotTo(HaveOccurred())
			b, err := sim.New(starRing(6, 11, 9), cfg)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 2000; i++ {
				Expect(a.Step(0.001)).To(Succeed())
				Expect(b.Step(0.001)).To(Succeed())
			}
			Expect(a.Bodies()).To(Equal(b.Bodies()))
			Expect(a.Stats()).To(Equal(b.Stats()))
		})

		It("keeps the two-body circular orbit within 5% over several periods", func() {
			e, err := sim.New(binary(), config(0))
			Expect(err).NotTo(HaveOccurred())

			periods := 5 * 4 * math.Pi
			steps := int(periods / 0.001)
			for i := 0; i < steps; i++ {
				Expect(e.Step(0.001)).To(Succeed())
				if i%100 == 0 {
					Expect(separation(e)).To(BeNumerically("~", 2.0, 0.1))
				}
			}
		})

		It("bounds energy drift below 5% without a controller", func() {
			e, err := sim.New(binary(), config(0.01))
			Expect(err).NotTo(HaveOccurred())
			e0 := e.Stats().Total

			for i := 0; i < 30000; i++ {
				Expect(e.Step(0.001)).To(Succeed())
			}
			drift := math.Abs(e.Stats().Total-e0) / math.Abs(e0)
			Expect(drift).To(BeNumerically("<", 0.05))
		})

		DescribeTable("stays finite for coincident and near-coincident bodies",
			func(offset, softening float64) {
				x := dynamo.State{
					{Name: "a", Mass: 1, Position: r3.Vec{X: offset}},
					{Name: "b", Mass: 1},
				}
				e, err := sim.New(x, config(softening))
				Expect(err).NotTo(HaveOccurred())

				for i := 0; i < 10; i++ {
					Expect(e.Step(0.001)).To(Succeed())
				}
				Expect(e.Bodies().IsValid()).To(BeTrue())
				s := e.Stats()
				Expect(math.IsNaN(s.Total) || math.IsInf(s.Total, 0)).To(BeFalse())
			},
			Entry("coincident, no softening", 0.0, 0.0),
			Entry("coincident, softened", 0.0, 0.01),
			Entry("1e-12 apart, no softening", 1e-12, 0.0),
			Entry("1e-9 apart, softened", 1e-9, 0.01),
		)

		It("keeps body identity at each index", func() {
			e, err := sim.New(starRing(5, 10, 10), config(0.01))
			Expect(err).NotTo(HaveOccurred())
			initial := e.Bodies()

			for i := 0; i < 500; i++ {
				Expect(e.Step(0.001)).To(Succeed())
			}
			now := e.Bodies()
			Expect(now).To(HaveLen(len(initial)))
			for i := range initial {
				Expect(now[i].Name).To(Equal(initial[i].Name))
				Expect(now[i].Mass).To(Equal(initial[i].Mass))
				Expect(now[i].IsStar).To(Equal(initial[i].IsStar))
			}
		})

		It("adds short corrections to the leading bodies only", func() {
			cfg := config(0)
			cfg.G = 1e-12
			cfg.Controller = constantLaw{{X: 1}}
			x := dynamo.State{
				{Name: "a", Mass: 1, Position: r3.Vec{Y: 1e6}},
				{Name: "b", Mass: 1, Position: r3.Vec{Y: -1e6}},
			}
			e, err := sim.New(x, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Step(1)).To(Succeed())

			a, _ := e.Body(0)
			b, _ := e.Body(1)
			Expect(a.Velocity.X).To(BeNumerically("~", 1, 1e-9))
			Expect(b.Velocity.X).To(BeNumerically("~", 0, 1e-9))
			Expect(e.Control()).To(Equal([]r3.Vec{{X: 1}, {}}))
		})

		It("drops extra corrections", func() {
			cfg := config(0)
			cfg.Controller = constantLaw{{}, {}, {X: 5}}
			e, err := sim.New(binary(), cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Step(0.001)).To(Succeed())
			Expect(e.Control()).To(HaveLen(2))
		})
	})

	Describe("ring station-keeping", func() {
		const targetRadius = 10.0

		run := func(params map[string]float64, steps int, check func(e *sim.Engine)) (*sim.Engine, *control.RingKeeper) {
			law, err := control.NewRingKeeper(starRing(6, targetRadius, 10), params)
			Expect(err).NotTo(HaveOccurred())
			cfg := config(0.01)
			cfg.Controller = law

			e, err := sim.New(starRing(6, 12, 12), cfg)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < steps; i++ {
				Expect(e.Step(0.001)).To(Succeed())
				if check != nil {
					check(e)
				}
			}
			return e, law
		}

		It("converges the mean ring radius to the target", func() {
			e, law := run(map[string]float64{"ct": 0, "drag": 0}, 20000, nil)
			Expect(law.TargetRadius).To(BeNumerically("~", targetRadius, 1e-9))
			Expect(law.MeanRadius(e.Bodies())).To(BeNumerically("~", targetRadius, 0.2))
			Expect(law.RadiusError(e.Bodies())).To(BeNumerically("<", 0.02))
		})

		It("settles near the target with default gains", func() {
			e, law := run(nil, 20000, nil)
			Expect(law.MeanRadius(e.Bodies())).To(BeNumerically("~", targetRadius, 1.0))
		})

		It("never applies a correction above the cap", func() {
			const limit = 0.5
			run(map[string]float64{"max_accel": limit}, 3000, func(e *sim.Engine) {
				for _, u := range e.Control() {
					Expect(r3.Norm(u)).To(BeNumerically("<=", limit+1e-12))
				}
			})
		})

		It("leaves the star uncorrected", func() {
			run(nil, 10, func(e *sim.Engine) {
				Expect(e.Control()[0]).To(Equal(r3.Vec{}))
			})
		})
	})

	Describe("stats", func() {
		It("matches the energy model on the same bodies", func() {
			cfg := config(0.05)
			e, err := sim.New(starRing(4, 8, 11), cfg)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 100; i++ {
				Expect(e.Step(0.001)).To(Succeed())
			}

			want := metrics.NewEnergyModel(cfg.G, cfg.Softening, metrics.Bound).Compute(e.Bodies())
			Expect(e.Stats()).To(Equal(want))
		})

		It("reports kinetic energy equal to an independent sum", func() {
			e, err := sim.New(starRing(3, 5, 14), config(0.01))
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Step(0.01)).To(Succeed())

			ke := 0.0
			for _, b := range e.Bodies() {
				ke += 0.5 * b.Mass * r3.Norm2(b.Velocity)
			}
			Expect(e.Stats().Kinetic).To(Equal(ke))
			Expect(e.Stats().Kinetic).To(Equal(physics.Kinetic(e.Bodies())))
		})

		It("pushes stats every sample interval after the update", func() {
			cfg := config(0)
			cfg.EnergySampleInterval = 10
			e, err := sim.New(binary(), cfg)
			Expect(err).NotTo(HaveOccurred())

			var got []int
			e.SetStatsCallback(func(s dynamo.EnergyStats) {
				Expect(s).To(Equal(e.Stats()))
				got = append(got, e.Steps())
			})
			for i := 0; i < 35; i++ {
				Expect(e.Step(0.001)).To(Succeed())
			}
			Expect(got).To(Equal([]int{10, 20, 30}))
		})

		It("replaces and clears the callback", func() {
			cfg := config(0)
			cfg.EnergySampleInterval = 1
			e, err := sim.New(binary(), cfg)
			Expect(err).NotTo(HaveOccurred())

			first, second := 0, 0
			e.SetStatsCallback(func(dynamo.EnergyStats) { first++ })
			Expect(e.Step(0.001)).To(Succeed())
			e.SetStatsCallback(func(dynamo.EnergyStats) { second++ })
			Expect(e.Step(0.001)).To(Succeed())
			e.SetStatsCallback(nil)
			Expect(e.Step(0.001)).To(Succeed())

			Expect(first).To(Equal(1))
			Expect(second).To(Equal(1))
		})

		It("honours an injected habitability policy", func() {
			cfg := config(0)
			cfg.Habitability = dynamo.HabitabilityFunc(func(s dynamo.EnergyStats) bool { return s.Kinetic > 100 })
			e, err := sim.New(binary(), cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Stats().Habitable).To(BeFalse())
		})
	})

	Describe("Bodies", func() {
		It("returns an isolated copy", func() {
			e, err := sim.New(binary(), config(0))
			Expect(err).NotTo(HaveOccurred())

			out := e.Bodies()
			out[0].Position = r3.Vec{X: 42}
			out[1].Mass = 99

			again := e.Bodies()
			Expect(again[0].Position).To(Equal(r3.Vec{X: 1}))
			Expect(again[1].Mass).To(Equal(1.0))
			Expect(e.Len()).To(Equal(2))
		})

		It("reports out-of-range indices", func() {
			e, err := sim.New(binary(), config(0))
			Expect(err).NotTo(HaveOccurred())
			_, ok := e.Body(2)
			Expect(ok).To(BeFalse())
			_, ok = e.Body(-1)
			Expect(ok).To(BeFalse())
		})
	})
})
