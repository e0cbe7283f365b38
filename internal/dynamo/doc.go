// Package dynamo provides the core data model for gravitational simulation.
//
// The package defines the types shared by every other package:
//
//   - [Body]: a massive point body with cosmetic attributes
//   - [State]: the ordered, index-stable body sequence an engine owns
//   - [Config]: construction-time engine parameters
//   - [AccelerationLaw]: a corrective control law evaluated once per step
//   - [EnergyStats]: kinetic/potential/total energy and a habitability flag
//   - [Habitability]: the pluggable classification policy for EnergyStats
//
// # Example
//
//	bodies := scenario.Binary(map[string]float64{"separation": 2})
//	cfg := dynamo.DefaultConfig()
//	engine, err := sim.New(bodies, cfg)
//	for i := 0; i < 1000; i++ {
//	    engine.Step(cfg.TimeStep)
//	}
//
// # Thread Safety
//
// Nothing in this package synchronizes access. A [State] owned by an engine
// must only be touched by the goroutine driving that engine.
package dynamo
