// Package control provides corrective acceleration laws for body formations.
//
// Laws implement [dynamo.AccelerationLaw] and are built by factories matching
// [dynamo.LawFactory], which read an initial-condition snapshot plus named
// numeric parameters:
//
//   - [RingKeeper]: station-keeper holding a ring subset near a target
//     radius and angular speed (PD control in the subset's orbital frame)
//   - [Drag]: linear damping of each non-star body's velocity relative to
//     the centre of mass
//   - [None]: zero correction for every body
//
// # Usage
//
//	law, err := control.NewRingKeeper(bodies, map[string]float64{"kr": 6})
//	cfg := dynamo.DefaultConfig()
//	cfg.Controller = law
//	engine, err := sim.New(bodies, cfg)
//
// Laws are stateless: every value they use is fixed at construction, so the
// same law may be shared by engines replaying the same scenario.
package control
