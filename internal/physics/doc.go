// Package physics provides the softened Newtonian gravity field.
//
// [Gravity] computes pairwise accelerations and potential energy by direct
// O(n²) summation. Both share one softened squared-distance definition,
// [SofteningDistance2], so the force is the gradient of the potential:
//
//	d² = |r_ij|² + ε²
//	a_i += G·m_j·r_ij / d³
//	U   -= G·m_i·m_j / d
//
// Softening bounds the force as bodies approach coincidence, trading a little
// near-field accuracy for numerical stability.
//
// # Known limitation
//
// With ε = 0 two bodies that pass very close still produce very large (but
// finite) accelerations. Only d² below [MinDistance2] is raised to the floor;
// nothing else is clamped.
package physics
