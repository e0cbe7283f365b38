// Package analysis characterizes sampled simulation output.
//
//   - [Spectrum] and [DominantPeriod]: power spectrum of an evenly sampled
//     series, e.g. total energy or ring radius
//   - [Summarize]: mean, spread and range of a series
//   - [DivergenceRate]: exponential growth rate of the separation between two
//     runs started a small perturbation apart
//
// A positive divergence rate well above zero marks an unstable configuration:
//
//	rate, err := analysis.DivergenceRate(build, x0, analysis.DivergenceOptions{Dt: 0.01, Duration: 50})
//	if rate > 0.1 {
//	    // perturbations grow
//	}
package analysis
