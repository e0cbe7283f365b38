package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrShortSeries = errors.New("analysis: series too short")
	ErrNoPeak      = errors.New("analysis: series has no spectral peak")
)

// Spectrum returns the one-sided power spectrum of values sampled every dt.
// The mean is removed and a Hann window applied first. freqs[k] is in cycles
// per unit time; the zero-frequency bin is omitted.
func Spectrum(values []float64, dt float64) (freqs, power []float64, err error) {
	n := len(values)
	if n < 4 {
		return nil, nil, ErrShortSeries
	}
	if !(dt > 0) {
		return nil, nil, errors.New("analysis: sample interval must be positive")
	}

	mean := stat.Mean(values, nil)
	windowed := make([]float64, n)
	for i, v := range values {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = (v - mean) * w
	}

	spec := fft.FFTReal(windowed)
	half := n / 2
	freqs = make([]float64, half)
	power = make([]float64, half)
	for k := 1; k <= half; k++ {
		freqs[k-1] = float64(k) / (float64(n) * dt)
		a := cmplx.Abs(spec[k])
		power[k-1] = a * a
	}
	return freqs, power, nil
}

// DominantPeriod returns the period of the strongest spectral peak, refined
// by parabolic interpolation between neighbouring bins. A constant series
// yields ErrNoPeak.
func DominantPeriod(values []float64, dt float64) (float64, error) {
	freqs, power, err := Spectrum(values, dt)
	if err != nil {
		return 0, err
	}

	best := 0
	for k := range power {
		if power[k] > power[best] {
			best = k
		}
	}
	if power[best] == 0 {
		return 0, ErrNoPeak
	}

	f := freqs[best]
	if best > 0 && best < len(power)-1 {
		a, b, c := power[best-1], power[best], power[best+1]
		if den := a - 2*b + c; den != 0 {
			shift := 0.5 * (a - c) / den
			f += shift * (freqs[1] - freqs[0])
		}
	}
	return 1 / f, nil
}
