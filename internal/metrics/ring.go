package metrics

import (
	"math"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// RadiusTracker is implemented by formation laws that know their target radius.
type RadiusTracker interface {
	RadiusError(x dynamo.State) float64
}

// RingError averages a formation's relative radius error over the samples
// taken after warmup simulated time units.
type RingError struct {
	name    string
	tracker RadiusTracker
	warmup  float64
	sum     float64
	last    float64
	samples int
}

func NewRingError(tracker RadiusTracker, warmup float64) *RingError {
	return &RingError{
		name:    "ring_error",
		tracker: tracker,
		warmup:  warmup,
	}
}

func (r *RingError) Name() string { return r.name }

func (r *RingError) Observe(x dynamo.State, u []r3.Vec, t float64) {
	e := r.tracker.RadiusError(x)
	if math.IsNaN(e) {
		return
	}
	r.last = e
	if t < r.warmup {
		return
	}
	r.sum += e
	r.samples++
}

func (r *RingError) Value() float64 {
	if r.samples == 0 {
		return r.last
	}
	return r.sum / float64(r.samples)
}

// Last returns the most recent sample.
func (r *RingError) Last() float64 { return r.last }

func (r *RingError) Reset() {
	r.sum = 0
	r.last = 0
	r.samples = 0
}
