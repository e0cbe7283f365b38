package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestControlEffort(t *testing.T) {
	c := NewControlEffort()
	if c.Value() != 0 {
		t.Error("expected zero effort before samples")
	}

	c.Observe(nil, []r3.Vec{{X: 3, Y: 4}, {}}, 0)
	c.Observe(nil, []r3.Vec{{Z: 1}, {X: 1}}, 1)

	if c.Value() != 3.5 {
		t.Errorf("Value() = %v, want 3.5", c.Value())
	}
	if c.Peak() != 5 {
		t.Errorf("Peak() = %v, want 5", c.Peak())
	}

	c.Reset()
	if c.Value() != 0 || c.Peak() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestBounded(t *testing.T) {
	b := NewBounded(5)
	near := dynamo.State{{Mass: 1, Position: r3.Vec{X: 1}}, {Mass: 1, Position: r3.Vec{X: -1}}}
	far := dynamo.State{{Mass: 1, Position: r3.Vec{X: 10}}, {Mass: 1, Position: r3.Vec{X: -10}}}

	if b.Value() != 1 {
		t.Error("expected 1 before samples")
	}
	b.Observe(near, nil, 0)
	b.Observe(far, nil, 1)
	if b.Value() != 0.5 {
		t.Errorf("Value() = %v, want 0.5", b.Value())
	}
}

type fixedTracker []float64

func (f *fixedTracker) RadiusError(dynamo.State) float64 {
	v := (*f)[0]
	*f = (*f)[1:]
	return v
}

func TestRingError(t *testing.T) {
	tr := &fixedTracker{0.5, 0.2, math.NaN(), 0.1}
	r := NewRingError(tr, 1.0)

	r.Observe(nil, nil, 0)
	if r.Value() != 0.5 {
		t.Errorf("during warmup Value() = %v, want last sample 0.5", r.Value())
	}
	r.Observe(nil, nil, 1)
	r.Observe(nil, nil, 2)
	r.Observe(nil, nil, 3)

	if math.Abs(r.Value()-0.15) > 1e-12 {
		t.Errorf("Value() = %v, want 0.15", r.Value())
	}
	if r.Last() != 0.1 {
		t.Errorf("Last() = %v, want 0.1", r.Last())
	}
}
