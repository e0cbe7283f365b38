// Package scenario builds initial body sets. Every scenario is a pure function
// of named numeric parameters; absent parameters take documented defaults.
package scenario

import (
	"math"
	"sort"

	"github.com/san-kum/orbitsim/internal/dynamo"
)

type Params map[string]float64

// Func builds an initial state from params.
type Func func(p Params) (dynamo.State, error)

// Get returns p[key], or def when key is absent.
func (p Params) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

func (p Params) positive(key string, def float64) (float64, error) {
	v := p.Get(key, def)
	if !(v > 0) || math.IsInf(v, 0) {
		return 0, dynamo.Invalid(key, "must be positive, got %g", v)
	}
	return v, nil
}

func (p Params) count(key string, def, min int) (int, error) {
	v := p.Get(key, float64(def))
	n := int(v)
	if float64(n) != v || n < min {
		return 0, dynamo.Invalid(key, "must be an integer of at least %d, got %g", min, v)
	}
	return n, nil
}

var catalog = map[string]Func{
	"binary":       Binary,
	"ring":         Ring,
	"star-ring":    StarRing,
	"figure8":      Figure8,
	"inner-system": InnerSystem,
}

// Lookup returns the named built-in scenario.
func Lookup(name string) (Func, bool) {
	fn, ok := catalog[name]
	return fn, ok
}

// Names lists the built-in scenarios in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
