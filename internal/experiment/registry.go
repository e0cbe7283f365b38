package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/orbitsim/internal/control"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/scenario"
)

type Registry struct {
	scenarios   map[string]scenario.Func
	controllers map[string]dynamo.LawFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		scenarios:   make(map[string]scenario.Func),
		controllers: make(map[string]dynamo.LawFactory),
	}

	for _, name := range scenario.Names() {
		fn, _ := scenario.Lookup(name)
		r.scenarios[name] = fn
	}

	r.controllers["drag"] = control.DragFactory
	r.controllers["none"] = control.NoneFactory
	r.controllers["ring"] = control.RingKeeperFactory

	return r
}

// RegisterScenario adds or replaces a scenario.
func (r *Registry) RegisterScenario(name string, fn scenario.Func) {
	r.scenarios[name] = fn
}

// RegisterController adds or replaces a controller factory.
func (r *Registry) RegisterController(name string, fn dynamo.LawFactory) {
	r.controllers[name] = fn
}

func (r *Registry) GetScenario(name string) (scenario.Func, error) {
	fn, ok := r.scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario: %s", name)
	}
	return fn, nil
}

func (r *Registry) GetController(name string) (dynamo.LawFactory, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	return fn, nil
}

func (r *Registry) ListScenarios() []string {
	return sortedKeys(r.scenarios)
}

func (r *Registry) ListControllers() []string {
	return sortedKeys(r.controllers)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
