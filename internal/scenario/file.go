package scenario

import (
	"fmt"
	"io"
	"os"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// BodySpec is one entry of a YAML body file. Position and velocity are
// [x, y, z] triples; a missing z is zero.
type BodySpec struct {
	Name     string    `yaml:"name"`
	Mass     float64   `yaml:"mass"`
	Radius   float64   `yaml:"radius,omitempty"`
	Color    string    `yaml:"color,omitempty"`
	Star     bool      `yaml:"star,omitempty"`
	Position []float64 `yaml:"position"`
	Velocity []float64 `yaml:"velocity"`
}

type File struct {
	Bodies []BodySpec `yaml:"bodies"`
}

// LoadFile reads a YAML body file from path.
func LoadFile(path string) (dynamo.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	x, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return x, nil
}

// Decode parses a YAML body file, filling in default names, radii and colours.
func Decode(r io.Reader) (dynamo.State, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode bodies: %w", err)
	}
	if len(file.Bodies) == 0 {
		return nil, dynamo.Invalid("bodies", "must not be empty")
	}

	x := make(dynamo.State, len(file.Bodies))
	for i, spec := range file.Bodies {
		b, err := spec.body(i, len(file.Bodies))
		if err != nil {
			return nil, err
		}
		x[i] = b
	}
	return x, nil
}

func (s BodySpec) body(i, n int) (dynamo.Body, error) {
	field := func(name string) string { return fmt.Sprintf("bodies[%d].%s", i, name) }

	if !(s.Mass > 0) {
		return dynamo.Body{}, dynamo.Invalid(field("mass"), "must be positive, got %g", s.Mass)
	}
	pos, err := vec(s.Position)
	if err != nil {
		return dynamo.Body{}, dynamo.Invalid(field("position"), "%v", err)
	}
	vel, err := vec(s.Velocity)
	if err != nil {
		return dynamo.Body{}, dynamo.Invalid(field("velocity"), "%v", err)
	}

	b := dynamo.Body{
		Name:     s.Name,
		Mass:     s.Mass,
		Radius:   s.Radius,
		IsStar:   s.Star,
		Position: pos,
		Velocity: vel,
	}
	if b.Name == "" {
		b.Name = fmt.Sprintf("body-%d", i)
	}
	if b.Radius <= 0 {
		b.Radius = bodyRadius(b.Mass)
	}
	switch {
	case s.Color != "":
		c, err := NormalizeColor(s.Color)
		if err != nil {
			return dynamo.Body{}, dynamo.Invalid(field("color"), "%v", err)
		}
		b.Color = c
	case s.Star:
		b.Color = StarColor
	default:
		b.Color = Palette(i, n)
	}
	return b, nil
}

func vec(v []float64) (r3.Vec, error) {
	switch len(v) {
	case 0:
		return r3.Vec{}, nil
	case 2:
		return r3.Vec{X: v[0], Y: v[1]}, nil
	case 3:
		return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
	default:
		return r3.Vec{}, fmt.Errorf("want 2 or 3 components, got %d", len(v))
	}
}

// Encode writes x as a YAML body file.
func Encode(w io.Writer, x dynamo.State) error {
	file := File{Bodies: make([]BodySpec, len(x))}
	for i, b := range x {
		file.Bodies[i] = BodySpec{
			Name:     b.Name,
			Mass:     b.Mass,
			Radius:   b.Radius,
			Color:    b.Color,
			Star:     b.IsStar,
			Position: []float64{b.Position.X, b.Position.Y, b.Position.Z},
			Velocity: []float64{b.Velocity.X, b.Velocity.Y, b.Velocity.Z},
		}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return err
	}
	return enc.Close()
}
