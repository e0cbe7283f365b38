package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	background   = "#0a0a0a"
	defaultColor = "#00ff00"
)

// Track is the sampled path of one body.
type Track struct {
	Name   string
	Color  string
	Points []r3.Vec
}

// Recorder is a dynamo.Observer that samples every body's position once per
// Every steps.
type Recorder struct {
	Every  int
	steps  int
	tracks []Track
}

func NewRecorder(x0 dynamo.State, every int) *Recorder {
	r := &Recorder{Every: max(every, 1), tracks: make([]Track, len(x0))}
	for i, b := range x0 {
		r.tracks[i] = Track{Name: b.Name, Color: b.Color, Points: []r3.Vec{b.Position}}
	}
	return r
}

func (r *Recorder) OnStep(x dynamo.State, u []r3.Vec, t float64) {
	r.steps++
	if r.steps%r.Every != 0 || len(x) != len(r.tracks) {
		return
	}
	for i, b := range x {
		r.tracks[i].Points = append(r.tracks[i].Points, b.Position)
	}
}

func (r *Recorder) Tracks() []Track { return r.tracks }

// bounds returns the XY box around every point, padded by 10% and squared so
// both axes share a scale.
func bounds(final dynamo.State, tracks []Track) (minX, minY, span float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	grow := func(p r3.Vec) {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	for _, t := range tracks {
		for _, p := range t.Points {
			grow(p)
		}
	}
	for _, b := range final {
		grow(b.Position)
	}
	if math.IsInf(minX, 0) {
		return -1, -1, 2
	}

	span = math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	span *= 1.2
	return cx - span/2, cy - span/2, span
}

func color(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		c, _ = colorful.Hex(defaultColor)
	}
	return c
}

// SVG draws a top-down view of the tracks with each body's final position
// on top. The output is size×size pixels.
func SVG(w io.Writer, final dynamo.State, tracks []Track, size int) error {
	if size <= 0 {
		return dynamo.Invalid("size", "must be positive, got %d", size)
	}
	minX, minY, span := bounds(final, tracks)
	scale := float64(size) / span
	project := func(p r3.Vec) (float64, float64) {
		return (p.X - minX) * scale, float64(size) - (p.Y-minY)*scale
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, size, size, size, size, background)

	bg := color(background)
	for _, t := range tracks {
		if len(t.Points) < 2 {
			continue
		}
		stroke := color(t.Color).BlendLab(bg, 0.4).Clamped().Hex()
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.2" d="M`, stroke)
		for i, p := range t.Points {
			x, y := project(p)
			if i == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}

	for _, b := range final {
		x, y := project(b.Position)
		r := math.Max(2, math.Min(b.Radius*scale, 12))
		if b.IsStar {
			r = math.Max(r, 6)
		}
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"><title>%s</title></circle>
`, x, y, r, color(b.Color).Hex(), b.Name)
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
