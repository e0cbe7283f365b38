package viz

import (
	"math"
	"sort"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Camera projects world positions onto the canvas. With zero tilt and spin
// the view is top-down: +X right, +Y up, looking along −Z.
type Camera struct {
	Center r3.Vec
	Extent float64
	Tilt   float64
	Spin   float64
}

func NewCamera(extent float64) *Camera {
	if !(extent > 0) {
		extent = 1
	}
	return &Camera{Extent: extent}
}

func (c *Camera) TiltBy(a float64) { c.Tilt = math.Max(-math.Pi/2, math.Min(math.Pi/2, c.Tilt+a)) }
func (c *Camera) SpinBy(a float64) { c.Spin = math.Mod(c.Spin+a, 2*math.Pi) }

// rotate applies spin about Z, then tilt about X.
func (c *Camera) rotate(p r3.Vec) r3.Vec {
	cz, sz := math.Cos(c.Spin), math.Sin(c.Spin)
	p.X, p.Y = p.X*cz-p.Y*sz, p.X*sz+p.Y*cz
	cx, sx := math.Cos(c.Tilt), math.Sin(c.Tilt)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	return p
}

// Project maps p to dot coordinates on a w×h dot canvas. Extent world units
// span half the shorter side. depth grows toward the viewer.
func (c *Camera) Project(p r3.Vec, w, h int) (x, y int, depth float64, visible bool) {
	rel := c.rotate(r3.Sub(p, c.Center))
	scale := float64(min(w, h)) / 2 / c.Extent
	x = int(math.Round(rel.X*scale)) + w/2
	y = int(math.Round(-rel.Y*scale)) + h/2
	return x, y, rel.Z, x >= 0 && x < w && y >= 0 && y < h
}

type projected struct {
	x, y, r int
	depth   float64
	color   string
}

// DrawBodies renders bodies back to front so nearer bodies paint last.
// Stars get a larger disc.
func DrawBodies(c *Canvas, cam *Camera, bodies dynamo.State) {
	w, h := c.PixelSize()
	proj := make([]projected, 0, len(bodies))
	for _, b := range bodies {
		x, y, d, ok := cam.Project(b.Position, w, h)
		if !ok {
			continue
		}
		r := 0
		if b.IsStar {
			r = 2
		} else if b.Radius > 0 {
			r = min(2, int(b.Radius*float64(min(w, h))/2/cam.Extent))
		}
		proj = append(proj, projected{x, y, r, d, b.Color})
	}
	sort.SliceStable(proj, func(i, j int) bool { return proj[i].depth < proj[j].depth })
	for _, p := range proj {
		c.Disc(p.x, p.y, p.r, p.color)
	}
}
