package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	fps             = 60
	statsWidth      = 45
	defaultWidth    = 60
	defaultHeight   = 20
	historyCapacity = 240
	trailFade       = 0.55
)

// Speeds are the playback multipliers cycled with +/-.
var Speeds = []float64{0.25, 0.5, 1, 2, 4, 8, 16}

type TickMsg time.Time

// Options configure a live session. Build is called on start and on reset.
type Options struct {
	Name     string
	Law      string
	Dt       float64
	Substeps int
	Trail    int
	Build    func() (*sim.Engine, error)
}

// history is shared by value copies of Model; the stats callback appends to
// it.
type history struct {
	energy []float64
	last   dynamo.EnergyStats
	e0     float64
}

func (h *history) push(s dynamo.EnergyStats) {
	h.last = s
	if len(h.energy) == historyCapacity {
		copy(h.energy, h.energy[1:])
		h.energy = h.energy[:historyCapacity-1]
	}
	h.energy = append(h.energy, s.Total)
}

// Model drives one engine from the bubbletea tick loop.
type Model struct {
	opts   Options
	engine *sim.Engine
	hist   *history
	trails [][]r3.Vec

	camera  *Camera
	spring  harmonica.Spring
	zoomVel float64
	auto    bool

	canvas        *Canvas
	width, height int

	speed   int
	carry   float64
	running bool
	err     error
}

// NewModel builds the first engine through opts.Build.
func NewModel(opts Options) (Model, error) {
	if opts.Substeps < 1 {
		opts.Substeps = 1
	}
	if opts.Trail < 0 {
		opts.Trail = 0
	}
	m := Model{
		opts:    opts,
		spring:  harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
		auto:    true,
		speed:   2,
		running: true,
		width:   defaultWidth,
		height:  defaultHeight,
		canvas:  NewCanvas(defaultWidth, defaultHeight),
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) reset() error {
	e, err := m.opts.Build()
	if err != nil {
		return err
	}
	h := &history{}
	s := e.Stats()
	h.e0 = s.Total
	h.push(s)
	e.SetStatsCallback(h.push)

	m.engine, m.hist, m.err, m.carry = e, h, nil, 0
	m.trails = make([][]r3.Vec, e.Len())
	c, r := extent(e.Bodies())
	m.camera = NewCamera(r)
	m.camera.Center = c
	m.zoomVel = 0
	return nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/fps, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

// Multiplier returns the current playback multiplier.
func (m Model) Multiplier() float64 { return Speeds[m.speed] }
func (m Model) Running() bool       { return m.running }
func (m Model) Engine() *sim.Engine { return m.engine }
func (m Model) Err() error          { return m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = max(msg.Width-statsWidth-8, 10)
		m.height = max(msg.Height-4, 5)
		m.canvas = NewCanvas(m.width, m.height)
	case TickMsg:
		if m.running {
			m.advance()
		}
		m.follow()
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ":
		m.running = !m.running
	case "r":
		if err := m.reset(); err != nil {
			m.err = err
		}
	case "+", "=":
		m.speed = min(m.speed+1, len(Speeds)-1)
	case "-", "_":
		m.speed = max(m.speed-1, 0)
	case ".":
		if !m.running {
			m.stepN(1)
		}
	case "a":
		m.auto = !m.auto
	case "z":
		m.auto = false
		m.camera.Extent /= 1.2
	case "x":
		m.auto = false
		m.camera.Extent *= 1.2
	case "up":
		m.camera.TiltBy(-math.Pi / 24)
	case "down":
		m.camera.TiltBy(math.Pi / 24)
	case "left":
		m.camera.SpinBy(-math.Pi / 24)
	case "right":
		m.camera.SpinBy(math.Pi / 24)
	}
	return m, nil
}

// advance runs Substeps×multiplier steps of Dt, carrying the fractional part
// to the next tick.
func (m *Model) advance() {
	m.carry += float64(m.opts.Substeps) * Speeds[m.speed]
	n := int(m.carry)
	m.carry -= float64(n)
	m.stepN(n)
}

func (m *Model) stepN(n int) {
	if m.err != nil {
		return
	}
	for range n {
		if err := m.engine.Step(m.opts.Dt); err != nil {
			m.err, m.running = err, false
			return
		}
	}
	bodies := m.engine.Bodies()
	if !bodies.IsValid() {
		m.err = &dynamo.SimulationError{Step: m.engine.Steps(), Time: m.engine.Time(), Wrapped: dynamo.ErrInvalidState}
		m.running = false
		return
	}
	if m.opts.Trail == 0 {
		return
	}
	for i, b := range bodies {
		t := append(m.trails[i], b.Position)
		if len(t) > m.opts.Trail {
			t = t[len(t)-m.opts.Trail:]
		}
		m.trails[i] = t
	}
}

// follow recentres on the centre of mass and eases the extent toward the
// farthest body.
func (m *Model) follow() {
	if !m.auto || m.err != nil {
		return
	}
	c, r := extent(m.engine.Bodies())
	m.camera.Center = c
	m.camera.Extent, m.zoomVel = m.spring.Update(m.camera.Extent, m.zoomVel, r)
	if !(m.camera.Extent > 0) {
		m.camera.Extent, m.zoomVel = r, 0
	}
}

// extent returns the centre of mass and 1.2× the largest distance from it.
func extent(bodies dynamo.State) (r3.Vec, float64) {
	var c r3.Vec
	mass := bodies.TotalMass()
	for _, b := range bodies {
		c = r3.Add(c, r3.Scale(b.Mass/mass, b.Position))
	}
	far := 0.0
	for _, b := range bodies {
		far = max(far, r3.Norm(r3.Sub(b.Position, c)))
	}
	if !(far > 0) || math.IsInf(far, 0) {
		far = 1
	}
	return c, 1.2 * far
}

// Frame renders the canvas for the current engine state.
func (m Model) Frame() string {
	m.canvas.Clear()
	bodies := m.engine.Bodies()
	w, h := m.canvas.PixelSize()
	for i, trail := range m.trails {
		color := fade(bodies[i].Color, trailFade)
		for k := 1; k < len(trail); k++ {
			x0, y0, _, ok0 := m.camera.Project(trail[k-1], w, h)
			x1, y1, _, ok1 := m.camera.Project(trail[k], w, h)
			if ok0 && ok1 {
				m.canvas.DrawLine(x0, y0, x1, y1, color)
			}
		}
	}
	DrawBodies(m.canvas, m.camera, bodies)
	return m.canvas.String()
}

func (m Model) View() string {
	hist := m.hist
	stats := hist.last

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.opts.Name)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(errorStyle.Render(m.err.Error()))
	case m.running:
		s.WriteString(statusRunning.Render("RUNNING"))
	default:
		s.WriteString(statusPaused.Render("PAUSED"))
	}
	s.WriteString("\n")

	if len(hist.energy) > 1 {
		chart := asciigraph.Plot(hist.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	drift := 0.0
	if hist.e0 != 0 {
		drift = math.Abs(stats.Total-hist.e0) / math.Abs(hist.e0)
	}
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.3f", m.engine.Time()))
	row("Steps", fmt.Sprintf("%d", m.engine.Steps()))
	row("Speed", fmt.Sprintf("%gx", Speeds[m.speed]))
	row("Bodies", fmt.Sprintf("%d", m.engine.Len()))
	row("Law", m.opts.Law)
	row("Kinetic", fmt.Sprintf("%.6g", stats.Kinetic))
	row("Potential", fmt.Sprintf("%.6g", stats.Potential))
	row("Total", fmt.Sprintf("%.6g", stats.Total))
	row("Drift", fmt.Sprintf("%.3e", drift))
	row("Habitable", fmt.Sprintf("%t", stats.Habitable))

	s.WriteString(helpStyle.Render("─────────────────────\nSP:Pause R:Reset Q:Quit\n+/-:Speed  .:Step  A:Auto-zoom\nZ/X:Zoom  ←→:Spin  ↑↓:Tilt"))

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasStyle.Render(m.Frame()), statsStyle.Render(s.String()))
}

// Run starts a full-screen live session.
func Run(opts Options) error {
	m, err := NewModel(opts)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
