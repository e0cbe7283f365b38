package viz

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/orbitsim/internal/config"
	"github.com/san-kum/orbitsim/internal/experiment"
	"github.com/san-kum/orbitsim/internal/sim"
)

const DefaultTrail = 80

// Session derives live options from an experiment config. Every Build call
// resolves the scenario afresh, so reset returns to the initial conditions.
func Session(reg *experiment.Registry, cfg *config.Config, name string) (Options, error) {
	x, err := reg.Build(cfg)
	if err != nil {
		return Options{}, err
	}
	if name == "" {
		name = cfg.Scenario
	}
	return Options{
		Name:     name,
		Law:      x.Describe(),
		Dt:       cfg.TimeStep(),
		Substeps: cfg.Substeps,
		Trail:    DefaultTrail,
		Build: func() (*sim.Engine, error) {
			x, err := reg.Build(cfg)
			if err != nil {
				return nil, err
			}
			return x.Engine(), nil
		},
	}, nil
}

type pickerState int

const (
	stateMenu pickerState = iota
	stateSim
)

// Picker lists the presets and opens a live session on the chosen one.
type Picker struct {
	reg     *experiment.Registry
	entries []string
	cursor  int
	state   pickerState
	live    Model
	err     error
}

func NewPicker(reg *experiment.Registry) Picker {
	var entries []string
	for sc := range config.Presets {
		for _, p := range config.ListPresets(sc) {
			entries = append(entries, sc+"/"+p)
		}
	}
	sort.Strings(entries)
	return Picker{reg: reg, entries: entries}
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.state == stateSim {
		m, cmd := p.live.Update(msg)
		p.live = m.(Model)
		return p, cmd
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.entries)-1 {
			p.cursor++
		}
	case "enter":
		return p.start()
	}
	return p, nil
}

func (p Picker) start() (tea.Model, tea.Cmd) {
	if len(p.entries) == 0 {
		return p, nil
	}
	name := p.entries[p.cursor]
	sc, preset, _ := strings.Cut(name, "/")
	cfg := config.GetPreset(sc, preset)
	if cfg == nil {
		p.err = fmt.Errorf("preset %s not found", name)
		return p, nil
	}
	opts, err := Session(p.reg, cfg, name)
	if err != nil {
		p.err = err
		return p, nil
	}
	m, err := NewModel(opts)
	if err != nil {
		p.err = err
		return p, nil
	}
	p.live, p.state, p.err = m, stateSim, nil
	return p, m.Init()
}

func (p Picker) View() string {
	if p.state == stateSim {
		return p.live.View()
	}
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render("ORBITSIM") + "\n    " + menuSubtle.Render("softened n-body playground") + "\n    " + menuSubtle.Render("─────────────────────────") + "\n\n")
	for i, name := range p.entries {
		if i == p.cursor {
			b.WriteString(fmt.Sprintf("    %s %s\n", menuCursor.Render("▸"), menuSelected.Render(name)))
		} else {
			b.WriteString(fmt.Sprintf("      %s\n", menuItem.Render(name)))
		}
	}
	if p.err != nil {
		b.WriteString("\n    " + errorStyle.Render(p.err.Error()) + "\n")
	}
	b.WriteString("\n    " + menuKey.Render("j/k") + menuSubtle.Render(" navigate  ") + menuKey.Render("enter") + menuSubtle.Render(" select  ") + menuKey.Render("q") + menuSubtle.Render(" quit") + "\n")
	return b.String()
}

// RunPicker starts the preset menu full-screen.
func RunPicker(reg *experiment.Registry) error {
	_, err := tea.NewProgram(NewPicker(reg), tea.WithAltScreen()).Run()
	return err
}
