// Package viz renders a running engine in the terminal.
//
// [Model] is a Bubble Tea program that advances an engine on every frame,
// Substeps × multiplier steps at a time, and draws a projection of the bodies
// onto a braille [Canvas] beside an energy panel. [Picker] lists the config
// presets and opens a live session on the selected one.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	.     - Single step while paused
//	R     - Reset to the initial conditions
//	+/-   - Playback speed
//	A     - Toggle auto-zoom
//	Z/X   - Zoom in/out
//	←/→   - Spin the view about Z
//	↑/↓   - Tilt the view
package viz
