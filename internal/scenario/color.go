package scenario

import (
	"github.com/lucasb-eyer/go-colorful"
)

// StarColor is used for bodies flagged as stars.
const StarColor = "#ffd27f"

// Palette returns the k-th of n evenly spaced hues as "#rrggbb".
func Palette(k, n int) string {
	if n < 1 {
		n = 1
	}
	h := 360 * float64(k%n) / float64(n)
	return colorful.Hcl(h, 0.55, 0.75).Clamped().Hex()
}

// NormalizeColor parses hex and returns it in canonical "#rrggbb" form.
func NormalizeColor(hex string) (string, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return "", err
	}
	return c.Hex(), nil
}
