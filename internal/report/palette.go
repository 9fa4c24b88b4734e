// Package report renders smoothed speed fields and trajectory fleets as
// heatmap images, interactive HTML, and summary statistics.
package report

import (
	"image/color"

	"gonum.org/v1/plot/palette"
)

// Heatmap speed range in mph. Values outside it clamp to the end colours.
const (
	MinPlotSpeed = 0.0
	MaxPlotSpeed = 80.0
)

// speedPalette runs from red (slow) through yellow to green (free flow).
type speedPalette struct {
	n int
}

var _ palette.Palette = speedPalette{}

func (p speedPalette) Colors() []color.Color {
	return speedColors(p.n)
}

// speedColors returns n colours with hue stepping from 0 (red) to 1/3
// (green).
func speedColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := 0.0
		if n > 1 {
			hue = float64(i) / float64(n-1) / 3
		}
		r, g, b := hslToRGB(hue, 0.85, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hexColors formats colours as #rrggbb strings for HTML charts.
func hexColors(colors []color.Color) []string {
	out := make([]string, len(colors))
	for i, c := range colors {
		r, g, b, _ := c.RGBA()
		out[i] = "#" + hexByte(uint8(r>>8)) + hexByte(uint8(g>>8)) + hexByte(uint8(b>>8))
	}
	return out
}

func hexByte(v uint8) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[v>>4], digits[v&0x0f]})
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf*255 + 0.5), uint8(gf*255 + 0.5), uint8(bf*255 + 0.5)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
