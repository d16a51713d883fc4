// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package palette builds the color lookup tables used to map a normalized
// temperature to a display color.
package palette

import (
	"sort"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/thermcam/go-thermcam/rgb565"
)

// Size is the number of entries in a LUT.
const Size = 256

// LUT maps an index in [0, 255] to a color, cold to hot.
type LUT [Size]rgb565.Color

// Index quantizes a normalized value in [0, 1] to a LUT index. Values out of
// range are clamped.
func Index(n float32) int {
	i := int(n*(Size-1) + 0.5)
	if i < 0 {
		return 0
	}
	if i > Size-1 {
		return Size - 1
	}
	return i
}

// At returns the color for the normalized value n.
func (l *LUT) At(n float32) rgb565.Color {
	return l[Index(n)]
}

// Cold returns the coldest color.
func (l *LUT) Cold() rgb565.Color {
	return l[0]
}

// Hot returns the hottest color.
func (l *LUT) Hot() rgb565.Color {
	return l[Size-1]
}

// Stop is a keypoint of a gradient.
type Stop struct {
	Pos   float64 // In [0, 1].
	Color colorful.Color
}

// BlendFunc interpolates between two colors; t is in [0, 1].
type BlendFunc func(a, b colorful.Color, t float64) colorful.Color

// RGB returns a Stop color from 8 bits channels.
func RGB(r, g, b uint8) colorful.Color {
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

// Build interpolates stops into a LUT.
//
// Stops are sorted by position. Positions before the first stop or after the
// last one take the color of the nearest stop.
func Build(stops []Stop, blend BlendFunc) *LUT {
	s := make([]Stop, len(stops))
	copy(s, stops)
	sort.Slice(s, func(i, j int) bool { return s[i].Pos < s[j].Pos })
	l := &LUT{}
	if len(s) == 0 {
		return l
	}
	k := 0
	for i := range l {
		p := float64(i) / (Size - 1)
		for k < len(s)-2 && p > s[k+1].Pos {
			k++
		}
		var c colorful.Color
		switch {
		case len(s) == 1 || p <= s[0].Pos:
			c = s[0].Color
		case p >= s[len(s)-1].Pos:
			c = s[len(s)-1].Color
		default:
			a, b := s[k], s[k+1]
			t := 0.
			if b.Pos > a.Pos {
				t = (p - a.Pos) / (b.Pos - a.Pos)
			}
			c = blend(a.Color, b.Color, t)
		}
		r, g, b := c.Clamped().RGB255()
		l[i] = rgb565.FromRGB(r, g, b)
	}
	return l
}

// IronStops is the classic "iron" ramp: black, purple, red, orange, yellow,
// white. The red and green channels never decrease.
var IronStops = []Stop{
	{0, RGB(0, 0, 16)},
	{0.15, RGB(48, 0, 120)},
	{0.35, RGB(150, 0, 150)},
	{0.55, RGB(230, 60, 30)},
	{0.75, RGB(255, 160, 0)},
	{0.90, RGB(255, 230, 80)},
	{1, RGB(255, 255, 255)},
}

// SpectralStops goes from cyan to red through green and yellow.
var SpectralStops = []Stop{
	{0, RGB(0, 255, 255)},
	{0.33, RGB(0, 255, 0)},
	{0.66, RGB(255, 255, 0)},
	{1, RGB(255, 0, 0)},
}

var (
	once     sync.Once
	iron     *LUT
	spectral *LUT
)

func build() {
	iron = Build(IronStops, colorful.Color.BlendRgb)
	spectral = Build(SpectralStops, colorful.Color.BlendHcl)
}

// Iron returns the primary palette. It is built once and must not be
// modified.
func Iron() *LUT {
	once.Do(build)
	return iron
}

// Spectral returns the alternate palette. It is built once and must not be
// modified.
func Spectral() *LUT {
	once.Do(build)
	return spectral
}
