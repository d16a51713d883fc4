// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"github.com/thermcam/go-thermcam/palette"
	"github.com/thermcam/go-thermcam/rgb565"
)

// step is the source position of one output line or column.
type step struct {
	base int     // Source cell.
	frac float32 // Offset toward base+1, in [0, 1).
}

// walk fills steps with the source position of each output index.
//
// The position of output index i is i*(src-1)/out. It is accumulated as an
// integer base plus a remainder numerator over out, so there is no rounding
// drift across the line.
func walk(steps []step, src int) {
	out := len(steps)
	inc := src - 1
	base, num := 0, 0
	for i := range steps {
		steps[i] = step{base: base, frac: float32(num) / float32(out)}
		num += inc
		for num >= out {
			num -= out
			base++
		}
	}
}

// Upscaler maps a Grid onto the output frame.
type Upscaler struct {
	xs [OutWidth]step
	ys [OutHeight]step
}

// NewUpscaler precomputes the column and row walks.
func NewUpscaler() *Upscaler {
	u := &Upscaler{}
	walk(u.xs[:], Cols)
	walk(u.ys[:], Rows)
	return u
}

// Source returns the fractional source coordinate of output pixel (x, y).
func (u *Upscaler) Source(x, y int) (col int, fx float32, row int, fy float32) {
	return u.xs[x].base, u.xs[x].frac, u.ys[y].base, u.ys[y].frac
}

// Sample returns the interpolated temperature at output pixel (x, y).
func (u *Upscaler) Sample(g *Grid, x, y int) float32 {
	sx, sy := u.xs[x], u.ys[y]
	return g.bilinear(sx.base, sy.base, sx.frac, sy.frac)
}

// RenderOptions selects the palette and the edge overlay of Render.
type RenderOptions struct {
	LUT *palette.LUT
	// Edges, when not nil, replaces pixels whose gradient is above
	// EdgeThreshold with Highlight.
	Edges         *GradientMap
	EdgeThreshold float32
	Highlight     rgb565.Color
}

// Render fills dst, which must be OutWidth×OutHeight, with g colored
// through opts.LUT against r.
func (u *Upscaler) Render(dst *rgb565.Image, g *Grid, r Range, opts *RenderOptions) {
	lut := opts.LUT
	lo := r.Low
	inv := float32(0)
	if s := r.Span(); s > 0 {
		inv = 1 / s
	}
	for y := 0; y < OutHeight; y++ {
		sy := u.ys[y]
		r0 := sy.base
		r1 := r0 + 1
		if r1 > Rows-1 {
			r1 = Rows - 1
		}
		top := g[r0*Cols : r0*Cols+Cols]
		bot := g[r1*Cols : r1*Cols+Cols]
		line := dst.Row(dst.Rect.Min.Y + y)
		var mags []float32
		if opts.Edges != nil {
			mags = opts.Edges.Row(y)
		}
		for x := range line {
			if mags != nil && mags[x] > opts.EdgeThreshold {
				line[x] = opts.Highlight
				continue
			}
			sx := u.xs[x]
			c0 := sx.base
			c1 := c0 + 1
			if c1 > Cols-1 {
				c1 = Cols - 1
			}
			t := top[c0] + (top[c1]-top[c0])*sx.frac
			b := bot[c0] + (bot[c1]-bot[c0])*sx.frac
			v := t + (b-t)*sy.frac
			line[x] = lut[palette.Index((v-lo)*inv)]
		}
	}
}
