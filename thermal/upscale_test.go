// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermcam/go-thermcam/palette"
	"github.com/thermcam/go-thermcam/rgb565"
)

func TestWalk(t *testing.T) {
	var xs [OutWidth]step
	walk(xs[:], Cols)
	for x, s := range xs {
		f := float64(x) * (Cols - 1) / OutWidth
		base := int(math.Floor(f))
		require.Equal(t, base, s.base, "x=%d", x)
		require.InDelta(t, f-float64(base), s.frac, 1e-6, "x=%d", x)
		require.Less(t, s.frac, float32(1))
	}
	// The last column stays inside the grid.
	assert.Equal(t, Cols-2, xs[OutWidth-1].base)

	var ys [OutHeight]step
	walk(ys[:], Rows)
	for y, s := range ys {
		f := float64(y) * (Rows - 1) / OutHeight
		require.Equal(t, int(math.Floor(f)), s.base, "y=%d", y)
	}
}

func randomGrid(seed int64) *Grid {
	r := rand.New(rand.NewSource(seed))
	g := &Grid{}
	for i := range g {
		g[i] = float32(r.Float64()*50 + 10)
	}
	return g
}

func TestSample_exactAtGridPoints(t *testing.T) {
	u := NewUpscaler()
	g := randomGrid(4)
	exact := 0
	for y := 0; y < OutHeight; y++ {
		for x := 0; x < OutWidth; x++ {
			col, fx, row, fy := u.Source(x, y)
			if fx == 0 && fy == 0 {
				exact++
				require.Equal(t, g.At(col, row), u.Sample(g, x, y), "(%d, %d)", x, y)
			}
		}
	}
	require.NotZero(t, exact)
	// Along the first line and column, only one axis is fractional.
	for x := 0; x < OutWidth; x++ {
		col, fx, _, _ := u.Source(x, 0)
		if fx == 0 {
			require.Equal(t, g.At(col, 0), u.Sample(g, x, 0))
		}
	}
}

func TestSample_matchesFloat(t *testing.T) {
	u := NewUpscaler()
	g := randomGrid(5)
	for y := 0; y < OutHeight; y += 7 {
		for x := 0; x < OutWidth; x += 3 {
			fx := float64(x) * (Cols - 1) / OutWidth
			fy := float64(y) * (Rows - 1) / OutHeight
			c0, r0 := int(fx), int(fy)
			dx, dy := fx-float64(c0), fy-float64(r0)
			v00 := float64(g.At(c0, r0))
			v01 := float64(g.At(c0+1, r0))
			v10 := float64(g.At(c0, r0+1))
			v11 := float64(g.At(c0+1, r0+1))
			want := v00*(1-dx)*(1-dy) + v01*dx*(1-dy) + v10*(1-dx)*dy + v11*dx*dy
			require.InDelta(t, want, u.Sample(g, x, y), 1e-3, "(%d, %d)", x, y)
		}
	}
}

func TestRender(t *testing.T) {
	u := NewUpscaler()
	g := randomGrid(6)
	r := Range{10, 60}
	lut := palette.Iron()
	dst := rgb565.NewImage(image.Rect(0, 0, OutWidth, OutHeight))
	u.Render(dst, g, r, &RenderOptions{LUT: lut})
	for y := 0; y < OutHeight; y += 5 {
		for x := 0; x < OutWidth; x += 5 {
			want := palette.Index(r.Normalize(u.Sample(g, x, y)))
			got := dst.RGB565At(x, y)
			// The inline walk may round differently by one step.
			ok := false
			for _, i := range []int{want - 1, want, want + 1} {
				if i >= 0 && i < palette.Size && lut[i] == got {
					ok = true
				}
			}
			require.True(t, ok, "(%d, %d)", x, y)
		}
	}
}

func TestRender_clamped(t *testing.T) {
	u := NewUpscaler()
	var g Grid
	for i := range g {
		if i%2 == 0 {
			g[i] = -30
		} else {
			g[i] = 200
		}
	}
	lut := palette.Iron()
	dst := rgb565.NewImage(image.Rect(0, 0, OutWidth, OutHeight))
	u.Render(dst, &g, Range{0, 100}, &RenderOptions{LUT: lut})
	// (0, 0) is exactly on cell 0.
	assert.Equal(t, lut.Cold(), dst.RGB565At(0, 0))
	known := map[rgb565.Color]bool{}
	for _, c := range lut {
		known[c] = true
	}
	for i, c := range dst.Pix {
		if !known[c] {
			t.Fatalf("pixel %d: 0x%04X not in palette", i, c)
		}
	}
}

func TestRender_highlight(t *testing.T) {
	u := NewUpscaler()
	var g Grid
	g.Fill(20)
	m, err := WrapGradient(make([]float32, OutWidth*OutHeight))
	require.NoError(t, err)
	m.Row(10)[20] = 0.5
	m.Row(11)[20] = 0.2
	dst := rgb565.NewImage(image.Rect(0, 0, OutWidth, OutHeight))
	opts := &RenderOptions{LUT: palette.Iron(), Edges: m, EdgeThreshold: 0.2, Highlight: rgb565.Magenta}
	u.Render(dst, &g, Range{20, 30}, opts)
	assert.Equal(t, rgb565.Magenta, dst.RGB565At(20, 10))
	assert.Equal(t, palette.Iron().Cold(), dst.RGB565At(20, 11), "threshold is exclusive")
}
