// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGradient(t *testing.T) *GradientMap {
	m, err := WrapGradient(make([]float32, OutWidth*OutHeight))
	require.NoError(t, err)
	return m
}

func TestWrapGradient(t *testing.T) {
	_, err := WrapGradient(make([]float32, 10))
	assert.Error(t, err)
}

func TestEdges_flat(t *testing.T) {
	d := NewEdgeDetector(NewUpscaler())
	m := newGradient(t)
	for i := range m.Mag {
		m.Mag[i] = 9
	}
	var g Grid
	g.Fill(30)
	d.Compute(m, &g, Range{20, 40})
	for i, v := range m.Mag {
		require.Zero(t, v, "pixel %d", i)
	}
}

func TestEdges_border(t *testing.T) {
	d := NewEdgeDetector(NewUpscaler())
	m := newGradient(t)
	g := randomGrid(7)
	d.Compute(m, g, Range{10, 60})
	for x := 0; x < OutWidth; x++ {
		require.Zero(t, m.At(x, 0))
		require.Zero(t, m.At(x, OutHeight-1))
	}
	for y := 0; y < OutHeight; y++ {
		require.Zero(t, m.At(0, y))
		require.Zero(t, m.At(OutWidth-1, y))
	}
}

func TestEdges_step(t *testing.T) {
	// Left half cold, right half hot: a vertical edge between columns 15
	// and 16.
	d := NewEdgeDetector(NewUpscaler())
	m := newGradient(t)
	var g Grid
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			if col >= 16 {
				g.Set(col, row, 40)
			} else {
				g.Set(col, row, 20)
			}
		}
	}
	d.Compute(m, &g, Range{20, 40})
	y := OutHeight / 2
	// Output column of source column 15.5.
	edge := 155 * OutWidth / 310
	assert.Greater(t, m.At(edge, y), float32(DefaultEdgeThreshold))
	assert.Zero(t, m.At(20, y))
	assert.Zero(t, m.At(OutWidth-20, y))
	// A vertical edge has no vertical gradient so the magnitude is at most
	// (1+2+1)/8 of a full swing.
	for x := 1; x < OutWidth-1; x++ {
		require.LessOrEqual(t, m.At(x, y), float32(0.5)+1e-6)
	}
}
