// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermal implements the frame pipeline of a thermal camera: it turns
// the 32×24 temperature grid of a MLX90640 into a 408×320 color frame.
//
// Stages are run in this order for each acquired grid:
//
//	Conditioner    temporal median, invalid cell repair, frame rejection
//	RangeEstimator min/max with a floor, smoothed copy for display
//	EdgeDetector   Sobel over the resampled grid
//	Upscaler       bilinear fixed-point walk and color lookup
//	LocateExtrema  coldest and hottest cells in output coordinates
//
// Pipeline holds every buffer and runs the stages; no memory is allocated
// once it is constructed.
package thermal

import (
	"fmt"
	"math"
)

// Sensor and output geometry.
const (
	Cols  = 32
	Rows  = 24
	Cells = Cols * Rows

	OutWidth  = 408
	OutHeight = 320
)

// Grid is a full sensor frame in °C, row-major.
type Grid [Cells]float32

// At returns the value at column col and row row.
func (g *Grid) At(col, row int) float32 {
	return g[row*Cols+col]
}

// Set sets the value at column col and row row.
func (g *Grid) Set(col, row int, v float32) {
	g[row*Cols+col] = v
}

// Fill sets every cell to v.
func (g *Grid) Fill(v float32) {
	for i := range g {
		g[i] = v
	}
}

// bilinear interpolates the grid at base cell (c0, r0) with fractional
// offsets fx and fy. Base indices are clamped to the grid.
//
// The blend is written so that fx == fy == 0 returns the base cell exactly.
func (g *Grid) bilinear(c0, r0 int, fx, fy float32) float32 {
	if c0 < 0 {
		c0 = 0
	} else if c0 > Cols-1 {
		c0 = Cols - 1
	}
	if r0 < 0 {
		r0 = 0
	} else if r0 > Rows-1 {
		r0 = Rows - 1
	}
	c1 := c0 + 1
	if c1 > Cols-1 {
		c1 = Cols - 1
	}
	r1 := r0 + 1
	if r1 > Rows-1 {
		r1 = Rows - 1
	}
	top := g[r0*Cols : r0*Cols+Cols]
	bot := g[r1*Cols : r1*Cols+Cols]
	t := top[c0] + (top[c1]-top[c0])*fx
	b := bot[c0] + (bot[c1]-bot[c0])*fx
	return t + (b-t)*fy
}

// Celsius formats a temperature the way the panels show it.
type Celsius float32

func (c Celsius) String() string {
	if math.IsNaN(float64(c)) {
		return "--.-°C"
	}
	return fmt.Sprintf("%.1f°C", float32(c))
}
