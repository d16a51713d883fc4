// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import "math"

// Default range constants.
const (
	DefaultMinRange      = 0.5
	DefaultClampMin      = -10
	DefaultClampMax      = 80
	DefaultDisplaySmooth = 0.80
)

// Range is the temperature span mapped to the palette.
type Range struct {
	Low  float32
	High float32
}

// Span returns High-Low.
func (r Range) Span() float32 {
	return r.High - r.Low
}

// Normalize maps v to [0, 1], clamped.
func (r Range) Normalize(v float32) float32 {
	s := r.High - r.Low
	if s <= 0 {
		return 0
	}
	n := (v - r.Low) / s
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

// RangeEstimator computes the Range of a conditioned grid.
//
// The returned Range reacts immediately. A separate copy of the scene min/max
// is exponentially smoothed for the panels; see Display.
type RangeEstimator struct {
	MinRange      float32 // Floor on High-Low.
	MaxSpan       float32 // When non-zero, High-Low is capped around the midpoint.
	AutoScale     bool    // When false, ClampMin..ClampMax is used.
	ClampMin      float32
	ClampMax      float32
	DisplaySmooth float32 // Weight of the previous display value.

	display Range
	primed  bool
}

// MakeRangeEstimator returns a RangeEstimator using the default constants.
func MakeRangeEstimator() RangeEstimator {
	return RangeEstimator{
		MinRange:      DefaultMinRange,
		AutoScale:     true,
		ClampMin:      DefaultClampMin,
		ClampMax:      DefaultClampMax,
		DisplaySmooth: DefaultDisplaySmooth,
	}
}

// Estimate returns the range to use for g and updates the display copy.
func (e *RangeEstimator) Estimate(g *Grid) Range {
	lo, hi := minMax(g)
	e.smooth(lo, hi)

	r := Range{lo, hi}
	if !e.AutoScale {
		r = Range{e.ClampMin, e.ClampMax}
	}
	if e.MaxSpan > 0 && r.Span() > e.MaxSpan {
		mid := r.Low + r.Span()/2
		r = Range{mid - e.MaxSpan/2, mid + e.MaxSpan/2}
	}
	if r.Span() < e.MinRange {
		r.High = r.Low + e.MinRange
		// Rounding can leave the span a hair short.
		for r.Span() < e.MinRange {
			r.High = math.Nextafter32(r.High, float32(math.Inf(1)))
		}
	}
	return r
}

// Display returns the smoothed scene min/max.
func (e *RangeEstimator) Display() Range {
	return e.display
}

// Reset forgets the smoothed display values; the next Estimate sets them to
// the raw values.
func (e *RangeEstimator) Reset() {
	e.display = Range{}
	e.primed = false
}

func (e *RangeEstimator) smooth(lo, hi float32) {
	if !e.primed {
		e.display = Range{lo, hi}
		e.primed = true
		return
	}
	a := e.DisplaySmooth
	e.display.Low = e.display.Low*a + lo*(1-a)
	e.display.High = e.display.High*a + hi*(1-a)
}

// minMax scans the grid 4 cells at a time. Cells is a multiple of 4.
func minMax(g *Grid) (float32, float32) {
	lo0, lo1, lo2, lo3 := g[0], g[1], g[2], g[3]
	hi0, hi1, hi2, hi3 := lo0, lo1, lo2, lo3
	for i := 4; i < Cells; i += 4 {
		v0, v1, v2, v3 := g[i], g[i+1], g[i+2], g[i+3]
		lo0 = min(lo0, v0)
		lo1 = min(lo1, v1)
		lo2 = min(lo2, v2)
		lo3 = min(lo3, v3)
		hi0 = max(hi0, v0)
		hi1 = max(hi1, v1)
		hi2 = max(hi2, v2)
		hi3 = max(hi3, v3)
	}
	return min(lo0, lo1, lo2, lo3), max(hi0, hi1, hi2, hi3)
}
