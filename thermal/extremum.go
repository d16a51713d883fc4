// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import "image"

// Marker is the coldest or hottest cell of a grid, in output coordinates.
type Marker struct {
	Index int // Cell index in the Grid.
	X     int
	Y     int
	Value float32
}

// MarkerAt returns the Marker of cell index with value v.
//
// The position uses the same proportion as the Upscaler, clamped to the
// frame.
func MarkerAt(index int, v float32) Marker {
	col, row := index%Cols, index/Cols
	x := col * OutWidth / (Cols - 1)
	if x > OutWidth-1 {
		x = OutWidth - 1
	}
	y := row * OutHeight / (Rows - 1)
	if y > OutHeight-1 {
		y = OutHeight - 1
	}
	return Marker{Index: index, X: x, Y: y, Value: v}
}

// LocateExtrema returns the coldest and hottest cells. The first occurrence
// wins on ties.
func LocateExtrema(g *Grid) (cold, hot Marker) {
	lo, hi := 0, 0
	for i := 1; i < Cells; i++ {
		if g[i] < g[lo] {
			lo = i
		}
		if g[i] > g[hi] {
			hi = i
		}
	}
	return MarkerAt(lo, g[lo]), MarkerAt(hi, g[hi])
}

// PlaceLabel returns where to draw a size label next to a crosshair of half
// width arm centered on at.
//
// The label goes up and to the right of the crosshair. It moves to the left
// side when it would overflow on the right, below when it would overflow on
// the top, and is finally clamped inside bounds.
func PlaceLabel(at image.Point, size image.Point, arm, gap int, bounds image.Rectangle) image.Rectangle {
	x := at.X + arm + gap
	if x+size.X > bounds.Max.X {
		x = at.X - arm - gap - size.X
	}
	y := at.Y - arm - gap - size.Y
	if y < bounds.Min.Y {
		y = at.Y + arm + gap
	}
	if x+size.X > bounds.Max.X {
		x = bounds.Max.X - size.X
	}
	if x < bounds.Min.X {
		x = bounds.Min.X
	}
	if y+size.Y > bounds.Max.Y {
		y = bounds.Max.Y - size.Y
	}
	if y < bounds.Min.Y {
		y = bounds.Min.Y
	}
	return image.Rectangle{Min: image.Pt(x, y), Max: image.Pt(x+size.X, y+size.Y)}
}
