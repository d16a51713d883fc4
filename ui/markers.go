// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ui

import (
	"fmt"
	"image"

	"github.com/thermcam/go-thermcam/canvas"
	"github.com/thermcam/go-thermcam/rgb565"
	"github.com/thermcam/go-thermcam/thermal"
)

// Marker geometry.
const (
	markerArm = 5
	labelGap  = 2
	labelPad  = 1
)

// Marker colors.
const (
	ColorHot  = rgb565.White
	ColorCold = rgb565.Cyan
)

// DrawMarkers annotates the frame with the coldest and hottest cells.
//
// It draws into the frame buffer itself so the image and the markers are
// sent in a single Blit.
func DrawMarkers(dst *rgb565.Image, cold, hot thermal.Marker) {
	drawMarker(dst, cold, ColorCold)
	drawMarker(dst, hot, ColorHot)
}

func drawMarker(dst *rgb565.Image, m thermal.Marker, c rgb565.Color) {
	at := image.Pt(m.X, m.Y).Add(dst.Rect.Min)
	for i := -markerArm; i <= markerArm; i++ {
		dst.SetRGB565(at.X+i, at.Y+i, c)
		dst.SetRGB565(at.X+i, at.Y-i, c)
	}
	s := fmt.Sprintf("%.1f", m.Value)
	size := canvas.TextSize(s).Add(image.Pt(2*labelPad, 2*labelPad))
	r := thermal.PlaceLabel(at, size, markerArm, labelGap, dst.Rect)
	dst.FillRect(r, ColorBackground)
	canvas.DrawText(dst, r.Min.Add(image.Pt(labelPad, labelPad)), s, c)
}
