// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ui lays out the camera screen: a legend panel on the left and the
// thermal image on the right, plus the full screen startup, charging and
// error pages.
package ui

import (
	"image"

	"github.com/thermcam/go-thermcam/rgb565"
	"github.com/thermcam/go-thermcam/thermal"
)

// Layout of a 480x320 screen.
const (
	ScreenWidth  = 480
	ScreenHeight = 320
	LegendWidth  = ScreenWidth - thermal.OutWidth
)

// ImageAt is where the thermal image is blitted.
var ImageAt = image.Pt(LegendWidth, 0)

// Colors.
const (
	ColorBackground = rgb565.Black
	ColorText       = rgb565.White
	ColorLive       = rgb565.Green
	ColorPaused     = rgb565.Orange
	ColorAlternate  = rgb565.Cyan
	ColorAccent     = rgb565.Red
	ColorPanel      = rgb565.Color(0x0841)
	ColorCharging   = rgb565.Color(0x39E7)
)

// ModeColor returns the badge color of m.
func ModeColor(m thermal.Mode) rgb565.Color {
	switch m {
	case thermal.Live:
		return ColorLive
	case thermal.Paused:
		return ColorPaused
	case thermal.Alternate:
		return ColorAlternate
	default:
		return ColorCharging
	}
}
