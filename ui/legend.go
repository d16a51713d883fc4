// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ui

import (
	"fmt"
	"image"

	"github.com/thermcam/go-thermcam/canvas"
	"github.com/thermcam/go-thermcam/palette"
	"github.com/thermcam/go-thermcam/rgb565"
	"github.com/thermcam/go-thermcam/thermal"
)

// Legend placement, relative to the screen.
var (
	badgeRect = image.Rect(4, 4, LegendWidth-4, 22)
	barRect   = image.Rect(16, 40, 56, 240)
	maxAt     = image.Pt(8, 24)
	minAt     = image.Pt(8, 244)
	fpsAt     = image.Pt(8, 300)
)

// LegendState is what the legend shows.
type LegendState struct {
	Mode    thermal.Mode
	Display thermal.Range
	FPS     float32
	LUT     *palette.LUT
}

// Legend draws the left panel.
//
// The color bar is rendered once per palette and cached.
type Legend struct {
	bar    *rgb565.Image
	barLUT *palette.LUT
}

// Draw paints the whole panel. It does not Flush.
func (l *Legend) Draw(c canvas.Canvas, s *LegendState) error {
	if err := c.FillRect(image.Rect(0, 0, LegendWidth, ScreenHeight), ColorPanel); err != nil {
		return err
	}
	if err := canvas.RoundRect(c, badgeRect, 4, ModeColor(s.Mode)); err != nil {
		return err
	}
	name := s.Mode.String()
	at := image.Pt(badgeRect.Min.X+(badgeRect.Dx()-canvas.TextSize(name).X)/2, badgeRect.Min.Y+3)
	if err := c.Text(at, name, ColorBackground); err != nil {
		return err
	}
	if s.Mode != thermal.Charging {
		if err := c.Text(maxAt, formatTemp(s.Display.High), ColorText); err != nil {
			return err
		}
		if err := c.Text(minAt, formatTemp(s.Display.Low), ColorText); err != nil {
			return err
		}
	}
	if s.LUT != nil {
		if err := c.Blit(barRect.Min, l.colorBar(s.LUT)); err != nil {
			return err
		}
	}
	return c.Text(fpsAt, fmt.Sprintf("%.1ffps", s.FPS), ColorText)
}

// colorBar returns the vertical ramp of lut, hottest at the top.
func (l *Legend) colorBar(lut *palette.LUT) *rgb565.Image {
	if l.bar != nil && l.barLUT == lut {
		return l.bar
	}
	if l.bar == nil {
		l.bar = rgb565.NewImage(image.Rect(0, 0, barRect.Dx(), barRect.Dy()))
	}
	h := barRect.Dy()
	for y := 0; y < h; y++ {
		i := (palette.Size - 1) - y*(palette.Size-1)/(h-1)
		l.bar.FillRect(image.Rect(0, y, barRect.Dx(), y+1), lut[i])
	}
	l.barLUT = lut
	return l.bar
}

// formatTemp formats a temperature for the screen font, which has no degree
// sign.
func formatTemp(v float32) string {
	return fmt.Sprintf("%.1fC", v)
}
