// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package canvas defines the screen the camera draws on and provides an
// in-memory and a terminal implementation.
//
// The hardware implementation lives in canvas/ili9488.
package canvas

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/thermcam/go-thermcam/rgb565"
)

// Canvas is a screen.
//
// Calls are synchronous: when a call returns, the source buffer can be
// reused.
type Canvas interface {
	Bounds() image.Rectangle
	// Blit copies src with its top-left corner at at.
	Blit(at image.Point, src *rgb565.Image) error
	FillRect(r image.Rectangle, c rgb565.Color) error
	Line(a, b image.Point, c rgb565.Color) error
	// Text draws s with its top-left corner at at, on a transparent
	// background.
	Text(at image.Point, s string, c rgb565.Color) error
	// Flush commits the drawing. It is a no-op on displays that draw
	// immediately.
	Flush() error
}

// Rounder is implemented by canvases that can draw rounded rectangles.
type Rounder interface {
	RoundRect(r image.Rectangle, radius int, c rgb565.Color) error
}

// RoundRect draws a rounded rectangle if c supports it, a plain one
// otherwise.
func RoundRect(c Canvas, r image.Rectangle, radius int, col rgb565.Color) error {
	if rr, ok := c.(Rounder); ok {
		return rr.RoundRect(r, radius, col)
	}
	return c.FillRect(r, col)
}

// Face is the font used for every text. It only covers ASCII.
var Face font.Face = basicfont.Face7x13

// TextSize returns the size of s once drawn with Face.
func TextSize(s string) image.Point {
	m := Face.Metrics()
	return image.Pt(font.MeasureString(Face, s).Ceil(), (m.Ascent + m.Descent).Ceil())
}

// DrawText draws s on dst with its top-left corner at at.
func DrawText(dst draw.Image, at image.Point, s string, c color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: Face,
		Dot:  fixed.P(at.X, at.Y+Face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}
