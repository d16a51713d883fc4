// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package canvas

import (
	"image"
	"image/draw"

	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"

	"github.com/thermcam/go-thermcam/rgb565"
)

// Image is a Canvas drawing in memory.
//
// It is used for previews and tests.
type Image struct {
	RGBA    *image.RGBA
	Flushes int
}

// NewImage returns a black canvas of the given bounds.
func NewImage(r image.Rectangle) *Image {
	i := &Image{RGBA: image.NewRGBA(r)}
	draw.Draw(i.RGBA, r, image.Black, image.Point{}, draw.Src)
	return i
}

func (i *Image) Bounds() image.Rectangle {
	return i.RGBA.Rect
}

func (i *Image) Blit(at image.Point, src *rgb565.Image) error {
	sr := src.Bounds()
	dr := image.Rectangle{Min: at, Max: at.Add(sr.Size())}.Intersect(i.RGBA.Rect)
	for y := dr.Min.Y; y < dr.Max.Y; y++ {
		line := src.Row(sr.Min.Y + y - at.Y)
		off := i.RGBA.PixOffset(dr.Min.X, y)
		for x := dr.Min.X; x < dr.Max.X; x++ {
			r, g, b := line[sr.Min.X+x-at.X].RGB8()
			p := i.RGBA.Pix[off : off+4 : off+4]
			p[0], p[1], p[2], p[3] = r, g, b, 0xFF
			off += 4
		}
	}
	return nil
}

func (i *Image) FillRect(r image.Rectangle, c rgb565.Color) error {
	draw.Draw(i.RGBA, r, image.NewUniform(c), image.Point{}, draw.Src)
	return nil
}

// Line strokes a one pixel wide anti-aliased line through the pixel
// centers.
func (i *Image) Line(a, b image.Point, c rgb565.Color) error {
	gc := draw2dimg.NewGraphicContext(i.RGBA)
	gc.SetStrokeColor(c)
	gc.SetLineWidth(1)
	gc.MoveTo(float64(a.X)+0.5, float64(a.Y)+0.5)
	gc.LineTo(float64(b.X)+0.5, float64(b.Y)+0.5)
	gc.Stroke()
	return nil
}

func (i *Image) Text(at image.Point, s string, c rgb565.Color) error {
	DrawText(i.RGBA, at, s, c)
	return nil
}

// RoundRect implements Rounder.
func (i *Image) RoundRect(r image.Rectangle, radius int, c rgb565.Color) error {
	gc := draw2dimg.NewGraphicContext(i.RGBA)
	gc.SetFillColor(c)
	d := float64(2 * radius)
	draw2dkit.RoundedRectangle(gc, float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y), d, d)
	gc.Fill()
	return nil
}

func (i *Image) Flush() error {
	i.Flushes++
	return nil
}

// At returns the pixel at (x, y) quantized to RGB565.
func (i *Image) At(x, y int) rgb565.Color {
	c := i.RGBA.RGBAAt(x, y)
	return rgb565.FromRGB(c.R, c.G, c.B)
}

var _ Canvas = &Image{}
var _ Rounder = &Image{}
