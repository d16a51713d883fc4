// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rgb565 implements image.Image for 16 bits RGB pixels, the native
// format of small SPI TFT controllers.
//
// It is essentially an image.RGBA with a third of the memory, which matters
// since the whole frame is pushed over SPI at every refresh.
package rgb565

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
)

// Color is a 5-6-5 packed color.
type Color uint16

// Common colors.
const (
	Black   Color = 0x0000
	White   Color = 0xFFFF
	Red     Color = 0xF800
	Green   Color = 0x07E0
	Blue    Color = 0x001F
	Cyan    Color = 0x07FF
	Orange  Color = 0xFBE0
	Magenta Color = 0xF81F
)

// FromRGB packs 8 bits channels, dropping the low bits.
func FromRGB(r, g, b uint8) Color {
	return Color(uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b>>3))
}

// RGB8 expands the color back to 8 bits per channel. The high bits are
// replicated in the low bits so White maps to 255.
func (c Color) RGB8() (r, g, b uint8) {
	r5 := uint8(c>>11) & 0x1F
	g6 := uint8(c>>5) & 0x3F
	b5 := uint8(c) & 0x1F
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	r8, g8, b8 := c.RGB8()
	r = uint32(r8)
	r |= r << 8
	g = uint32(g8)
	g |= g << 8
	b = uint32(b8)
	b |= b << 8
	return r, g, b, 0xFFFF
}

// Model converts any color to Color.
var Model = color.ModelFunc(convert)

func convert(c color.Color) color.Color {
	if v, ok := c.(Color); ok {
		return v
	}
	r, g, b, _ := c.RGBA()
	return FromRGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// Image is an in-memory image of Color.
//
// It implements draw.Image so the usual image/draw and font.Drawer code paths
// work on it directly.
type Image struct {
	Pix    []Color
	Stride int
	Rect   image.Rectangle
}

// NewImage returns a new image with the given bounds.
func NewImage(r image.Rectangle) *Image {
	return &Image{Pix: make([]Color, r.Dx()*r.Dy()), Stride: r.Dx(), Rect: r}
}

// Wrap returns an image using pix as its backing store.
//
// This is used to place the frame in a memory region that was allocated
// separately.
func Wrap(pix []Color, r image.Rectangle) (*Image, error) {
	if r.Empty() {
		return nil, errors.New("rgb565: empty rectangle")
	}
	if len(pix) < r.Dx()*r.Dy() {
		return nil, errors.New("rgb565: buffer too small")
	}
	return &Image{Pix: pix[:r.Dx()*r.Dy()], Stride: r.Dx(), Rect: r}, nil
}

func (i *Image) ColorModel() color.Model {
	return Model
}

func (i *Image) Bounds() image.Rectangle {
	return i.Rect
}

func (i *Image) At(x, y int) color.Color {
	return i.RGB565At(x, y)
}

// RGB565At returns the pixel at (x, y), or Black if out of bounds.
func (i *Image) RGB565At(x, y int) Color {
	if !(image.Point{x, y}.In(i.Rect)) {
		return Black
	}
	return i.Pix[i.PixOffset(x, y)]
}

// PixOffset returns the index of the pixel at (x, y).
func (i *Image) PixOffset(x, y int) int {
	return (y-i.Rect.Min.Y)*i.Stride + (x - i.Rect.Min.X)
}

func (i *Image) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(i.Rect)) {
		return
	}
	i.Pix[i.PixOffset(x, y)] = convert(c).(Color)
}

// SetRGB565 sets the pixel at (x, y); out of bounds writes are ignored.
func (i *Image) SetRGB565(x, y int, c Color) {
	if !(image.Point{x, y}.In(i.Rect)) {
		return
	}
	i.Pix[i.PixOffset(x, y)] = c
}

// Fill sets every pixel to c.
func (i *Image) Fill(c Color) {
	for n := range i.Pix {
		i.Pix[n] = c
	}
}

// FillRect sets every pixel of r intersected with the image bounds to c.
func (i *Image) FillRect(r image.Rectangle, c Color) {
	r = r.Intersect(i.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := i.PixOffset(r.Min.X, y)
		row := i.Pix[off : off+r.Dx()]
		for x := range row {
			row[x] = c
		}
	}
}

// Row returns the pixels of line y.
func (i *Image) Row(y int) []Color {
	off := i.PixOffset(i.Rect.Min.X, y)
	return i.Pix[off : off+i.Rect.Dx()]
}

// CopyFrom copies src into i. Both images must have the same size.
func (i *Image) CopyFrom(src *Image) {
	for y := 0; y < i.Rect.Dy() && y < src.Rect.Dy(); y++ {
		copy(i.Row(i.Rect.Min.Y+y), src.Row(src.Rect.Min.Y+y))
	}
}

var _ draw.Image = &Image{}
