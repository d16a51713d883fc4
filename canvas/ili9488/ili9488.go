// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ili9488 drives a 480x320 ILI9488 TFT controller over 4-wire SPI in
// landscape orientation.
//
// The controller only accepts 18 bits pixels over SPI so every RGB565 pixel
// is expanded to 3 bytes on the wire.
//
// Datasheet:
//
//	https://www.hpinfotech.ro/ILI9488.pdf
//	p. 140 Memory access control (0x36).
//	p. 200 Interface pixel format (0x3A).
package ili9488

import (
	"errors"
	"fmt"
	"image"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"

	"github.com/thermcam/go-thermcam/canvas"
	"github.com/thermcam/go-thermcam/rgb565"
)

// Screen size in landscape.
const (
	Width  = 480
	Height = 320
)

const (
	cmdSWReset     = 0x01
	cmdSleepOut    = 0x11
	cmdDisplayOff  = 0x28
	cmdDisplayOn   = 0x29
	cmdColumnAddr  = 0x2A
	cmdPageAddr    = 0x2B
	cmdMemWrite    = 0x2C
	cmdMADCTL      = 0x36
	cmdPixelFormat = 0x3A

	madctlMY  = 0x80
	madctlMX  = 0x40
	madctlMV  = 0x20
	madctlBGR = 0x08

	defaultMaxTx = 4096
)

type command struct {
	cmd  byte
	data []byte
}

// Sent after the software reset and before the orientation.
var initSequence = []command{
	// Positive and negative gamma.
	{0xE0, []byte{0x00, 0x03, 0x09, 0x08, 0x16, 0x0A, 0x3F, 0x78, 0x4C, 0x09, 0x0A, 0x08, 0x16, 0x1A, 0x0F}},
	{0xE1, []byte{0x00, 0x16, 0x19, 0x03, 0x0F, 0x05, 0x32, 0x45, 0x46, 0x04, 0x0E, 0x0D, 0x35, 0x37, 0x0F}},
	{0xC0, []byte{0x17, 0x15}},             // Power control 1
	{0xC1, []byte{0x41}},                   // Power control 2
	{0xC5, []byte{0x00, 0x12, 0x80}},       // VCOM
	{cmdPixelFormat, []byte{0x66}},         // 18 bits
	{0xB0, []byte{0x00}},                   // Interface mode
	{0xB1, []byte{0xA0}},                   // Frame rate 60Hz
	{0xB4, []byte{0x02}},                   // 2-dot inversion
	{0xB6, []byte{0x02, 0x02, 0x3B}},       // Display function
	{0xB7, []byte{0xC6}},                   // Entry mode
	{0xF7, []byte{0xA9, 0x51, 0x2C, 0x82}}, // Adjust control 3
}

// Opts is the display configuration.
type Opts struct {
	// Flip rotates the picture by 180°, for boards where the connector is on
	// the other side.
	Flip bool
}

// Dev is an ILI9488 display.
//
// Drawing operations update an in-memory copy of the screen and Flush sends
// the modified areas. This is needed because the controller cannot be read
// back over SPI and text is drawn on a transparent background.
type Dev struct {
	c      spi.Conn
	dc     gpio.PinOut
	rst    gpio.PinOut
	led    gpio.PinOut
	shadow *rgb565.Image
	dirty  []image.Rectangle
	buf    []byte
}

var sleep = time.Sleep

// New resets and initializes the display.
//
// rst and led are optional. c must be connected in spi.Mode0 with 8 bits
// words.
func New(c spi.Conn, dc, rst, led gpio.PinOut, opts *Opts) (*Dev, error) {
	if dc == nil {
		return nil, errors.New("ili9488: dc pin is required")
	}
	maxTx := defaultMaxTx
	if l, ok := c.(conn.Limits); ok {
		if m := l.MaxTxSize(); m > 0 && m < maxTx {
			maxTx = m
		}
	}
	d := &Dev{
		c:      c,
		dc:     dc,
		rst:    rst,
		led:    led,
		shadow: rgb565.NewImage(image.Rect(0, 0, Width, Height)),
		// A multiple of 3 so pixels are never split.
		buf: make([]byte, maxTx-maxTx%3),
	}
	if err := d.init(opts); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("ili9488{%s}", d.c)
}

// Halt turns the display and the backlight off.
func (d *Dev) Halt() error {
	err := d.command(cmdDisplayOff)
	if d.led != nil {
		if err2 := d.led.Out(gpio.Low); err == nil {
			err = err2
		}
	}
	return err
}

func (d *Dev) Bounds() image.Rectangle {
	return d.shadow.Rect
}

func (d *Dev) Blit(at image.Point, src *rgb565.Image) error {
	sr := src.Bounds()
	dr := image.Rectangle{Min: at, Max: at.Add(sr.Size())}.Intersect(d.shadow.Rect)
	if dr.Empty() {
		return nil
	}
	for y := dr.Min.Y; y < dr.Max.Y; y++ {
		off := d.shadow.PixOffset(dr.Min.X, y)
		line := src.Row(sr.Min.Y + y - at.Y)
		copy(d.shadow.Pix[off:off+dr.Dx()], line[sr.Min.X+dr.Min.X-at.X:])
	}
	d.markDirty(dr)
	return nil
}

func (d *Dev) FillRect(r image.Rectangle, c rgb565.Color) error {
	r = r.Intersect(d.shadow.Rect)
	if r.Empty() {
		return nil
	}
	d.shadow.FillRect(r, c)
	d.markDirty(r)
	return nil
}

// Line draws an aliased line.
func (d *Dev) Line(a, b image.Point, c rgb565.Color) error {
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := sign(b.X-a.X), sign(b.Y-a.Y)
	e := dx + dy
	for p := a; ; {
		d.shadow.SetRGB565(p.X, p.Y, c)
		if p == b {
			break
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			p.X += sx
		}
		if e2 <= dx {
			e += dx
			p.Y += sy
		}
	}
	r := image.Rectangle{Min: a, Max: b}.Canon()
	r.Max = r.Max.Add(image.Pt(1, 1))
	d.markDirty(r.Intersect(d.shadow.Rect))
	return nil
}

func (d *Dev) Text(at image.Point, s string, c rgb565.Color) error {
	canvas.DrawText(d.shadow, at, s, c)
	d.markDirty(image.Rectangle{Min: at, Max: at.Add(canvas.TextSize(s))}.Intersect(d.shadow.Rect))
	return nil
}

// Flush sends the areas modified since the last Flush.
//
// On error, the areas not sent yet are kept for the next Flush.
func (d *Dev) Flush() error {
	for i, r := range d.dirty {
		if err := d.push(r); err != nil {
			d.dirty = d.dirty[:copy(d.dirty, d.dirty[i:])]
			return err
		}
	}
	d.dirty = d.dirty[:0]
	return nil
}

// Private details.

func (d *Dev) init(opts *Opts) error {
	if d.rst != nil {
		if err := d.rst.Out(gpio.High); err != nil {
			return err
		}
		sleep(5 * time.Millisecond)
		if err := d.rst.Out(gpio.Low); err != nil {
			return err
		}
		sleep(10 * time.Millisecond)
		if err := d.rst.Out(gpio.High); err != nil {
			return err
		}
		sleep(120 * time.Millisecond)
	}
	if err := d.command(cmdSWReset); err != nil {
		return err
	}
	sleep(120 * time.Millisecond)
	for _, c := range initSequence {
		if err := d.command(c.cmd, c.data...); err != nil {
			return err
		}
	}
	m := byte(madctlMV | madctlBGR)
	if opts != nil && opts.Flip {
		m |= madctlMX | madctlMY
	}
	if err := d.command(cmdMADCTL, m); err != nil {
		return err
	}
	if err := d.command(cmdSleepOut); err != nil {
		return err
	}
	sleep(120 * time.Millisecond)
	if err := d.command(cmdDisplayOn); err != nil {
		return err
	}
	if d.led != nil {
		return d.led.Out(gpio.High)
	}
	return nil
}

// command sends cmd with DC low then its parameters with DC high.
func (d *Dev) command(cmd byte, data ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.c.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("ili9488: command 0x%02X: %w", cmd, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	return d.c.Tx(data, nil)
}

// push sends the pixels of r from the shadow buffer.
func (d *Dev) push(r image.Rectangle) error {
	x0, x1 := r.Min.X, r.Max.X-1
	y0, y1 := r.Min.Y, r.Max.Y-1
	if err := d.command(cmdColumnAddr, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	if err := d.command(cmdPageAddr, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1)); err != nil {
		return err
	}
	if err := d.command(cmdMemWrite); err != nil {
		return err
	}
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := d.shadow.PixOffset(r.Min.X, y)
		for _, c := range d.shadow.Pix[off : off+r.Dx()] {
			d.buf[n] = byte(c>>8) & 0xF8
			d.buf[n+1] = byte(c>>3) & 0xFC
			d.buf[n+2] = byte(c << 3)
			if n += 3; n == len(d.buf) {
				if err := d.c.Tx(d.buf, nil); err != nil {
					return err
				}
				n = 0
			}
		}
	}
	if n != 0 {
		return d.c.Tx(d.buf[:n], nil)
	}
	return nil
}

// markDirty records r, merging it with an overlapping area if any.
func (d *Dev) markDirty(r image.Rectangle) {
	if r.Empty() {
		return
	}
	for {
		merged := false
		for i := 0; i < len(d.dirty); i++ {
			if d.dirty[i].Overlaps(r) {
				r = r.Union(d.dirty[i])
				d.dirty = append(d.dirty[:i], d.dirty[i+1:]...)
				merged = true
				break
			}
		}
		if !merged {
			break
		}
	}
	d.dirty = append(d.dirty, r)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	}
	return 0
}

var _ canvas.Canvas = &Dev{}
var _ conn.Resource = &Dev{}
