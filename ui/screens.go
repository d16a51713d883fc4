// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ui

import (
	"bytes"
	"image"

	svg "github.com/ajstarks/svgo"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/thermcam/go-thermcam/canvas"
	"github.com/thermcam/go-thermcam/rgb565"
)

// Title is shown on the startup screen.
const Title = "THERMCAM"

// DrawStartup paints the splash screen.
func DrawStartup(c canvas.Canvas, version string) error {
	b := c.Bounds()
	if err := c.FillRect(b, ColorBackground); err != nil {
		return err
	}
	if err := centered(c, b.Dy()/2-20, Title, ColorAccent); err != nil {
		return err
	}
	if version != "" {
		if err := centered(c, b.Dy()/2+4, version, ColorText); err != nil {
			return err
		}
	}
	return c.Flush()
}

// Error page titles.
const (
	TitleSensorError = "sensor error"
	TitleMemoryError = "memory error"
)

// DrawError paints a fatal error page. detail is typically the error
// message and is truncated to the screen width.
func DrawError(c canvas.Canvas, title, detail string) error {
	if err := c.FillRect(c.Bounds(), ColorBackground); err != nil {
		return err
	}
	if err := c.Text(image.Pt(20, 80), title, ColorAccent); err != nil {
		return err
	}
	n := (c.Bounds().Dx() - 40) / canvas.TextSize("W").X
	if len(detail) > n {
		detail = detail[:n]
	}
	if err := c.Text(image.Pt(20, 110), detail, ColorText); err != nil {
		return err
	}
	return c.Flush()
}

func centered(c canvas.Canvas, y int, s string, col rgb565.Color) error {
	b := c.Bounds()
	x := b.Min.X + (b.Dx()-canvas.TextSize(s).X)/2
	return c.Text(image.Pt(x, y), s, col)
}

// Battery glyph geometry.
const (
	batteryW     = 120
	batteryH     = 60
	batteryCells = 4
)

// Charging animates the charging page.
type Charging struct {
	icon *rgb565.Image
	step int
}

// NewCharging rasterizes the battery glyph.
func NewCharging() (*Charging, error) {
	var buf bytes.Buffer
	s := svg.New(&buf)
	s.Startview(batteryW, batteryH, 0, 0, batteryW, batteryH)
	s.Roundrect(2, 2, batteryW-16, batteryH-4, 8, 8, "fill:none;stroke:white;stroke-width:4")
	s.Rect(batteryW-12, batteryH/2-12, 10, 24, "fill:white")
	s.End()

	icon, err := oksvg.ReadIconStream(&buf)
	if err != nil {
		return nil, err
	}
	icon.SetTarget(0, 0, batteryW, batteryH)
	rgba := image.NewRGBA(image.Rect(0, 0, batteryW, batteryH))
	scanner := rasterx.NewScannerGV(batteryW, batteryH, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(batteryW, batteryH, scanner), 1.0)

	out := rgb565.NewImage(rgba.Rect)
	for y := 0; y < batteryH; y++ {
		for x := 0; x < batteryW; x++ {
			p := rgba.RGBAAt(x, y)
			out.SetRGB565(x, y, rgb565.FromRGB(p.R, p.G, p.B))
		}
	}
	return &Charging{icon: out}, nil
}

// Step returns the number of filled cells shown by the next Draw.
func (ch *Charging) Step() int {
	return ch.step
}

// Draw paints the page and advances the animation by one cell.
func (ch *Charging) Draw(c canvas.Canvas) error {
	b := c.Bounds()
	if err := c.FillRect(b, ColorBackground); err != nil {
		return err
	}
	at := image.Pt(b.Min.X+(b.Dx()-batteryW)/2, b.Min.Y+(b.Dy()-batteryH)/2)
	if err := c.Blit(at, ch.icon); err != nil {
		return err
	}
	for i := 0; i < ch.step; i++ {
		if err := c.FillRect(cellRect(i).Add(at), ColorLive); err != nil {
			return err
		}
	}
	if err := centered(c, at.Y+batteryH+16, "CHARGING", ColorCharging); err != nil {
		return err
	}
	ch.step = (ch.step + 1) % (batteryCells + 1)
	return c.Flush()
}

// cellRect returns the i-th fill cell inside the battery body.
func cellRect(i int) image.Rectangle {
	const inner = batteryW - 16 - 16
	w := (inner - (batteryCells-1)*4) / batteryCells
	x := 10 + i*(w+4)
	return image.Rect(x, 10, x+w, batteryH-10)
}
