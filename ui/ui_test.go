// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ui

import (
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermcam/go-thermcam/canvas"
	"github.com/thermcam/go-thermcam/palette"
	"github.com/thermcam/go-thermcam/rgb565"
	"github.com/thermcam/go-thermcam/thermal"
)

func newScreen() *canvas.Image {
	return canvas.NewImage(image.Rect(0, 0, ScreenWidth, ScreenHeight))
}

// count returns the number of pixels of color c in r.
func count(img *canvas.Image, r image.Rectangle, c rgb565.Color) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.At(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestLayout(t *testing.T) {
	assert.Equal(t, 72, LegendWidth)
	assert.Equal(t, image.Pt(72, 0), ImageAt)
}

func TestModeColor(t *testing.T) {
	assert.Equal(t, rgb565.Color(0x07E0), ModeColor(thermal.Live))
	assert.Equal(t, rgb565.Color(0xFBE0), ModeColor(thermal.Paused))
	assert.Equal(t, rgb565.Color(0x07FF), ModeColor(thermal.Alternate))
	assert.Equal(t, rgb565.Color(0x39E7), ModeColor(thermal.Charging))
}

func TestLegend(t *testing.T) {
	c := newScreen()
	var l Legend
	s := LegendState{Mode: thermal.Live, Display: thermal.Range{Low: 20, High: 35.5}, FPS: 15.9, LUT: palette.Iron()}
	require.NoError(t, l.Draw(c, &s))

	_, g, _ := c.At(6, 13).RGB8()
	assert.Greater(t, g, uint8(200), "badge")
	assert.Equal(t, palette.Iron().Hot(), c.At(barRect.Min.X, barRect.Min.Y))
	assert.Equal(t, palette.Iron().Cold(), c.At(barRect.Max.X-1, barRect.Max.Y-1))
	assert.Equal(t, ColorPanel, c.At(LegendWidth-1, ScreenHeight-1))
	assert.Equal(t, rgb565.Black, c.At(LegendWidth, 0), "image area untouched")
	label := image.Rectangle{Min: maxAt, Max: maxAt.Add(canvas.TextSize(formatTemp(35.5)))}
	assert.NotZero(t, count(c, label, ColorText), "max label")
	label = image.Rectangle{Min: minAt, Max: minAt.Add(canvas.TextSize(formatTemp(20)))}
	assert.NotZero(t, count(c, label, ColorText), "min label")
	assert.Zero(t, c.Flushes)
}

func TestLegend_charging(t *testing.T) {
	c := newScreen()
	var l Legend
	require.NoError(t, l.Draw(c, &LegendState{Mode: thermal.Charging}))
	label := image.Rectangle{Min: maxAt, Max: maxAt.Add(image.Pt(40, 13))}
	assert.Equal(t, label.Dx()*label.Dy(), count(c, label, ColorPanel))
}

func TestLegend_barCache(t *testing.T) {
	var l Legend
	a := l.colorBar(palette.Iron())
	assert.Same(t, a, l.colorBar(palette.Iron()))
	b := l.colorBar(palette.Spectral())
	assert.Equal(t, palette.Spectral().Hot(), b.RGB565At(0, 0))
	assert.Equal(t, palette.Spectral().Cold(), b.RGB565At(0, barRect.Dy()-1))
}

func TestFormatTemp(t *testing.T) {
	assert.Equal(t, "-3.2C", formatTemp(-3.21))
	assert.Equal(t, "100.0C", formatTemp(100))
}

func TestDrawMarkers(t *testing.T) {
	frame := rgb565.NewImage(image.Rect(0, 0, thermal.OutWidth, thermal.OutHeight))
	frame.Fill(rgb565.Blue)
	hot := thermal.Marker{X: 200, Y: 160, Value: 45}
	cold := thermal.Marker{X: 0, Y: 0, Value: 20}
	DrawMarkers(frame, cold, hot)

	for _, p := range []image.Point{{200, 160}, {205, 165}, {195, 165}, {205, 155}} {
		assert.Equal(t, ColorHot, frame.RGB565At(p.X, p.Y), "%v", p)
	}
	assert.Equal(t, rgb565.Blue, frame.RGB565At(201, 160))
	// Label is up and to the right.
	assert.Equal(t, ColorBackground, frame.RGB565At(207, 138))
	n := 0
	for y := 138; y < 153; y++ {
		for x := 207; x < 237; x++ {
			if frame.RGB565At(x, y) == ColorHot {
				n++
			}
		}
	}
	assert.NotZero(t, n)

	assert.Equal(t, ColorCold, frame.RGB565At(0, 0))
	assert.Equal(t, ColorCold, frame.RGB565At(5, 5))
}

func TestDrawStartup(t *testing.T) {
	c := newScreen()
	require.NoError(t, DrawStartup(c, "v1"))
	assert.NotZero(t, count(c, c.Bounds(), ColorAccent))
	assert.NotZero(t, count(c, c.Bounds(), ColorText))
	assert.Equal(t, 1, c.Flushes)
}

func TestDrawError(t *testing.T) {
	c := newScreen()
	require.NoError(t, DrawError(c, TitleSensorError, strings.Repeat("x", 200)))
	assert.NotZero(t, count(c, image.Rect(20, 80, 110, 93), ColorAccent))
	assert.NotZero(t, count(c, image.Rect(20, 110, 460, 123), ColorText))
	assert.Zero(t, count(c, image.Rect(461, 110, 480, 123), ColorText))
	assert.Equal(t, 1, c.Flushes)

	m := newScreen()
	require.NoError(t, DrawError(m, TitleMemoryError, "out of memory"))
	assert.Zero(t, count(m, image.Rect(300, 110, 460, 123), ColorText), "short detail")
	diff := 0
	for y := 80; y < 93; y++ {
		for x := 20; x < 140; x++ {
			if c.At(x, y) != m.At(x, y) {
				diff++
			}
		}
	}
	assert.NotZero(t, diff, "different title")
}

func TestCharging(t *testing.T) {
	ch, err := NewCharging()
	require.NoError(t, err)
	r, _, _ := ch.icon.RGB565At(2, batteryH/2).RGB8()
	assert.Greater(t, r, uint8(200), "outline")
	r, _, _ = ch.icon.RGB565At(batteryW-7, batteryH/2).RGB8()
	assert.Greater(t, r, uint8(200), "terminal")
	assert.Equal(t, rgb565.Black, ch.icon.RGB565At(batteryW/2, batteryH/2))

	c := newScreen()
	at := image.Pt((ScreenWidth-batteryW)/2, (ScreenHeight-batteryH)/2)
	cell := cellRect(0).Add(at)
	mid := cell.Min.Add(cell.Size().Div(2))
	require.NoError(t, ch.Draw(c))
	assert.Equal(t, rgb565.Black, c.At(mid.X, mid.Y))
	assert.Equal(t, 1, ch.Step())
	require.NoError(t, ch.Draw(c))
	assert.Equal(t, ColorLive, c.At(mid.X, mid.Y))
	for i := 0; i < batteryCells-1; i++ {
		require.NoError(t, ch.Draw(c))
	}
	assert.Zero(t, ch.Step(), "wraps")
	assert.Equal(t, batteryCells+1, c.Flushes)
}
