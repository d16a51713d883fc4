// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package canvas

import (
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/thermcam/go-thermcam/rgb565"
)

// Term is a Canvas that renders to a true color terminal on Flush.
//
// Each character cell shows two pixels stacked vertically, so the picture is
// downsampled to Columns wide.
type Term struct {
	*Image
	W       io.Writer
	Columns int
}

// NewTerm returns a terminal canvas of the given bounds.
func NewTerm(w io.Writer, r image.Rectangle, columns int) *Term {
	if columns <= 0 || columns > r.Dx() {
		columns = r.Dx()
	}
	return &Term{Image: NewImage(r), W: w, Columns: columns}
}

// Flush writes the whole picture, moving the cursor home first.
func (t *Term) Flush() error {
	t.Flushes++
	_, err := io.WriteString(t.W, "\x1b[H"+t.String())
	return err
}

// String renders the canvas as lines of half blocks.
func (t *Term) String() string {
	r := t.Bounds()
	cols := t.Columns
	rows := r.Dy() * cols / r.Dx()
	rows += rows & 1
	var b strings.Builder
	for y := 0; y < rows; y += 2 {
		for x := 0; x < cols; x++ {
			top := t.sample(x, y, cols, rows)
			bottom := t.sample(x, y+1, cols, rows)
			s := lipgloss.NewStyle().Foreground(hex(top)).Background(hex(bottom))
			b.WriteString(s.Render("▀"))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (t *Term) sample(x, y, cols, rows int) rgb565.Color {
	r := t.Bounds()
	return t.At(r.Min.X+x*r.Dx()/cols, r.Min.Y+y*r.Dy()/rows)
}

func hex(c rgb565.Color) lipgloss.Color {
	r, g, b := c.RGB8()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r, g, b))
}

var _ Canvas = &Term{}
