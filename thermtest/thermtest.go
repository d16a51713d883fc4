// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermtest implements fake frame sources.
package thermtest

import (
	"errors"
	"math"
	"math/rand"

	"github.com/thermcam/go-thermcam/thermal"
)

// ErrInjected is returned by Fake when a failure is injected.
var ErrInjected = errors.New("thermtest: injected failure")

// Fake simulates a scene with a few slowly moving warm and cold spots over
// a uniform background.
type Fake struct {
	// Background is the scene temperature in °C.
	Background float32
	// FailEvery makes every Nth Acquire fail with ErrInjected. 0 disables.
	FailEvery int
	// NaNRatio is the fraction of cells reported as NaN on every frame.
	NaNRatio float64

	noise  *noise
	calls  int
	resets int
	closed bool
}

// New returns a deterministic fake.
func New(seed int64) *Fake {
	return &Fake{Background: 22, noise: makeNoise(seed)}
}

func (f *Fake) Acquire(dst *thermal.Grid) error {
	if f.closed {
		return errors.New("thermtest: closed")
	}
	f.calls++
	if f.FailEvery > 0 && f.calls%f.FailEvery == 0 {
		return ErrInjected
	}
	f.noise.update()
	f.noise.render(dst, f.Background)
	if f.NaNRatio > 0 {
		n := int(f.NaNRatio * thermal.Cells)
		for i := 0; i < n; i++ {
			dst[f.noise.rand.Intn(thermal.Cells)] = float32(math.NaN())
		}
	}
	return nil
}

func (f *Fake) Reset() error {
	f.resets++
	return nil
}

func (f *Fake) Close() error {
	f.closed = true
	return nil
}

// Calls returns the number of Acquire calls.
func (f *Fake) Calls() int {
	return f.calls
}

// Resets returns the number of Reset calls.
func (f *Fake) Resets() int {
	return f.resets
}

//

type vector struct {
	intensity float64
	x         float64
	y         float64
}

// noise is cheezy but gets us going for testing without a device.
type noise struct {
	rand    *rand.Rand
	vectors []vector
}

func makeNoise(seed int64) *noise {
	n := &noise{rand: rand.New(rand.NewSource(seed))}
	n.vectors = make([]vector, 6)
	for i := range n.vectors {
		n.vectors[i].intensity = n.rand.NormFloat64() * 20
		n.vectors[i].x = n.rand.NormFloat64()*6 + thermal.Cols/2
		n.vectors[i].y = n.rand.NormFloat64()*4 + thermal.Rows/2
	}
	return n
}

func (n *noise) update() {
	for i := range n.vectors {
		n.vectors[i].intensity += n.rand.NormFloat64() * 0.1
		n.vectors[i].x += n.rand.NormFloat64() * 0.1
		n.vectors[i].y += n.rand.NormFloat64() * 0.1
	}
}

func (n *noise) render(g *thermal.Grid, background float32) {
	for y := 0; y < thermal.Rows; y++ {
		fy := float64(y)
		for x := 0; x < thermal.Cols; x++ {
			fx := float64(x)
			value := float64(background) + n.rand.NormFloat64()*0.05
			for _, vect := range n.vectors {
				distance := (vect.x-fx)*(vect.x-fx) + (vect.y-fy)*(vect.y-fy)
				value += vect.intensity / (1 + distance)
			}
			g.Set(x, y, float32(value))
		}
	}
}
