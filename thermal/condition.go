// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"errors"
	"fmt"
	"time"
)

// ErrRejected is returned when a frame has too many invalid cells to be
// repaired. The previous output must be kept as is.
var ErrRejected = errors.New("frame rejected")

// Default conditioning constants.
const (
	DefaultBandMin     = -40
	DefaultBandMax     = 300
	DefaultRejectRatio = 0.25
	DefaultSafeValue   = 20
	historyLen         = 3
	fpsSmooth          = 0.9
)

// ConditionStats counts what the Conditioner did.
type ConditionStats struct {
	Frames   int // Calls to Condition.
	Accepted int
	Rejected int
	Repaired int // Cells repaired, cumulative.
}

// Conditioner cleans up raw grids.
//
// It keeps the last 3 raw grids and, once it has seen 3 of them, replaces each
// cell with the median of its 3 values. Invalid cells (NaN or out of
// [BandMin, BandMax]) are then repaired from their valid 4-neighbors. A frame
// with more than RejectRatio invalid cells is rejected.
type Conditioner struct {
	BandMin     float32
	BandMax     float32
	RejectRatio float32 // Fraction of Cells.
	SafeValue   float32 // Used when a cell can't be repaired otherwise.

	history [historyLen]Grid
	next    int // Slot to write to.
	pushed  int // Saturates at historyLen.
	invalid [Cells]bool
	last    Grid
	hasLast bool
	lastAt  time.Time
	fps     float32
	stats   ConditionStats
}

// MakeConditioner returns a Conditioner using the default constants.
func MakeConditioner() Conditioner {
	return Conditioner{
		BandMin:     DefaultBandMin,
		BandMax:     DefaultBandMax,
		RejectRatio: DefaultRejectRatio,
		SafeValue:   DefaultSafeValue,
	}
}

// Condition pushes raw in the history and writes the conditioned grid in dst.
//
// now is the arrival time of raw and is used for the frame rate estimate.
// When the frame is rejected, dst is left untouched and the returned error
// wraps ErrRejected.
func (c *Conditioner) Condition(dst, raw *Grid, now time.Time) error {
	c.stats.Frames++
	c.updateFPS(now)

	c.history[c.next] = *raw
	c.next = (c.next + 1) % historyLen
	if c.pushed < historyLen {
		c.pushed++
	}

	// Until the history is full, the raw grid is used as is.
	var work Grid
	if c.pushed < historyLen {
		work = *raw
	} else {
		a, b, d := &c.history[0], &c.history[1], &c.history[2]
		for i := range work {
			work[i] = median3(a[i], b[i], d[i])
		}
	}

	bad := 0
	for i, v := range work {
		ok := v == v && v >= c.BandMin && v <= c.BandMax
		c.invalid[i] = !ok
		if !ok {
			bad++
		}
	}
	if float32(bad) > c.RejectRatio*Cells {
		c.stats.Rejected++
		return fmt.Errorf("%d/%d cells invalid: %w", bad, Cells, ErrRejected)
	}
	if bad != 0 {
		c.repair(&work)
		c.stats.Repaired += bad
	}
	*dst = work
	c.last = work
	c.hasLast = true
	c.stats.Accepted++
	return nil
}

// repair replaces each invalid cell with the average of its valid
// 4-neighbors. Validity is from the mask computed before any repair.
func (c *Conditioner) repair(g *Grid) {
	for i := range g {
		if !c.invalid[i] {
			continue
		}
		col, row := i%Cols, i/Cols
		sum := float32(0)
		n := 0
		if col > 0 && !c.invalid[i-1] {
			sum += g[i-1]
			n++
		}
		if col < Cols-1 && !c.invalid[i+1] {
			sum += g[i+1]
			n++
		}
		if row > 0 && !c.invalid[i-Cols] {
			sum += g[i-Cols]
			n++
		}
		if row < Rows-1 && !c.invalid[i+Cols] {
			sum += g[i+Cols]
			n++
		}
		switch {
		case n != 0:
			g[i] = sum / float32(n)
		case c.hasLast:
			g[i] = c.last[i]
		default:
			g[i] = c.SafeValue
		}
	}
}

func (c *Conditioner) updateFPS(now time.Time) {
	if !c.lastAt.IsZero() {
		if dt := now.Sub(c.lastAt); dt > 0 {
			inst := float32(time.Second) / float32(dt)
			if c.fps == 0 {
				c.fps = inst
			} else {
				c.fps = c.fps*fpsSmooth + inst*(1-fpsSmooth)
			}
		}
	}
	c.lastAt = now
}

// FPS returns the smoothed arrival rate of frames.
func (c *Conditioner) FPS() float32 {
	return c.fps
}

// Stats returns the counters.
func (c *Conditioner) Stats() ConditionStats {
	return c.stats
}

// Filled returns true once the temporal history holds 3 grids.
func (c *Conditioner) Filled() bool {
	return c.pushed == historyLen
}

// Reset clears the temporal history and the frame rate estimate. The last
// conditioned grid is kept for repair fallback.
func (c *Conditioner) Reset() {
	c.next = 0
	c.pushed = 0
	c.lastAt = time.Time{}
	c.fps = 0
}

// median3 returns the median of 3 values with 3 comparisons.
func median3(a, b, c float32) float32 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	if a > b {
		b = a
	}
	return b
}
