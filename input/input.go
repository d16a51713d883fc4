// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package input turns a push button into mode advance events.
//
// Edges are recorded from a background goroutine; the camera loop consumes
// them with Advance.
package input

import (
	"context"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// DefaultDebounce is the minimum delay between two accepted presses.
const DefaultDebounce = 30 * time.Millisecond

// Logf is used to report watcher errors. It does nothing by default.
var Logf = func(format string, v ...interface{}) {}

// Button records debounced presses.
//
// It is safe for concurrent use. The zero value is ready to use with
// DefaultDebounce.
type Button struct {
	Debounce time.Duration

	pressed atomic.Bool
	last    atomic.Int64
	presses atomic.Int64
}

// Press records a press at now and returns true if it was not a bounce.
func (b *Button) Press(now time.Time) bool {
	d := b.Debounce
	if d == 0 {
		d = DefaultDebounce
	}
	n := now.UnixNano()
	if l := b.last.Load(); l != 0 && time.Duration(n-l) <= d {
		return false
	}
	b.last.Store(n)
	b.presses.Add(1)
	b.pressed.Store(true)
	return true
}

// Advance returns true once per press, coalescing presses that happened
// since the previous call.
func (b *Button) Advance() bool {
	return b.pressed.Swap(false)
}

// Presses returns the number of accepted presses.
func (b *Button) Presses() int {
	return int(b.presses.Load())
}

// pollInterval bounds how long a watcher takes to notice cancellation.
const pollInterval = 100 * time.Millisecond

// WatchGPIO feeds b with the falling edges of an active low button on p. It
// returns when ctx is done.
func WatchGPIO(ctx context.Context, p gpio.PinIn, b *Button) error {
	if err := p.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return err
	}
	for ctx.Err() == nil {
		if p.WaitForEdge(pollInterval) && p.Read() == gpio.Low {
			b.Press(time.Now())
		}
	}
	return nil
}
