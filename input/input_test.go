// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package input

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestButton(t *testing.T) {
	var b Button
	assert.False(t, b.Advance())
	now := time.Unix(1000, 0)
	assert.True(t, b.Press(now))
	assert.False(t, b.Press(now.Add(10*time.Millisecond)), "bounce")
	assert.False(t, b.Press(now.Add(30*time.Millisecond)), "bounce")
	assert.True(t, b.Advance())
	assert.False(t, b.Advance(), "consumed")
	assert.True(t, b.Press(now.Add(31*time.Millisecond)))
	assert.True(t, b.Press(now.Add(100*time.Millisecond)))
	assert.True(t, b.Advance(), "coalesced")
	assert.False(t, b.Advance())
	assert.Equal(t, 3, b.Presses())
}

func TestButton_debounce(t *testing.T) {
	b := Button{Debounce: time.Second}
	now := time.Unix(1000, 0)
	assert.True(t, b.Press(now))
	assert.False(t, b.Press(now.Add(500*time.Millisecond)))
	assert.True(t, b.Press(now.Add(1001*time.Millisecond)))
}

func TestButton_concurrent(t *testing.T) {
	var b Button
	start := time.Unix(1000, 0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Press(start.Add(time.Duration(i) * time.Second))
		}(i)
	}
	wg.Wait()
	assert.True(t, b.Advance())
	assert.GreaterOrEqual(t, b.Presses(), 1)
}

func TestWatchGPIO(t *testing.T) {
	p := &gpiotest.Pin{N: "BTN", EdgesChan: make(chan gpio.Level)}
	var b Button
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- WatchGPIO(ctx, p, &b) }()

	// Unbuffered: each send completes once the watcher is waiting.
	p.EdgesChan <- gpio.High
	p.EdgesChan <- gpio.Low
	require.Eventually(t, func() bool { return b.Presses() == 1 }, time.Second, time.Millisecond)
	assert.True(t, b.Advance())
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, gpio.PullUp, p.Pull())
}

func TestWatchGPIO_noEdges(t *testing.T) {
	p := &gpiotest.Pin{N: "BTN"}
	require.Error(t, WatchGPIO(context.Background(), p, &Button{}))
}
