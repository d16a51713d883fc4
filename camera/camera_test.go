// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package camera

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermcam/go-thermcam/canvas"
	"github.com/thermcam/go-thermcam/config"
	"github.com/thermcam/go-thermcam/diag"
	"github.com/thermcam/go-thermcam/palette"
	"github.com/thermcam/go-thermcam/thermal"
	"github.com/thermcam/go-thermcam/thermtest"
	"github.com/thermcam/go-thermcam/ui"
)

type clock struct {
	t       time.Time
	slept   []time.Duration
	onSleep func(d time.Duration)
}

func (c *clock) now() time.Time {
	return c.t
}

func (c *clock) sleep(ctx context.Context, d time.Duration) error {
	c.t = c.t.Add(d)
	c.slept = append(c.slept, d)
	if c.onSleep != nil {
		c.onSleep(d)
	}
	return ctx.Err()
}

type presses []bool

func (p *presses) Advance() bool {
	if len(*p) == 0 {
		return false
	}
	v := (*p)[0]
	*p = (*p)[1:]
	return v
}

type lastSink struct {
	n    int
	last diag.Status
}

func (l *lastSink) Status(s *diag.Status) {
	l.n++
	l.last = *s
}

type fixture struct {
	cam   *Camera
	cv    *canvas.Image
	clock *clock
	p     *thermal.Pipeline
}

func newFixture(t *testing.T, src Source, in Input, opts *Opts) *fixture {
	p, err := thermal.New(thermal.DefaultConfig(), &thermal.HeapAllocator{})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	cv := canvas.NewImage(image.Rect(0, 0, ui.ScreenWidth, ui.ScreenHeight))
	if opts == nil {
		opts = &Opts{}
	}
	if opts.Timing.RefreshHz == 0 {
		opts.Timing = config.Default().Timing
	}
	cam, err := New(src, cv, in, p, opts)
	require.NoError(t, err)
	c := &clock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	cam.now = c.now
	cam.sleep = c.sleep
	return &fixture{cam: cam, cv: cv, clock: c, p: p}
}

func hotspot() thermtest.Step {
	s := thermtest.Uniform(20)
	s.Grid.Set(10, 5, 45)
	return s
}

func TestNew_invalid(t *testing.T) {
	p, err := thermal.New(thermal.DefaultConfig(), &thermal.HeapAllocator{})
	require.NoError(t, err)
	defer p.Close()
	cv := canvas.NewImage(image.Rect(0, 0, ui.ScreenWidth, ui.ScreenHeight))
	_, err = New(nil, cv, nil, p, &Opts{Timing: config.Default().Timing})
	require.Error(t, err)
	_, err = New(&thermtest.Script{}, cv, nil, p, &Opts{})
	require.Error(t, err)
}

func TestStep_hotspot(t *testing.T) {
	src := &thermtest.Script{Steps: []thermtest.Step{hotspot()}}
	f := newFixture(t, src, nil, nil)
	require.NoError(t, f.cam.Step(context.Background()))
	assert.Equal(t, 1, f.cv.Flushes)
	assert.Equal(t, 1, src.Acquired)

	_, hot := f.p.Extrema()
	assert.Equal(t, 131, hot.X)
	assert.Equal(t, 69, hot.Y)
	assert.Equal(t, ui.ColorHot, f.cv.At(ui.ImageAt.X+hot.X, ui.ImageAt.Y+hot.Y), "crosshair")
	assert.Equal(t, palette.Iron().Cold(), f.cv.At(ui.ImageAt.X+300, ui.ImageAt.Y+250))
	_, g, _ := f.cv.At(6, 13).RGB8()
	assert.Greater(t, g, uint8(200), "LIVE badge")
	assert.Empty(t, f.clock.slept)
}

func TestStep_pacing(t *testing.T) {
	src := &thermtest.Script{Steps: []thermtest.Step{hotspot(), hotspot()}}
	f := newFixture(t, src, nil, nil)
	ctx := context.Background()
	require.NoError(t, f.cam.Step(ctx))
	require.NoError(t, f.cam.Step(ctx))
	assert.Equal(t, []time.Duration{time.Second / 16}, f.clock.slept)
	assert.Equal(t, 2, f.cv.Flushes)
}

func TestStep_reset(t *testing.T) {
	var steps []thermtest.Step
	for i := 0; i < 5; i++ {
		steps = append(steps, thermtest.Fail(errors.New("i2c")))
	}
	steps = append(steps, hotspot())
	src := &thermtest.Script{Steps: steps}
	f := newFixture(t, src, nil, nil)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, f.cam.Step(ctx))
	}
	assert.Zero(t, src.Resets)
	require.NoError(t, f.cam.Step(ctx))
	assert.Equal(t, 1, src.Resets)
	assert.Equal(t, 1, f.cam.Resets())
	assert.Zero(t, f.cv.Flushes, "nothing drawn on failure")

	require.NoError(t, f.cam.Step(ctx))
	assert.Equal(t, 5, f.cam.Failed())
	assert.Equal(t, 1, f.cv.Flushes)
}

func TestStep_resetRetry(t *testing.T) {
	var steps []thermtest.Step
	for i := 0; i < 5; i++ {
		steps = append(steps, thermtest.Fail(errors.New("i2c")))
	}
	src := &thermtest.Script{Steps: steps, ResetErr: errors.New("no ack")}
	f := newFixture(t, src, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	retries := 0
	f.clock.onSleep = func(d time.Duration) {
		if d == time.Second {
			if retries++; retries == 3 {
				cancel()
			}
		}
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, f.cam.Step(ctx))
	}
	assert.Equal(t, 3, src.Resets)
	assert.Zero(t, f.cam.Resets())
}

func TestStep_rejectedKeepsScreen(t *testing.T) {
	var bad thermtest.Step
	for i := range bad.Grid {
		bad.Grid[i] = float32(math.NaN())
	}
	src := &thermtest.Script{Steps: []thermtest.Step{hotspot(), bad}}
	f := newFixture(t, src, nil, nil)
	ctx := context.Background()
	require.NoError(t, f.cam.Step(ctx))
	before := append([]byte(nil), f.cv.RGBA.Pix...)
	require.NoError(t, f.cam.Step(ctx))
	assert.Equal(t, 1, f.cv.Flushes)
	assert.Equal(t, before, f.cv.RGBA.Pix)
	assert.Zero(t, f.cam.Failed(), "rejection is not an acquisition failure")
	assert.Equal(t, 1, f.p.Stats().Rejected)
}

func TestStep_modes(t *testing.T) {
	src := &thermtest.Script{Steps: []thermtest.Step{hotspot()}}
	in := &presses{true, false, true, true, false, false, false, false, false, true}
	f := newFixture(t, src, in, nil)
	ctx := context.Background()

	// Paused: screen redrawn at once, legend refreshed on a timer.
	require.NoError(t, f.cam.Step(ctx))
	assert.Equal(t, thermal.Paused, f.p.Mode())
	assert.Equal(t, 1, f.cv.Flushes)
	r, g, _ := f.cv.At(6, 13).RGB8()
	assert.Greater(t, r, uint8(200), "PAUSED badge")
	assert.Greater(t, g, uint8(64), "PAUSED badge")
	require.NoError(t, f.cam.Step(ctx))
	assert.Equal(t, 2, f.cv.Flushes)
	assert.Zero(t, src.Acquired, "no acquisition while paused")

	// Alternate palette acquires.
	require.NoError(t, f.cam.Step(ctx))
	assert.Equal(t, thermal.Alternate, f.p.Mode())
	assert.Equal(t, 1, src.Acquired)
	assert.Equal(t, 4, f.cv.Flushes)
	assert.Equal(t, palette.Spectral().Cold(), f.cv.At(ui.ImageAt.X+300, ui.ImageAt.Y+250))

	// Charging: the animation advances every 500ms.
	require.NoError(t, f.cam.Step(ctx))
	assert.Equal(t, thermal.Charging, f.p.Mode())
	assert.Equal(t, 5, f.cv.Flushes)
	assert.Equal(t, ui.ColorBackground, f.cv.At(6, 13), "no legend")
	for i := 0; i < 4; i++ {
		require.NoError(t, f.cam.Step(ctx))
	}
	assert.Equal(t, 5, f.cv.Flushes)
	require.NoError(t, f.cam.Step(ctx))
	assert.Equal(t, 6, f.cv.Flushes)

	// Back to live: the screen is repainted even though the source is
	// exhausted.
	require.NoError(t, f.cam.Step(ctx))
	assert.Equal(t, thermal.Live, f.p.Mode())
	assert.Equal(t, 7, f.cv.Flushes)
	_, g, _ = f.cv.At(6, 13).RGB8()
	assert.Greater(t, g, uint8(200), "LIVE badge")
	assert.Equal(t, 1, f.cam.Failed())
}

func TestStep_stats(t *testing.T) {
	sink := &lastSink{}
	f := newFixture(t, thermtest.New(1), nil, &Opts{Sink: sink})
	ctx := context.Background()
	for i := 0; i < 40; i++ {
		require.NoError(t, f.cam.Step(ctx))
	}
	require.GreaterOrEqual(t, sink.n, 1)
	assert.Equal(t, thermal.Live, sink.last.Mode)
	assert.Greater(t, sink.last.Rendered, 15)
	assert.Greater(t, sink.last.FPS, float32(10))
	assert.Greater(t, sink.last.Display.Span(), float32(0))
	assert.NotZero(t, sink.last.Render.N)
}

func TestStep_updates(t *testing.T) {
	ch := make(chan *config.Config, 1)
	src := &thermtest.Script{Steps: []thermtest.Step{hotspot(), hotspot()}}
	f := newFixture(t, src, nil, &Opts{Updates: ch})
	cfg := config.Default()
	cfg.Thermal.AutoScale = false
	cfg.Timing.RefreshHz = 8
	ch <- cfg
	ctx := context.Background()
	require.NoError(t, f.cam.Step(ctx))
	assert.False(t, f.p.Config().AutoScale)
	assert.Equal(t, thermal.Range{Low: -10, High: 80}, f.p.Range())
	require.NoError(t, f.cam.Step(ctx))
	assert.Equal(t, []time.Duration{time.Second / 8}, f.clock.slept)
}

func TestRun(t *testing.T) {
	src := thermtest.New(2)
	f := newFixture(t, src, nil, &Opts{Version: "v1.0"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	start := f.clock.t
	f.clock.onSleep = func(time.Duration) {
		if f.clock.t.Sub(start) > 3*time.Second {
			cancel()
		}
	}
	require.NoError(t, f.cam.Run(ctx))
	assert.Equal(t, 2*time.Second, f.clock.slept[0], "startup delay")
	assert.Greater(t, src.Calls(), 10)
	assert.Greater(t, f.cv.Flushes, 10)
}

func TestRun_canceled(t *testing.T) {
	f := newFixture(t, &thermtest.Script{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.cam.Run(ctx))
	assert.Equal(t, 1, f.cv.Flushes, "startup screen only")
	r, _, _ := f.cv.At(0, 0).RGB8()
	assert.Zero(t, r)
}

func TestFatal(t *testing.T) {
	cv := canvas.NewImage(image.Rect(0, 0, ui.ScreenWidth, ui.ScreenHeight))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Fatal(ctx, cv, errors.New("no sensor"))
	require.True(t, errors.Is(err, ErrFatal))
	assert.Contains(t, err.Error(), "no sensor")
	assert.Equal(t, 1, cv.Flushes)
	want := canvas.NewImage(cv.Bounds())
	require.NoError(t, ui.DrawError(want, ui.TitleSensorError, "no sensor"))
	assert.Equal(t, want.RGBA.Pix, cv.RGBA.Pix)
}

func TestFatal_frameBuffer(t *testing.T) {
	cv := canvas.NewImage(image.Rect(0, 0, ui.ScreenWidth, ui.ScreenHeight))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, perr := thermal.New(thermal.DefaultConfig(), &thermal.HeapAllocator{Limit: 100})
	err := Fatal(ctx, cv, perr)
	require.True(t, errors.Is(err, ErrFatal))
	want := canvas.NewImage(cv.Bounds())
	require.NoError(t, ui.DrawError(want, ui.TitleMemoryError, perr.Error()))
	assert.Equal(t, want.RGBA.Pix, cv.RGBA.Pix)
}
