// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package camera runs the acquisition and display loop.
//
// Everything happens in the goroutine calling Run. The only inputs from other
// goroutines are the button flag and configuration updates, both polled
// between cycles.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thermcam/go-thermcam/canvas"
	"github.com/thermcam/go-thermcam/config"
	"github.com/thermcam/go-thermcam/diag"
	"github.com/thermcam/go-thermcam/thermal"
	"github.com/thermcam/go-thermcam/ui"
)

// ErrFatal is returned when the camera could not start.
var ErrFatal = errors.New("camera: fatal")

// Source produces raw grids.
type Source interface {
	// Acquire fills dst. Invalid cells may be NaN.
	Acquire(dst *thermal.Grid) error
	// Reset reinitializes the sensor after repeated failures.
	Reset() error
	Close() error
}

// Input reports the mode button.
type Input interface {
	// Advance returns true once per press.
	Advance() bool
}

// Opts configures a Camera.
type Opts struct {
	Timing  config.Timing
	Version string
	// Sink receives periodic status. May be nil.
	Sink diag.Sink
	// Log may be nil.
	Log logrus.FieldLogger
	// Updates delivers reloaded configurations. May be nil.
	Updates <-chan *config.Config
}

// Camera ties a Source, a Pipeline and a Canvas together.
type Camera struct {
	src      Source
	cv       canvas.Canvas
	in       Input
	p        *thermal.Pipeline
	opts     Opts
	log      logrus.FieldLogger
	legend   ui.Legend
	charging *ui.Charging

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	failures     int // Consecutive.
	failed       int
	resets       int
	lastAcquire  time.Time
	lastLegend   time.Time
	lastCharging time.Time
	lastStats    time.Time
	render       diag.Timings
}

// New returns a Camera. in may be nil.
func New(src Source, cv canvas.Canvas, in Input, p *thermal.Pipeline, opts *Opts) (*Camera, error) {
	if src == nil || cv == nil || p == nil {
		return nil, errors.New("camera: source, canvas and pipeline are required")
	}
	if opts.Timing.RefreshHz <= 0 || opts.Timing.MaxFailures <= 0 {
		return nil, fmt.Errorf("camera: invalid timing %+v", opts.Timing)
	}
	ch, err := ui.NewCharging()
	if err != nil {
		return nil, err
	}
	c := &Camera{
		src:      src,
		cv:       cv,
		in:       in,
		p:        p,
		opts:     *opts,
		log:      opts.Log,
		charging: ch,
		now:      time.Now,
		sleep:    sleep,
	}
	if c.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.log = l
	}
	return c, nil
}

// Run shows the startup screen then loops until ctx is done.
//
// It only returns an error if the canvas fails.
func (c *Camera) Run(ctx context.Context) error {
	if err := ui.DrawStartup(c.cv, c.opts.Version); err != nil {
		return err
	}
	if c.sleep(ctx, c.opts.Timing.StartupDelay) != nil {
		return nil
	}
	if err := c.redraw(); err != nil {
		return err
	}
	for ctx.Err() == nil {
		if err := c.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Step runs one iteration of the loop.
func (c *Camera) Step(ctx context.Context) error {
	c.poll()
	now := c.now()
	if c.in != nil && c.in.Advance() {
		m := c.p.Advance()
		c.log.WithField("mode", m.String()).Info("mode")
		if err := c.enter(m); err != nil {
			return err
		}
	}
	var err error
	switch c.p.Mode() {
	case thermal.Paused:
		err = c.paused(ctx, now)
	case thermal.Charging:
		err = c.chargingStep(ctx, now)
	default:
		err = c.cycle(ctx, now)
	}
	c.report(c.now())
	return err
}

// Failed returns the number of failed acquisitions.
func (c *Camera) Failed() int {
	return c.failed
}

// Resets returns the number of successful source resets.
func (c *Camera) Resets() int {
	return c.resets
}

// Fatal shows err on the screen until ctx is done. The page title tells a
// failed frame buffer allocation apart from a sensor failure.
//
// It always returns an error wrapping ErrFatal.
func Fatal(ctx context.Context, cv canvas.Canvas, err error) error {
	title := ui.TitleSensorError
	if errors.Is(err, thermal.ErrNoFrameBuffer) {
		title = ui.TitleMemoryError
	}
	if err2 := ui.DrawError(cv, title, err.Error()); err2 != nil {
		return fmt.Errorf("%w: %v (%v)", ErrFatal, err, err2)
	}
	<-ctx.Done()
	return fmt.Errorf("%w: %v", ErrFatal, err)
}

// cycle acquires, renders and shows one frame.
func (c *Camera) cycle(ctx context.Context, now time.Time) error {
	period := time.Second / time.Duration(c.opts.Timing.RefreshHz)
	if wait := c.lastAcquire.Add(period).Sub(now); wait > 0 {
		if c.sleep(ctx, wait) != nil {
			return nil
		}
		now = c.now()
	}
	c.lastAcquire = now
	if err := c.src.Acquire(c.p.Raw()); err != nil {
		c.failed++
		c.failures++
		c.log.WithFields(logrus.Fields{"err": err, "consecutive": c.failures}).Debug("acquire")
		if c.failures >= c.opts.Timing.MaxFailures {
			c.reset(ctx)
		}
		return nil
	}
	c.failures = 0
	start := c.now()
	if err := c.p.Process(now); err != nil {
		if errors.Is(err, thermal.ErrRejected) {
			c.log.WithField("err", err).Debug("process")
			return nil
		}
		return err
	}
	cold, hot := c.p.Extrema()
	ui.DrawMarkers(c.p.Frame(), cold, hot)
	if err := c.cv.Blit(ui.ImageAt, c.p.Frame()); err != nil {
		return err
	}
	if err := c.drawLegend(); err != nil {
		return err
	}
	if err := c.cv.Flush(); err != nil {
		return err
	}
	c.render.Add(c.now().Sub(start))
	return nil
}

// paused refreshes the legend on a slow timer. Nothing is acquired.
func (c *Camera) paused(ctx context.Context, now time.Time) error {
	if now.Sub(c.lastLegend) >= c.opts.Timing.PauseRefresh {
		c.lastLegend = now
		if err := c.drawLegend(); err != nil {
			return err
		}
		if err := c.cv.Flush(); err != nil {
			return err
		}
	}
	_ = c.sleep(ctx, c.opts.Timing.PauseRefresh)
	return nil
}

func (c *Camera) chargingStep(ctx context.Context, now time.Time) error {
	if c.lastCharging.IsZero() || now.Sub(c.lastCharging) >= c.opts.Timing.ChargingRefresh {
		c.lastCharging = now
		if err := c.charging.Draw(c.cv); err != nil {
			return err
		}
	}
	// Stay responsive to the button between animation steps.
	_ = c.sleep(ctx, min(c.opts.Timing.PauseRefresh, c.opts.Timing.ChargingRefresh))
	return nil
}

// enter updates the screen on a mode change.
func (c *Camera) enter(m thermal.Mode) error {
	c.lastCharging = time.Time{}
	c.lastLegend = c.now()
	if m == thermal.Charging {
		return nil
	}
	return c.redraw()
}

// redraw paints the whole screen from the last frame.
func (c *Camera) redraw() error {
	r := image.Rectangle{Min: ui.ImageAt, Max: ui.ImageAt.Add(image.Pt(thermal.OutWidth, thermal.OutHeight))}
	if c.p.HasFrame() {
		if err := c.cv.Blit(ui.ImageAt, c.p.Frame()); err != nil {
			return err
		}
	} else if err := c.cv.FillRect(r, ui.ColorBackground); err != nil {
		return err
	}
	if err := c.drawLegend(); err != nil {
		return err
	}
	return c.cv.Flush()
}

func (c *Camera) drawLegend() error {
	st := c.p.Stats()
	return c.legend.Draw(c.cv, &ui.LegendState{
		Mode:    st.Mode,
		Display: c.p.DisplayRange(),
		FPS:     st.FPS,
		LUT:     c.p.LUT(),
	})
}

// reset reinitializes the source, retrying every RetryWait until it works
// or ctx is done.
func (c *Camera) reset(ctx context.Context) {
	for {
		err := c.src.Reset()
		if err == nil {
			c.resets++
			c.failures = 0
			c.log.WithField("resets", c.resets).Warn("source reset")
			return
		}
		c.log.WithField("err", err).Error("source reset failed")
		if c.sleep(ctx, c.opts.Timing.RetryWait) != nil {
			return
		}
	}
}

// poll applies a pending configuration update.
func (c *Camera) poll() {
	if c.opts.Updates == nil {
		return
	}
	select {
	case cfg := <-c.opts.Updates:
		if cfg == nil {
			return
		}
		c.p.Apply(cfg.Pipeline())
		if cfg.Timing.RefreshHz > 0 && cfg.Timing.MaxFailures > 0 {
			c.opts.Timing = cfg.Timing
		}
		c.log.Info("configuration reloaded")
	default:
	}
}

func (c *Camera) report(now time.Time) {
	if c.lastStats.IsZero() {
		c.lastStats = now
	}
	if c.opts.Sink == nil || now.Sub(c.lastStats) < c.opts.Timing.StatsInterval {
		return
	}
	c.lastStats = now
	st := c.p.Stats()
	c.opts.Sink.Status(&diag.Status{
		Time:     now,
		Mode:     st.Mode,
		FPS:      st.FPS,
		Range:    c.p.Range(),
		Display:  c.p.DisplayRange(),
		Rendered: st.Rendered,
		Rejected: st.Rejected,
		Repaired: st.Repaired,
		Failed:   c.failed,
		Resets:   c.resets,
		Render:   c.render.Summary(),
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
