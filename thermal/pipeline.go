// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/thermcam/go-thermcam/palette"
	"github.com/thermcam/go-thermcam/rgb565"
)

// ErrNoFrameBuffer is returned by New when the output frame can't be
// allocated.
var ErrNoFrameBuffer = errors.New("thermal: can't allocate the frame buffer")

// Config holds the tunables of a Pipeline. They can be changed at runtime
// with Pipeline.Apply.
type Config struct {
	BandMin       float32 // Plausible temperatures, °C.
	BandMax       float32
	RejectRatio   float32 // Fraction of invalid cells above which a frame is dropped.
	SafeValue     float32 // Repair value when nothing else is known.
	MinRange      float32
	MaxSpan       float32 // 0 disables.
	AutoScale     bool
	ClampMin      float32 // Range used when AutoScale is false.
	ClampMax      float32
	DisplaySmooth float32
	Edges         bool
	EdgeThreshold float32
	Highlight     rgb565.Color
}

// DefaultConfig returns the default tunables.
func DefaultConfig() Config {
	return Config{
		BandMin:       DefaultBandMin,
		BandMax:       DefaultBandMax,
		RejectRatio:   DefaultRejectRatio,
		SafeValue:     DefaultSafeValue,
		MinRange:      DefaultMinRange,
		AutoScale:     true,
		ClampMin:      DefaultClampMin,
		ClampMax:      DefaultClampMax,
		DisplaySmooth: DefaultDisplaySmooth,
		Edges:         true,
		EdgeThreshold: DefaultEdgeThreshold,
		Highlight:     rgb565.White,
	}
}

// Stats is a snapshot of the Pipeline counters.
type Stats struct {
	ConditionStats
	Rendered int
	Mode     Mode
	FPS      float32
}

// Pipeline owns every buffer used to turn a raw grid into a frame.
//
// The sequence for each cycle is: fill Raw(), call Process, then read
// Frame() and Extrema(). Nothing is allocated after New.
type Pipeline struct {
	cfg   Config
	cond  Conditioner
	est   RangeEstimator
	up    *Upscaler
	edges *EdgeDetector
	modes ModeMachine
	alloc Allocator

	raw       Grid
	grid      Grid
	frame     *rgb565.Image
	gradient  *GradientMap // nil when it couldn't be allocated.
	primary   *palette.LUT
	alternate *palette.LUT
	opts      RenderOptions
	active    Range
	cold, hot Marker
	hasFrame  bool
	rendered  int
}

// New allocates the frame buffer and, when cfg.Edges is set, the gradient
// map from alloc.
//
// Failing to allocate the frame buffer is an error. Failing to allocate the
// gradient map only disables edge highlighting; see HasGradient.
func New(cfg Config, alloc Allocator) (*Pipeline, error) {
	pix, err := alloc.Colors(OutWidth * OutHeight)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFrameBuffer, err)
	}
	frame, err := rgb565.Wrap(pix, image.Rect(0, 0, OutWidth, OutHeight))
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		cond:      MakeConditioner(),
		est:       MakeRangeEstimator(),
		up:        NewUpscaler(),
		alloc:     alloc,
		frame:     frame,
		primary:   palette.Iron(),
		alternate: palette.Spectral(),
	}
	p.edges = NewEdgeDetector(p.up)
	if cfg.Edges {
		if mag, err := alloc.Floats(OutWidth * OutHeight); err == nil {
			p.gradient, _ = WrapGradient(mag)
		}
	}
	p.Apply(cfg)
	return p, nil
}

// Apply replaces the tunables. Buffers are not reallocated, so enabling edges
// on a Pipeline created without them has no effect.
func (p *Pipeline) Apply(cfg Config) {
	p.cfg = cfg
	p.cond.BandMin = cfg.BandMin
	p.cond.BandMax = cfg.BandMax
	p.cond.RejectRatio = cfg.RejectRatio
	p.cond.SafeValue = cfg.SafeValue
	p.est.MinRange = cfg.MinRange
	p.est.MaxSpan = cfg.MaxSpan
	p.est.AutoScale = cfg.AutoScale
	p.est.ClampMin = cfg.ClampMin
	p.est.ClampMax = cfg.ClampMax
	p.est.DisplaySmooth = cfg.DisplaySmooth
	p.opts.EdgeThreshold = cfg.EdgeThreshold
	p.opts.Highlight = cfg.Highlight
}

// Config returns the current tunables.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Raw returns the grid the frame source must fill before Process.
func (p *Pipeline) Raw() *Grid {
	return &p.raw
}

// Process conditions the raw grid and renders it.
//
// On error, which wraps ErrRejected, the frame, the range and the markers
// are left as they were.
func (p *Pipeline) Process(now time.Time) error {
	if err := p.cond.Condition(&p.grid, &p.raw, now); err != nil {
		return err
	}
	p.active = p.est.Estimate(&p.grid)
	mode := p.modes.Mode()
	p.opts.LUT = p.LUT()
	p.opts.Edges = nil
	if mode.Highlights() && p.cfg.Edges && p.gradient != nil {
		p.edges.Compute(p.gradient, &p.grid, p.active)
		p.opts.Edges = p.gradient
	}
	p.up.Render(p.frame, &p.grid, p.active, &p.opts)
	p.cold, p.hot = LocateExtrema(&p.grid)
	p.hasFrame = true
	p.rendered++
	return nil
}

// Mode returns the current mode.
func (p *Pipeline) Mode() Mode {
	return p.modes.Mode()
}

// Advance moves to the next mode. Entering Live resets the smoothing state.
func (p *Pipeline) Advance() Mode {
	m := p.modes.Advance()
	if m == Live {
		p.Reset()
	}
	return m
}

// Reset clears the temporal history and the smoothed display range.
func (p *Pipeline) Reset() {
	p.cond.Reset()
	p.est.Reset()
}

// LUT returns the palette of the current mode.
func (p *Pipeline) LUT() *palette.LUT {
	if p.modes.Mode() == Alternate {
		return p.alternate
	}
	return p.primary
}

// Frame returns the rendered frame. It is only meaningful once HasFrame is
// true.
func (p *Pipeline) Frame() *rgb565.Image {
	return p.frame
}

// HasFrame returns true once a frame was rendered.
func (p *Pipeline) HasFrame() bool {
	return p.hasFrame
}

// Conditioned returns the last conditioned grid.
func (p *Pipeline) Conditioned() *Grid {
	return &p.grid
}

// Gradient returns the gradient map, or nil.
func (p *Pipeline) Gradient() *GradientMap {
	return p.gradient
}

// HasGradient returns true if edge highlighting is possible.
func (p *Pipeline) HasGradient() bool {
	return p.gradient != nil
}

// Range returns the range used for the last frame.
func (p *Pipeline) Range() Range {
	return p.active
}

// DisplayRange returns the smoothed min/max for the panels.
func (p *Pipeline) DisplayRange() Range {
	return p.est.Display()
}

// Extrema returns the markers of the last frame.
func (p *Pipeline) Extrema() (cold, hot Marker) {
	return p.cold, p.hot
}

// Upscaler returns the upscaler; it is read-only.
func (p *Pipeline) Upscaler() *Upscaler {
	return p.up
}

// Stats returns the counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		ConditionStats: p.cond.Stats(),
		Rendered:       p.rendered,
		Mode:           p.modes.Mode(),
		FPS:            p.cond.FPS(),
	}
}

// Close releases the buffers.
func (p *Pipeline) Close() error {
	p.frame = nil
	p.gradient = nil
	return p.alloc.Close()
}
