// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/thermcam/go-thermcam/camera"
	"github.com/thermcam/go-thermcam/canvas"
	"github.com/thermcam/go-thermcam/canvas/ili9488"
	"github.com/thermcam/go-thermcam/config"
	"github.com/thermcam/go-thermcam/gymcu"
	"github.com/thermcam/go-thermcam/input"
	"github.com/thermcam/go-thermcam/mlx90640"
	"github.com/thermcam/go-thermcam/thermal"
	"github.com/thermcam/go-thermcam/thermtest"
	"github.com/thermcam/go-thermcam/ui"
)

// initHost loads the periph drivers when real hardware is used.
func initHost(cfg *config.Config) error {
	if cfg.Sensor.Kind != config.SensorMLX90640 && cfg.Display.Kind != config.DisplayILI9488 && cfg.Input.Kind != config.InputGPIO {
		return nil
	}
	_, err := host.Init()
	return err
}

type screen interface {
	canvas.Canvas
	Close() error
}

type termScreen struct {
	*canvas.Term
}

func (termScreen) Close() error {
	return nil
}

type panel struct {
	*ili9488.Dev
	port spi.PortCloser
}

func (p *panel) Close() error {
	err := p.Halt()
	if err2 := p.port.Close(); err == nil {
		err = err2
	}
	return err
}

func openCanvas(cfg *config.Config) (screen, error) {
	d := &cfg.Display
	if d.Kind == config.DisplayTerm {
		return termScreen{canvas.NewTerm(os.Stdout, image.Rect(0, 0, ui.ScreenWidth, ui.ScreenHeight), d.Columns)}, nil
	}
	port, err := spireg.Open(d.SPI)
	if err != nil {
		return nil, err
	}
	conn, err := port.Connect(physic.Frequency(d.SpeedHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, err
	}
	pins := make([]gpio.PinOut, 3)
	for i, name := range []string{d.DC, d.RST, d.LED} {
		if name == "" {
			continue
		}
		p := gpioreg.ByName(name)
		if p == nil {
			port.Close()
			return nil, fmt.Errorf("display: unknown pin %q", name)
		}
		pins[i] = p
	}
	dev, err := ili9488.New(conn, pins[0], pins[1], pins[2], &ili9488.Opts{Flip: d.Flip})
	if err != nil {
		port.Close()
		return nil, err
	}
	return &panel{Dev: dev, port: port}, nil
}

type source interface {
	camera.Source
	String() string
}

type mlxSource struct {
	*mlx90640.Dev
	bus i2c.BusCloser
}

func (m *mlxSource) Close() error {
	err := m.Dev.Close()
	if err2 := m.bus.Close(); err == nil {
		err = err2
	}
	return err
}

type fakeSource struct {
	*thermtest.Fake
}

func (fakeSource) String() string {
	return "fake"
}

func openSource(cfg *config.Config) (source, error) {
	s := &cfg.Sensor
	switch s.Kind {
	case config.SensorGYMCU:
		dev, err := gymcu.Open(s.Serial, s.Port, s.GYMCU())
		if err != nil {
			return nil, err
		}
		return dev, nil
	case config.SensorFake:
		return fakeSource{thermtest.New(s.Seed)}, nil
	default:
		bus, err := i2creg.Open(s.I2C)
		if err != nil {
			return nil, err
		}
		dev, err := mlx90640.New(bus, s.MLX90640())
		if err != nil {
			bus.Close()
			return nil, err
		}
		return &mlxSource{Dev: dev, bus: bus}, nil
	}
}

func openPipeline(cfg *config.Config, log logrus.FieldLogger) (*thermal.Pipeline, error) {
	a := cfg.Allocator()
	p, err := thermal.New(cfg.Pipeline(), a)
	if err != nil {
		return nil, err
	}
	if pa, ok := a.(*thermal.PinnedAllocator); ok && pa.Fallbacks != 0 {
		log.WithField("buffers", pa.Fallbacks).Debug("buffers not pinned")
	}
	if cfg.Thermal.Edges && !p.HasGradient() {
		log.Warn("edge highlighting disabled")
	}
	return p, nil
}

// startInput starts the goroutine feeding b.
func startInput(ctx context.Context, cfg *config.Config, b *input.Button, log logrus.FieldLogger) {
	in := &cfg.Input
	var watch func() error
	switch in.Kind {
	case config.InputGPIO:
		p := gpioreg.ByName(in.Pin)
		if p == nil {
			log.WithField("pin", in.Pin).Error("unknown button pin")
			return
		}
		watch = func() error { return input.WatchGPIO(ctx, p, b) }
	case config.InputEvdev:
		path, err := input.FindEvdev(in.Device)
		if err != nil {
			log.WithField("err", err).Error("button")
			return
		}
		watch = func() error { return input.WatchEvdev(ctx, path, in.Key, b) }
	case config.InputKeyboard:
		log.Info("press Enter to change mode")
		watch = func() error { return watchKeyboard(ctx, os.Stdin, b) }
	default:
		return
	}
	go func() {
		if err := watch(); err != nil {
			log.WithFields(logrus.Fields{"input": in.Kind, "err": err}).Error("button stopped")
		}
	}()
}

// watchKeyboard presses b for each line read from r.
func watchKeyboard(ctx context.Context, r io.Reader, b *input.Button) error {
	s := bufio.NewScanner(r)
	for s.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		b.Press(time.Now())
	}
	return s.Err()
}
