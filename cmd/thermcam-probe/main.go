// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermcam-probe grabs a few conditioned frames and prints their extrema
// and the temperature profile through the hottest row.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/thermcam/go-thermcam/config"
	"github.com/thermcam/go-thermcam/gymcu"
	"github.com/thermcam/go-thermcam/mlx90640"
	"github.com/thermcam/go-thermcam/thermal"
	"github.com/thermcam/go-thermcam/thermtest"
)

var (
	title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	hot   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cold  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	dim   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

type source interface {
	Acquire(dst *thermal.Grid) error
	Close() error
}

func open(cfg *config.Config) (source, error) {
	s := &cfg.Sensor
	switch s.Kind {
	case config.SensorFake:
		return thermtest.New(s.Seed), nil
	case config.SensorGYMCU:
		dev, err := gymcu.Open(s.Serial, s.Port, s.GYMCU())
		if err != nil {
			return nil, err
		}
		return dev, nil
	}
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(s.I2C)
	if err != nil {
		return nil, err
	}
	dev, err := mlx90640.New(bus, s.MLX90640())
	if err != nil {
		bus.Close()
		return nil, err
	}
	return dev, nil
}

func mainImpl() error {
	cfgPath := flag.String("config", "", "config file (default ~/.config/thermcam/thermcam.yaml)")
	sensor := flag.String("sensor", "", "override the frame source: mlx90640, gymcu or fake")
	n := flag.Int("n", 8, "number of frames to grab")
	flag.Parse()

	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}
	if *n <= 0 {
		return errors.New("-n must be positive")
	}
	path := *cfgPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if *sensor != "" {
		cfg.Sensor.Kind = *sensor
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	src, err := open(cfg)
	if err != nil {
		return err
	}
	defer src.Close()
	p, err := thermal.New(cfg.Pipeline(), &thermal.HeapAllocator{})
	if err != nil {
		return err
	}
	defer p.Close()
	return probe(os.Stdout, src, p, *n)
}

// probe processes n frames and prints a report.
func probe(w io.Writer, src source, p *thermal.Pipeline, n int) error {
	fmt.Fprintln(w, title.Render("frame  cold             hot"))
	for i := 0; i < n; i++ {
		if err := src.Acquire(p.Raw()); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if err := p.Process(time.Now()); err != nil {
			fmt.Fprintln(w, dim.Render(fmt.Sprintf("%5d  %s", i, err)))
			continue
		}
		c, h := p.Extrema()
		fmt.Fprintf(w, "%5d  %s  %s\n", i, cold.Render(describe(c)), hot.Render(describe(h)))
	}
	if !p.HasFrame() {
		return errors.New("no frame accepted")
	}
	_, h := p.Extrema()
	row := h.Index / thermal.Cols
	fmt.Fprintln(w)
	fmt.Fprintln(w, asciigraph.Plot(profile(p.Conditioned(), row),
		asciigraph.Height(10),
		asciigraph.Width(64),
		asciigraph.Precision(1),
		asciigraph.Caption(fmt.Sprintf("row %d, °C", row))))
	return nil
}

func describe(m thermal.Marker) string {
	return fmt.Sprintf("%6.2f @%2d,%2d", m.Value, m.Index%thermal.Cols, m.Index/thermal.Cols)
}

// profile returns the values of a grid row.
func profile(g *thermal.Grid, row int) []float64 {
	out := make([]float64, thermal.Cols)
	for col := range out {
		out[col] = float64(g.At(col, row))
	}
	return out
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermcam-probe: %s.\n", err)
		os.Exit(1)
	}
}
