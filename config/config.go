// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the camera settings from a YAML file.
//
// A missing file means defaults. Fields absent from the file keep their
// default value.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/thermcam/go-thermcam/gymcu"
	"github.com/thermcam/go-thermcam/input"
	"github.com/thermcam/go-thermcam/mlx90640"
	"github.com/thermcam/go-thermcam/rgb565"
	"github.com/thermcam/go-thermcam/thermal"
)

// Config is the whole file.
type Config struct {
	Thermal Thermal `yaml:"thermal"`
	Timing  Timing  `yaml:"timing"`
	Sensor  Sensor  `yaml:"sensor"`
	Display Display `yaml:"display"`
	Input   Input   `yaml:"input"`
	Log     Log     `yaml:"log"`
	Diag    Diag    `yaml:"diag"`
}

// Thermal holds the image processing tunables. They are reloaded while
// running.
type Thermal struct {
	BandMin       float32 `yaml:"band_min"`
	BandMax       float32 `yaml:"band_max"`
	RejectRatio   float32 `yaml:"reject_ratio"`
	SafeValue     float32 `yaml:"safe_value"`
	MinRange      float32 `yaml:"min_range"`
	MaxSpan       float32 `yaml:"max_span"`
	AutoScale     bool    `yaml:"auto_scale"`
	ClampMin      float32 `yaml:"clamp_min"`
	ClampMax      float32 `yaml:"clamp_max"`
	DisplaySmooth float32 `yaml:"display_smooth"`
	Edges         bool    `yaml:"edges"`
	EdgeThreshold float32 `yaml:"edge_threshold"`
	Highlight     uint16  `yaml:"highlight"`
	// Pinned locks the frame buffers in RAM.
	Pinned bool `yaml:"pinned"`
}

// Timing holds the loop periods. They are reloaded while running.
type Timing struct {
	RefreshHz       int           `yaml:"refresh_hz"`
	StartupDelay    time.Duration `yaml:"startup_delay"`
	PauseRefresh    time.Duration `yaml:"pause_refresh"`
	ChargingRefresh time.Duration `yaml:"charging_refresh"`
	StatsInterval   time.Duration `yaml:"stats_interval"`
	RetryWait       time.Duration `yaml:"retry_wait"`
	MaxFailures     int           `yaml:"max_failures"`
}

// Sensor kinds.
const (
	SensorMLX90640 = "mlx90640"
	SensorGYMCU    = "gymcu"
	SensorFake     = "fake"
)

// Sensor selects and configures the frame source.
type Sensor struct {
	Kind string `yaml:"kind"`

	// MLX90640 on I²C.
	I2C         string  `yaml:"i2c"`
	Addr        uint16  `yaml:"addr"`
	RateHz      float64 `yaml:"rate_hz"`
	Resolution  int     `yaml:"resolution"`
	Interleaved bool    `yaml:"interleaved"`
	Emissivity  float64 `yaml:"emissivity"`

	// GY-MCU90640 on a serial port.
	Serial     string            `yaml:"serial"`
	Port       gymcu.PortOptions `yaml:"port"`
	SerialRate int               `yaml:"serial_rate"`

	// Simulated.
	Seed int64 `yaml:"seed"`
}

// Display kinds.
const (
	DisplayILI9488 = "ili9488"
	DisplayTerm    = "term"
)

// Display selects and configures the screen.
type Display struct {
	Kind    string `yaml:"kind"`
	SPI     string `yaml:"spi"`
	SpeedHz int64  `yaml:"speed_hz"`
	DC      string `yaml:"dc"`
	RST     string `yaml:"rst"`
	LED     string `yaml:"led"`
	Flip    bool   `yaml:"flip"`
	// Columns is the width of the terminal preview.
	Columns int `yaml:"columns"`
}

// Input kinds.
const (
	InputGPIO     = "gpio"
	InputEvdev    = "evdev"
	InputKeyboard = "keyboard"
	InputNone     = "none"
)

// Input selects the mode button.
type Input struct {
	Kind     string        `yaml:"kind"`
	Pin      string        `yaml:"pin"`
	Device   string        `yaml:"device"`
	Key      uint16        `yaml:"key"`
	Debounce time.Duration `yaml:"debounce"`
}

// Log configures the logger.
type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Diag configures the status server. An empty Addr disables it.
type Diag struct {
	Addr string `yaml:"addr"`
}

// Default returns the settings used when no file exists.
func Default() *Config {
	p := thermal.DefaultConfig()
	m := mlx90640.DefaultOpts()
	return &Config{
		Thermal: Thermal{
			BandMin:       p.BandMin,
			BandMax:       p.BandMax,
			RejectRatio:   p.RejectRatio,
			SafeValue:     p.SafeValue,
			MinRange:      p.MinRange,
			MaxSpan:       p.MaxSpan,
			AutoScale:     p.AutoScale,
			ClampMin:      p.ClampMin,
			ClampMax:      p.ClampMax,
			DisplaySmooth: p.DisplaySmooth,
			Edges:         p.Edges,
			EdgeThreshold: p.EdgeThreshold,
			Highlight:     uint16(p.Highlight),
			Pinned:        true,
		},
		Timing: Timing{
			RefreshHz:       16,
			StartupDelay:    2 * time.Second,
			PauseRefresh:    100 * time.Millisecond,
			ChargingRefresh: 500 * time.Millisecond,
			StatsInterval:   1200 * time.Millisecond,
			RetryWait:       time.Second,
			MaxFailures:     5,
		},
		Sensor: Sensor{
			Kind:       SensorMLX90640,
			Addr:       m.Addr,
			RateHz:     float64(m.Rate) / float64(physic.Hertz),
			Resolution: m.Resolution,
			Emissivity: m.Emissivity,
			Serial:     "/dev/ttyS0",
			Port:       gymcu.PortOptions{BaudRate: gymcu.DefaultBaudRate, DataBits: 8, StopBits: 1, Parity: "N"},
			SerialRate: 4,
			Seed:       1,
		},
		Display: Display{
			Kind:    DisplayILI9488,
			SpeedHz: 40000000,
			DC:      "GPIO24",
			RST:     "GPIO25",
			LED:     "GPIO18",
			Columns: 96,
		},
		Input: Input{
			Kind:     InputGPIO,
			Pin:      "GPIO17",
			Device:   "gpio-keys",
			Key:      116,
			Debounce: input.DefaultDebounce,
		},
		Log: Log{Level: "info"},
	}
}

// DefaultPath returns ~/.config/thermcam/thermcam.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "thermcam", "thermcam.yaml"), nil
}

// Load reads path over the defaults and validates the result.
//
// A missing file returns the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, err
	}
	if err := c.decode(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c *Config) decode(data []byte) error {
	d := yaml.NewDecoder(bytes.NewReader(data))
	d.KnownFields(true)
	if err := d.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Write saves the configuration, creating the directory if needed.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate returns an error describing the first invalid value.
func (c *Config) Validate() error {
	t := &c.Thermal
	if t.BandMin >= t.BandMax {
		return fmt.Errorf("thermal: band_min %g must be below band_max %g", t.BandMin, t.BandMax)
	}
	if t.RejectRatio < 0 || t.RejectRatio > 1 {
		return fmt.Errorf("thermal: reject_ratio %g must be within [0, 1]", t.RejectRatio)
	}
	if t.MinRange <= 0 {
		return fmt.Errorf("thermal: min_range %g must be positive", t.MinRange)
	}
	if t.MaxSpan < 0 || (t.MaxSpan != 0 && t.MaxSpan < t.MinRange) {
		return fmt.Errorf("thermal: max_span %g must be 0 or at least min_range", t.MaxSpan)
	}
	if t.ClampMin >= t.ClampMax {
		return fmt.Errorf("thermal: clamp_min %g must be below clamp_max %g", t.ClampMin, t.ClampMax)
	}
	if t.DisplaySmooth < 0 || t.DisplaySmooth >= 1 {
		return fmt.Errorf("thermal: display_smooth %g must be within [0, 1)", t.DisplaySmooth)
	}
	if t.EdgeThreshold < 0 || t.EdgeThreshold > 1 {
		return fmt.Errorf("thermal: edge_threshold %g must be within [0, 1]", t.EdgeThreshold)
	}
	m := &c.Timing
	if m.RefreshHz <= 0 || m.RefreshHz > 64 {
		return fmt.Errorf("timing: refresh_hz %d must be within [1, 64]", m.RefreshHz)
	}
	if m.StartupDelay < 0 {
		return fmt.Errorf("timing: startup_delay %s must not be negative", m.StartupDelay)
	}
	if m.PauseRefresh <= 0 || m.ChargingRefresh <= 0 || m.StatsInterval <= 0 || m.RetryWait <= 0 {
		return errors.New("timing: periods must be positive")
	}
	if m.MaxFailures <= 0 {
		return fmt.Errorf("timing: max_failures %d must be positive", m.MaxFailures)
	}
	switch c.Sensor.Kind {
	case SensorMLX90640, SensorFake:
	case SensorGYMCU:
		if _, err := c.Sensor.Port.Normalize(); err != nil {
			return fmt.Errorf("sensor: %w", err)
		}
	default:
		return fmt.Errorf("sensor: unknown kind %q", c.Sensor.Kind)
	}
	switch c.Display.Kind {
	case DisplayILI9488, DisplayTerm:
	default:
		return fmt.Errorf("display: unknown kind %q", c.Display.Kind)
	}
	if c.Display.Columns <= 0 {
		return fmt.Errorf("display: columns %d must be positive", c.Display.Columns)
	}
	switch c.Input.Kind {
	case InputGPIO, InputEvdev, InputKeyboard, InputNone:
	default:
		return fmt.Errorf("input: unknown kind %q", c.Input.Kind)
	}
	if c.Input.Debounce < 0 {
		return fmt.Errorf("input: debounce %s must not be negative", c.Input.Debounce)
	}
	return nil
}

// Pipeline returns the tunables of thermal.Pipeline.
func (c *Config) Pipeline() thermal.Config {
	t := &c.Thermal
	return thermal.Config{
		BandMin:       t.BandMin,
		BandMax:       t.BandMax,
		RejectRatio:   t.RejectRatio,
		SafeValue:     t.SafeValue,
		MinRange:      t.MinRange,
		MaxSpan:       t.MaxSpan,
		AutoScale:     t.AutoScale,
		ClampMin:      t.ClampMin,
		ClampMax:      t.ClampMax,
		DisplaySmooth: t.DisplaySmooth,
		Edges:         t.Edges,
		EdgeThreshold: t.EdgeThreshold,
		Highlight:     rgb565.Color(t.Highlight),
	}
}

// Allocator returns the allocator selected by Thermal.Pinned.
func (c *Config) Allocator() thermal.Allocator {
	if c.Thermal.Pinned {
		return &thermal.PinnedAllocator{}
	}
	return &thermal.HeapAllocator{}
}

// MLX90640 returns the driver options.
func (s *Sensor) MLX90640() *mlx90640.Opts {
	return &mlx90640.Opts{
		Addr:        s.Addr,
		Rate:        physic.Frequency(s.RateHz * float64(physic.Hertz)),
		Resolution:  s.Resolution,
		Interleaved: s.Interleaved,
		Emissivity:  s.Emissivity,
	}
}

// GYMCU returns the driver options.
func (s *Sensor) GYMCU() *gymcu.Opts {
	return &gymcu.Opts{Rate: s.SerialRate}
}
