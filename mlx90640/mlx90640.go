// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mlx90640 reads temperatures from a Melexis MLX90640 32x24 far
// infrared array over I²C.
//
// The sensor measures half of the pixels at a time (a subpage) so a full
// grid needs two consecutive reads.
//
// References:
// MLX90640 datasheet:
//
//	https://www.melexis.com/en/documents/documentation/datasheets/datasheet-mlx90640
//	p. 21 Control register 1.
//	p. 23 Status register.
//	p. 36-51 Calibration parameters restoration and temperature calculation.
package mlx90640

import (
	"errors"
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/thermcam/go-thermcam/thermal"
)

// DefaultAddr is the factory I²C address.
const DefaultAddr = 0x33

// Registers.
const (
	regRAM     = 0x0400
	regEEPROM  = 0x2400
	regStatus  = 0x8000
	regControl = 0x800D
)

// Status register bits.
const (
	statusSubpage   = 0x0001
	statusDataReady = 0x0008
	// Written to clear the data ready flag and keep the overwrite enabled.
	statusClear = 0x0030
)

// Control register fields.
const (
	controlRateMask  = 0x0380
	controlResMask   = 0x0C00
	controlChessMode = 0x1000
)

// taShift is the offset between the die temperature and the reflected
// temperature for a sensor used in open air.
const taShift = 8

// ErrTimeout is returned when the sensor doesn't signal new data in time.
var ErrTimeout = errors.New("mlx90640: timed out waiting for data")

// maxSubpages bounds the reads done by Acquire.
const maxSubpages = 4

// Logf is used for diagnostic messages. It does nothing by default.
var Logf = func(format string, v ...interface{}) {}

// Opts is the sensor configuration.
type Opts struct {
	// Addr defaults to DefaultAddr.
	Addr uint16
	// Rate is the subpage refresh rate, from 0.5Hz to 64Hz in powers of two.
	// Defaults to 16Hz.
	Rate physic.Frequency
	// Resolution is the ADC resolution in bits, from 16 to 19. Defaults to
	// 18.
	Resolution int
	// Interleaved selects the interleaved pattern instead of the chess one.
	Interleaved bool
	// Emissivity defaults to 0.95.
	Emissivity float64
}

// DefaultOpts returns the recommended configuration.
func DefaultOpts() Opts {
	return Opts{Addr: DefaultAddr, Rate: 16 * physic.Hertz, Resolution: 18, Emissivity: 0.95}
}

// rateCode returns the control register value for f.
func rateCode(f physic.Frequency) (uint16, error) {
	for code := uint16(0); code < 8; code++ {
		if f == 500*physic.MilliHertz<<code {
			return code, nil
		}
	}
	return 0, fmt.Errorf("mlx90640: unsupported refresh rate %s", f)
}

// Dev is a MLX90640.
type Dev struct {
	d          i2c.Dev
	opts       Opts
	control    uint16
	calib      *params
	frame      [frameWords]uint16
	to         [pixels]float32
	buf        [2 * eepromWords]byte
	lastVdd    float64
	lastTa     float64
	pollPeriod time.Duration
	maxPolls   int
	id         [3]uint16
}

var sleep = time.Sleep

// New reads the calibration data and configures the sensor.
func New(b i2c.Bus, opts *Opts) (*Dev, error) {
	o := DefaultOpts()
	if opts != nil {
		if opts.Addr != 0 {
			o.Addr = opts.Addr
		}
		if opts.Rate != 0 {
			o.Rate = opts.Rate
		}
		if opts.Resolution != 0 {
			o.Resolution = opts.Resolution
		}
		if opts.Emissivity != 0 {
			o.Emissivity = opts.Emissivity
		}
		o.Interleaved = opts.Interleaved
	}
	rate, err := rateCode(o.Rate)
	if err != nil {
		return nil, err
	}
	if o.Resolution < 16 || o.Resolution > 19 {
		return nil, fmt.Errorf("mlx90640: unsupported resolution %d", o.Resolution)
	}
	if o.Emissivity <= 0 || o.Emissivity > 1 {
		return nil, fmt.Errorf("mlx90640: invalid emissivity %g", o.Emissivity)
	}
	d := &Dev{d: i2c.Dev{Bus: b, Addr: o.Addr}, opts: o}
	d.control = rate<<7 | uint16(o.Resolution-16)<<10
	if !o.Interleaved {
		d.control |= controlChessMode
	}
	// Poll 8 times per subpage and give up after 4 subpages.
	d.pollPeriod = o.Rate.Period() / 8
	d.maxPolls = 32

	var ee [eepromWords]uint16
	if err := d.readWords(regEEPROM, ee[:]); err != nil {
		return nil, fmt.Errorf("mlx90640: reading eeprom: %w", err)
	}
	if d.calib, err = extract(ee[:]); err != nil {
		return nil, err
	}
	copy(d.id[:], ee[7:10])
	bad := 0
	for _, x := range d.calib.bad {
		if x {
			bad++
		}
	}
	if bad != 0 {
		Logf("mlx90640: %d broken or outlier pixels", bad)
	}
	if err := d.configure(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("MLX90640{%s}", &d.d)
}

// Halt implements conn.Resource. The sensor keeps measuring.
func (d *Dev) Halt() error {
	return nil
}

// Close implements camera.Source. The bus is owned by the caller.
func (d *Dev) Close() error {
	return nil
}

// ID returns the 48 bits device identifier.
func (d *Dev) ID() [3]uint16 {
	return d.id
}

// Control reads the control register.
func (d *Dev) Control() (uint16, error) {
	return d.readReg(regControl)
}

// Reset rewrites the sensor configuration. It is used to recover after a
// series of failed reads.
func (d *Dev) Reset() error {
	return d.configure()
}

// Acquire reads both subpages and writes the object temperatures in °C to
// dst. Broken pixels are NaN.
//
// It returns ErrTimeout if both subpages weren't seen within maxSubpages
// reads.
func (d *Dev) Acquire(dst *thermal.Grid) error {
	seen := 0
	for i := 0; seen != 3; i++ {
		if i == maxSubpages {
			return fmt.Errorf("%w: subpage %d never seen", ErrTimeout, ^seen&1)
		}
		sub, err := d.readSubpage()
		if err != nil {
			return err
		}
		d.lastVdd = d.calib.vdd(d.frame[:])
		d.lastTa = d.calib.ta(d.frame[:], d.lastVdd)
		d.calib.calculate(d.frame[:], d.opts.Emissivity, d.lastTa-taShift, &d.to)
		seen |= 1 << sub
	}
	copy(dst[:], d.to[:])
	return nil
}

// Ambient reads one subpage and returns the supply voltage and the die
// temperature.
func (d *Dev) Ambient() (vdd, ta float64, err error) {
	if _, err = d.readSubpage(); err != nil {
		return math.NaN(), math.NaN(), err
	}
	d.lastVdd = d.calib.vdd(d.frame[:])
	d.lastTa = d.calib.ta(d.frame[:], d.lastVdd)
	return d.lastVdd, d.lastTa, nil
}

// Private details.

func (d *Dev) configure() error {
	c, err := d.readReg(regControl)
	if err != nil {
		return fmt.Errorf("mlx90640: reading control: %w", err)
	}
	c = c&^(controlRateMask|controlResMask|controlChessMode) | d.control
	if err := d.writeReg(regControl, c); err != nil {
		return fmt.Errorf("mlx90640: writing control: %w", err)
	}
	return nil
}

// readSubpage waits for new data and reads it in d.frame.
func (d *Dev) readSubpage() (int, error) {
	var status uint16
	for i := 0; ; i++ {
		var err error
		if status, err = d.readReg(regStatus); err != nil {
			return 0, err
		}
		if status&statusDataReady != 0 {
			break
		}
		if i == d.maxPolls {
			return 0, ErrTimeout
		}
		sleep(d.pollPeriod)
	}
	if err := d.writeReg(regStatus, statusClear); err != nil {
		return 0, err
	}
	if err := d.readWords(regRAM, d.frame[:ramWords]); err != nil {
		return 0, err
	}
	c, err := d.readReg(regControl)
	if err != nil {
		return 0, err
	}
	d.frame[auxControl] = c
	d.frame[auxSubpage] = status & statusSubpage
	return int(status & statusSubpage), nil
}

func (d *Dev) readWords(addr uint16, out []uint16) error {
	b := d.buf[:2*len(out)]
	if err := d.d.Tx([]byte{byte(addr >> 8), byte(addr)}, b); err != nil {
		return err
	}
	for i := range out {
		out[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return nil
}

func (d *Dev) readReg(addr uint16) (uint16, error) {
	var v [1]uint16
	err := d.readWords(addr, v[:])
	return v[0], err
}

func (d *Dev) writeReg(addr, v uint16) error {
	return d.d.Tx([]byte{byte(addr >> 8), byte(addr), byte(v >> 8), byte(v)}, nil)
}

var _ conn.Resource = &Dev{}
