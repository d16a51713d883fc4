// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gymcu reads temperatures from a GY-MCU90640 module, a MLX90640
// behind a microcontroller that streams calibrated frames over a UART.
//
// Each frame is:
//
//	0x5A 0x5A            header
//	0x02 0x06            payload length, little endian (1538)
//	768 × int16 LE       pixel temperatures in centi-degrees
//	int16 LE             die temperature in centi-degrees
//	uint16 LE            sum of all the previous 16 bits words
package gymcu

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"github.com/thermcam/go-thermcam/thermal"
)

const (
	header      = 0x5A5A
	payloadLen  = 0x0602
	frameSize   = 4 + payloadLen + 2
	maxGarbage  = 4 * frameSize
	readTimeout = time.Second
)

// Commands are 0xA5, the command, the value and the low byte of their sum.
const (
	cmdRate    = 0x25
	cmdOutput  = 0x35
	outputAuto = 0x02
)

var (
	// ErrChecksum is returned when a frame is corrupted.
	ErrChecksum = errors.New("gymcu: invalid checksum")
	// ErrNoFrame is returned when no header is found in the stream.
	ErrNoFrame = errors.New("gymcu: no frame header found")
	// ErrTimeout is returned when the port stays silent for the read timeout.
	ErrTimeout = errors.New("gymcu: read timeout")
)

var now = time.Now

// Logf is used for diagnostic messages. It does nothing by default.
var Logf = func(format string, v ...interface{}) {}

// SerialPorter is the minimal interface needed for a serial port.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// Opts is the module configuration.
type Opts struct {
	// Rate is the output rate code: 0 is 0.5Hz, then doubling up to 4 for 8Hz.
	Rate int
}

// Dev is a GY-MCU90640 module.
type Dev struct {
	p        SerialPorter
	tr       *timeoutReader
	r        *bufio.Reader
	opts     Opts
	buf      [frameSize]byte
	ambient  float32
	resyncs  int
	checksum int
}

// Open opens the serial port at path and configures the module.
func Open(path string, port PortOptions, opts *Opts) (*Dev, error) {
	mode, err := port.SerialMode()
	if err != nil {
		return nil, err
	}
	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return nil, err
	}
	d, err := New(p, opts)
	if err != nil {
		p.Close()
		return nil, err
	}
	return d, nil
}

// New configures the module on an opened port.
func New(p SerialPorter, opts *Opts) (*Dev, error) {
	d := &Dev{p: p, tr: &timeoutReader{r: p}}
	d.r = bufio.NewReaderSize(d.tr, frameSize)
	if opts != nil {
		d.opts = *opts
	}
	if d.opts.Rate < 0 || d.opts.Rate > 4 {
		return nil, fmt.Errorf("gymcu: invalid rate code %d", d.opts.Rate)
	}
	if err := d.configure(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) String() string {
	return "GY-MCU90640"
}

// Close closes the serial port.
func (d *Dev) Close() error {
	return d.p.Close()
}

// Reset discards buffered data and reconfigures the module.
func (d *Dev) Reset() error {
	d.r.Reset(d.tr)
	return d.configure()
}

// Ambient returns the die temperature of the last frame.
func (d *Dev) Ambient() float32 {
	return d.ambient
}

// Stats returns the number of resynchronizations and checksum failures.
func (d *Dev) Stats() (resyncs, checksum int) {
	return d.resyncs, d.checksum
}

// Acquire reads the next valid frame into dst.
//
// It returns ErrTimeout as soon as one read of the port times out, and
// ErrNoFrame when too many bytes were skipped without finding a header or
// when no complete frame arrived within two frame periods plus the read
// timeout.
func (d *Dev) Acquire(dst *thermal.Grid) error {
	d.tr.deadline = now().Add(d.window())
	defer func() { d.tr.deadline = time.Time{} }()
	if err := d.sync(); err != nil {
		return err
	}
	if _, err := io.ReadFull(d.r, d.buf[4:]); err != nil {
		return wrap(err)
	}
	return d.decode(dst)
}

// Private details.

// window is the time allowed to Acquire.
func (d *Dev) window() time.Duration {
	// Rate 0 is one frame every 2s.
	return 2*(2*time.Second>>d.opts.Rate) + readTimeout
}

// wrap adds the package prefix to errors that don't have it.
func wrap(err error) error {
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrNoFrame) {
		return err
	}
	return fmt.Errorf("gymcu: %w", err)
}

// timeoutReader converts the empty read returned by a serial port on timeout
// into ErrTimeout and fails reads past deadline.
type timeoutReader struct {
	r        io.Reader
	deadline time.Time
}

func (t *timeoutReader) Read(b []byte) (int, error) {
	if !t.deadline.IsZero() && now().After(t.deadline) {
		return 0, fmt.Errorf("%w: deadline exceeded", ErrNoFrame)
	}
	n, err := t.r.Read(b)
	if n == 0 && err == nil && len(b) != 0 {
		return 0, ErrTimeout
	}
	return n, err
}

func (d *Dev) configure() error {
	if err := d.command(cmdRate, byte(d.opts.Rate)); err != nil {
		return err
	}
	return d.command(cmdOutput, outputAuto)
}

func (d *Dev) command(cmd, v byte) error {
	_, err := d.p.Write([]byte{0xA5, cmd, v, 0xA5 + cmd + v})
	return err
}

// sync skips bytes until a header and the expected length are found and
// stores them in d.buf[:4].
func (d *Dev) sync() error {
	for skipped := 0; skipped < maxGarbage; {
		b, err := d.r.Peek(4)
		if err != nil {
			return wrap(err)
		}
		if binary.LittleEndian.Uint16(b) == header && binary.LittleEndian.Uint16(b[2:]) == payloadLen {
			copy(d.buf[:4], b)
			_, _ = d.r.Discard(4)
			if skipped != 0 {
				d.resyncs++
				Logf("gymcu: skipped %d bytes", skipped)
			}
			return nil
		}
		_, _ = d.r.Discard(1)
		skipped++
	}
	return ErrNoFrame
}

func (d *Dev) decode(dst *thermal.Grid) error {
	sum := uint16(0)
	for i := 0; i < frameSize-2; i += 2 {
		sum += binary.LittleEndian.Uint16(d.buf[i:])
	}
	if want := binary.LittleEndian.Uint16(d.buf[frameSize-2:]); sum != want {
		d.checksum++
		return fmt.Errorf("%w: 0x%04X != 0x%04X", ErrChecksum, sum, want)
	}
	for i := range dst {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(d.buf[4+2*i:]))) / 100
	}
	d.ambient = float32(int16(binary.LittleEndian.Uint16(d.buf[4+2*thermal.Cells:]))) / 100
	return nil
}
