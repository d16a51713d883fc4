// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermcam-query uses the I²C interface to query the MLX90640 internal
// state.
package main

import (
	"flag"
	"fmt"
	"os"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/thermcam/go-thermcam/mlx90640"
)

func mainImpl() error {
	i2cName := flag.String("i2c", "", "I²C bus to use")
	i2cHz := flag.Int("hz", 0, "I²C bus speed")
	addr := flag.Int("addr", mlx90640.DefaultAddr, "I²C address")
	reset := flag.Bool("reset", false, "rewrite the control register")
	flag.Parse()

	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	i2cBus, err := i2creg.Open(*i2cName)
	if err != nil {
		return err
	}
	defer i2cBus.Close()
	if *i2cHz != 0 {
		if err := i2cBus.SetSpeed(physic.Frequency(*i2cHz) * physic.Hertz); err != nil {
			return err
		}
	}
	dev, err := mlx90640.New(i2cBus, &mlx90640.Opts{Addr: uint16(*addr)})
	if err != nil {
		return err
	}
	defer dev.Close()
	id := dev.ID()
	fmt.Printf("ID:      %04X-%04X-%04X\n", id[0], id[1], id[2])
	if *reset {
		if err := dev.Reset(); err != nil {
			return err
		}
	}
	c, err := dev.Control()
	if err != nil {
		return err
	}
	fmt.Printf("Control: 0x%04X\n", c)
	vdd, ta, err := dev.Ambient()
	if err != nil {
		return err
	}
	fmt.Printf("Vdd:     %.3fV\n", vdd)
	fmt.Printf("Ta:      %.2f°C\n", ta)
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermcam-query: %s.\n", err)
		os.Exit(1)
	}
}
