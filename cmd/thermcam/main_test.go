// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermcam/go-thermcam/config"
	"github.com/thermcam/go-thermcam/input"
)

func testCommand(f *flags, args ...string) *cobra.Command {
	cmd := &cobra.Command{Use: "thermcam", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.Flags().StringVar(&f.sensor, "sensor", "", "")
	cmd.Flags().StringVar(&f.display, "display", "", "")
	cmd.Flags().StringVar(&f.input, "input", "", "")
	cmd.Flags().StringVar(&f.diagAddr, "diag", "", "")
	cmd.SetArgs(args)
	return cmd
}

func TestLoadConfig(t *testing.T) {
	f := flags{config: filepath.Join(t.TempDir(), "thermcam.yaml"), verbose: true}
	cmd := testCommand(&f, "--sensor", "fake", "--display", "term", "--input", "none", "--diag", ":8010")
	require.NoError(t, cmd.Execute())
	cfg, path, err := loadConfig(cmd, &f)
	require.NoError(t, err)
	assert.Equal(t, f.config, path)
	assert.Equal(t, config.SensorFake, cfg.Sensor.Kind)
	assert.Equal(t, config.DisplayTerm, cfg.Display.Kind)
	assert.Equal(t, config.InputNone, cfg.Input.Kind)
	assert.Equal(t, 16, cfg.Timing.RefreshHz, "not overridden")
	assert.Equal(t, ":8010", cfg.Diag.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.NoError(t, initHost(cfg), "no hardware needed")
}

func TestLoadConfig_invalid(t *testing.T) {
	f := flags{config: filepath.Join(t.TempDir(), "thermcam.yaml")}
	cmd := testCommand(&f, "--sensor", "lepton")
	require.NoError(t, cmd.Execute())
	_, _, err := loadConfig(cmd, &f)
	require.Error(t, err)
}

func TestOpenSource_fake(t *testing.T) {
	cfg := config.Default()
	cfg.Sensor.Kind = config.SensorFake
	src, err := openSource(cfg)
	require.NoError(t, err)
	assert.Equal(t, "fake", src.String())
	p, err := openPipeline(cfg, nilLogger())
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, src.Acquire(p.Raw()))
	require.NoError(t, src.Close())
}

func TestWatchKeyboard(t *testing.T) {
	b := &input.Button{}
	require.NoError(t, watchKeyboard(context.Background(), strings.NewReader("\n"), b))
	assert.Equal(t, 1, b.Presses())
	assert.True(t, b.Advance())
}

func nilLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
