// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermcam/go-thermcam/thermal"
	"github.com/thermcam/go-thermcam/thermtest"
)

func newPipeline(t *testing.T) *thermal.Pipeline {
	p, err := thermal.New(thermal.DefaultConfig(), &thermal.HeapAllocator{})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestProbe(t *testing.T) {
	s := thermtest.Uniform(20)
	s.Grid.Set(10, 5, 45)
	src := &thermtest.Script{Steps: []thermtest.Step{s, s}}
	var buf bytes.Buffer
	require.NoError(t, probe(&buf, src, newPipeline(t), 2))
	out := buf.String()
	assert.Contains(t, out, "45.00 @10, 5")
	assert.Contains(t, out, "row 5")
}

func TestProbe_error(t *testing.T) {
	src := &thermtest.Script{Steps: []thermtest.Step{thermtest.Fail(errors.New("bus"))}}
	var buf bytes.Buffer
	require.Error(t, probe(&buf, src, newPipeline(t), 1))
}

func TestProfile(t *testing.T) {
	var g thermal.Grid
	g.Fill(1)
	g.Set(3, 2, 7)
	p := profile(&g, 2)
	assert.Len(t, p, thermal.Cols)
	assert.Equal(t, 7.0, p[3])
	assert.Equal(t, 1.0, p[4])
}
