// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermtest

import (
	"io"

	"github.com/thermcam/go-thermcam/thermal"
)

// Step is one scripted Acquire result.
type Step struct {
	Grid thermal.Grid
	Err  error
}

// Uniform returns a step where every cell is v.
func Uniform(v float32) Step {
	var s Step
	s.Grid.Fill(v)
	return s
}

// Fail returns a step failing with err.
func Fail(err error) Step {
	return Step{Err: err}
}

// Script plays back a fixed list of steps then returns io.EOF.
type Script struct {
	Steps []Step
	// ResetErr is returned by Reset.
	ResetErr error

	Acquired int
	Resets   int
	Closed   bool
}

func (s *Script) Acquire(dst *thermal.Grid) error {
	if s.Acquired >= len(s.Steps) {
		return io.EOF
	}
	st := &s.Steps[s.Acquired]
	s.Acquired++
	if st.Err != nil {
		return st.Err
	}
	*dst = st.Grid
	return nil
}

func (s *Script) Reset() error {
	s.Resets++
	return s.ResetErr
}

func (s *Script) Close() error {
	s.Closed = true
	return nil
}
