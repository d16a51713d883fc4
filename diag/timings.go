// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package diag

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

// timingsLen is the number of samples kept, about 4s at 16Hz.
const timingsLen = 64

// Summary describes a series of durations.
type Summary struct {
	N      int
	Mean   time.Duration
	StdDev time.Duration
	Max    time.Duration
}

func (s *Summary) String() string {
	if s.N == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%s±%s", s.Mean.Round(10*time.Microsecond), s.StdDev.Round(10*time.Microsecond))
}

// Timings keeps the most recent durations in a fixed ring.
type Timings struct {
	samples [timingsLen]float64
	n       int
	next    int
}

// Add records d, evicting the oldest sample when full.
func (t *Timings) Add(d time.Duration) {
	t.samples[t.next] = float64(d)
	t.next = (t.next + 1) % timingsLen
	if t.n < timingsLen {
		t.n++
	}
}

// Summary returns the statistics of the recorded samples.
func (t *Timings) Summary() Summary {
	if t.n == 0 {
		return Summary{}
	}
	s := t.samples[:t.n]
	mean, std := stat.MeanStdDev(s, nil)
	if t.n == 1 {
		std = 0
	}
	m := s[0]
	for _, v := range s[1:] {
		m = max(m, v)
	}
	return Summary{N: t.n, Mean: time.Duration(mean), StdDev: time.Duration(std), Max: time.Duration(m)}
}

// Reset forgets every sample.
func (t *Timings) Reset() {
	t.n = 0
	t.next = 0
}
