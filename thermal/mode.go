// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import "fmt"

// Mode is the display mode selected by the button.
type Mode int

// Modes, in the order they are cycled through.
const (
	Live Mode = iota
	Paused
	Alternate
	Charging
	modeCount
)

func (m Mode) String() string {
	switch m {
	case Live:
		return "LIVE"
	case Paused:
		return "PAUSED"
	case Alternate:
		return "RGB"
	case Charging:
		return "CHARGING"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Next returns the mode following m.
func (m Mode) Next() Mode {
	return (m + 1) % modeCount
}

// Acquires returns true if frames are read from the sensor in this mode.
func (m Mode) Acquires() bool {
	return m == Live || m == Alternate
}

// Highlights returns true if edges are overlaid in this mode.
func (m Mode) Highlights() bool {
	return m == Live
}

// ModeMachine holds the current Mode. It only changes on Advance.
type ModeMachine struct {
	mode        Mode
	transitions int
}

// Mode returns the current mode.
func (s *ModeMachine) Mode() Mode {
	return s.mode
}

// Advance moves to the next mode and returns it.
func (s *ModeMachine) Advance() Mode {
	s.mode = s.mode.Next()
	s.transitions++
	return s.mode
}

// Transitions returns the number of Advance calls.
func (s *ModeMachine) Transitions() int {
	return s.transitions
}
