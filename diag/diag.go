// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package diag reports the camera health: structured logs, a websocket
// status feed and render time statistics.
package diag

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thermcam/go-thermcam/thermal"
)

// Status is a periodic snapshot of the camera.
type Status struct {
	Time     time.Time
	Mode     thermal.Mode
	FPS      float32
	Range    thermal.Range
	Display  thermal.Range
	Rendered int
	Rejected int
	Repaired int
	Failed   int
	Resets   int
	Render   Summary
}

func (s *Status) String() string {
	return fmt.Sprintf("%s fps=%.1f range=%.1f..%.1f rendered=%d rejected=%d repaired=%d failed=%d resets=%d render=%s",
		s.Mode, s.FPS, s.Display.Low, s.Display.High, s.Rendered, s.Rejected, s.Repaired, s.Failed, s.Resets, &s.Render)
}

// Sink receives status snapshots. Delivery failures are not reported.
type Sink interface {
	Status(s *Status)
}

// Multi sends to every sink in order.
type Multi []Sink

func (m Multi) Status(s *Status) {
	for _, sink := range m {
		sink.Status(s)
	}
}

// Logger is a Sink writing to a logrus logger.
type Logger struct {
	L logrus.FieldLogger
}

func (l *Logger) Status(s *Status) {
	l.L.WithFields(logrus.Fields{
		"mode":     s.Mode.String(),
		"fps":      fmt.Sprintf("%.1f", s.FPS),
		"low":      s.Display.Low,
		"high":     s.Display.High,
		"rendered": s.Rendered,
		"rejected": s.Rejected,
		"repaired": s.Repaired,
		"failed":   s.Failed,
		"resets":   s.Resets,
		"render":   s.Render.Mean.String(),
		"jitter":   s.Render.StdDev.String(),
	}).Info("status")
}

// NewLogger returns a logger writing to w.
//
// Text output has full timestamps; JSON output is meant for log collectors.
func NewLogger(w io.Writer, level string, json bool) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	if json {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	return logger, nil
}

// Logf adapts a logger to the Logf hooks of the device drivers. Messages
// are logged at debug level.
func Logf(l logrus.FieldLogger) func(format string, v ...interface{}) {
	return func(format string, v ...interface{}) {
		l.Debugf(format, v...)
	}
}
