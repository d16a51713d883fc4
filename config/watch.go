// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrBinaryChanged is returned by Run once the file passed to WatchBinary was
// modified or replaced.
var ErrBinaryChanged = errors.New("config: executable changed")

// Logf is called when a reload fails.
var Logf = func(format string, v ...interface{}) {}

// Watcher reloads a file when it changes.
//
// The directory is watched instead of the file so that editors replacing the
// file are detected.
type Watcher struct {
	path string
	w    *fsnotify.Watcher
	last Config

	bin    string
	binMod time.Time
}

// NewWatcher starts watching path. current is the configuration in use;
// identical reloads are not reported.
func NewWatcher(path string, current *Config) (*Watcher, error) {
	path = filepath.Clean(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}
	return &Watcher{path: path, w: w, last: *current}, nil
}

// WatchBinary makes Run return ErrBinaryChanged when the file at path, usually
// the running executable, gets a new modification time or disappears.
func (w *Watcher) WatchBinary(path string) error {
	path = filepath.Clean(path)
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := w.w.Add(path); err != nil {
		return err
	}
	w.bin, w.binMod = path, fi.ModTime()
	return nil
}

// Run sends each new valid configuration to ch until ctx is done.
//
// ch should have a capacity of 1; an update that wasn't consumed yet is
// replaced.
func (w *Watcher) Run(ctx context.Context, ch chan *Config) error {
	defer w.w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			return err
		case e, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(e.Name)
			if w.bin != "" && name == w.bin {
				if fi, err := os.Stat(w.bin); err != nil || !fi.ModTime().Equal(w.binMod) {
					return ErrBinaryChanged
				}
				continue
			}
			if name != w.path || !e.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			c, err := Load(w.path)
			if err != nil {
				Logf("config: ignoring %s", err)
				continue
			}
			if *c == w.last {
				continue
			}
			w.last = *c
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- c:
			default:
			}
		}
	}
}
