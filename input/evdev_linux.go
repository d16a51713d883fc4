// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package input

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/holoplot/go-evdev"
)

// FindEvdev returns the path of the input device named name. A name starting
// with /dev/ is returned as is.
func FindEvdev(name string) (string, error) {
	if strings.HasPrefix(name, "/dev/") {
		return name, nil
	}
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		if p.Name == name {
			return p.Path, nil
		}
	}
	return "", fmt.Errorf("input: no device named %q", name)
}

// WatchEvdev feeds b with the key presses of code on the input device at
// path. The device is grabbed so the key press does not leak to the console.
// It returns nil when ctx is done and an error when the device can't be read
// anymore, for example when it was unplugged.
func WatchEvdev(ctx context.Context, path string, code uint16, b *Button) error {
	d, err := evdev.Open(path)
	if err != nil {
		return err
	}
	if err := d.Grab(); err != nil {
		Logf("input: failed to grab %s: %v", path, err)
	}
	go func() {
		<-ctx.Done()
		_ = d.Ungrab()
		_ = d.Close()
	}()
	if err := readKeys(ctx, d.ReadOne, code, b); err != nil {
		return fmt.Errorf("input: %s: %w", path, err)
	}
	return nil
}

// readKeys presses b for each press of code returned by read until read
// fails.
func readKeys(ctx context.Context, read func() (*evdev.InputEvent, error), code uint16, b *Button) error {
	for {
		ev, err := read()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		// Value 1 is a press, 0 a release and 2 an autorepeat.
		if ev.Type == evdev.EV_KEY && uint16(ev.Code) == code && ev.Value == 1 {
			b.Press(time.Now())
		}
	}
}
