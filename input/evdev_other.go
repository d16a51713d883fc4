// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package input

import (
	"context"
	"errors"
)

// FindEvdev is only supported on linux.
func FindEvdev(name string) (string, error) {
	return "", errors.New("input: evdev is only supported on linux")
}

// WatchEvdev is only supported on linux.
func WatchEvdev(ctx context.Context, path string, code uint16, b *Button) error {
	return errors.New("input: evdev is only supported on linux")
}
