// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package thermal

import "github.com/thermcam/go-thermcam/rgb565"

// PinnedAllocator is the heap on this OS.
type PinnedAllocator struct {
	Fallbacks int

	heap HeapAllocator
}

func (p *PinnedAllocator) Colors(n int) ([]rgb565.Color, error) {
	p.Fallbacks++
	return p.heap.Colors(n)
}

func (p *PinnedAllocator) Floats(n int) ([]float32, error) {
	p.Fallbacks++
	return p.heap.Floats(n)
}

func (p *PinnedAllocator) Close() error {
	return p.heap.Close()
}
