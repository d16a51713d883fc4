// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"fmt"

	"github.com/thermcam/go-thermcam/rgb565"
)

// Allocator provides the process-lifetime buffers of a Pipeline.
type Allocator interface {
	// Colors returns a zeroed buffer of n colors.
	Colors(n int) ([]rgb565.Color, error)
	// Floats returns a zeroed buffer of n float32.
	Floats(n int) ([]float32, error)
	// Close releases every buffer returned so far.
	Close() error
}

// HeapAllocator allocates from the Go heap.
type HeapAllocator struct {
	// Limit is the maximum number of bytes to hand out; 0 means no limit.
	Limit int

	used int
}

func (h *HeapAllocator) Colors(n int) ([]rgb565.Color, error) {
	if err := h.reserve(2 * n); err != nil {
		return nil, err
	}
	return make([]rgb565.Color, n), nil
}

func (h *HeapAllocator) Floats(n int) ([]float32, error) {
	if err := h.reserve(4 * n); err != nil {
		return nil, err
	}
	return make([]float32, n), nil
}

func (h *HeapAllocator) Close() error {
	h.used = 0
	return nil
}

func (h *HeapAllocator) reserve(b int) error {
	if h.Limit != 0 && h.used+b > h.Limit {
		return fmt.Errorf("thermal: can't allocate %d bytes, %d/%d in use", b, h.used, h.Limit)
	}
	h.used += b
	return nil
}
