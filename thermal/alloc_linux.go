// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/thermcam/go-thermcam/rgb565"
)

// PinnedAllocator maps anonymous memory that is locked in RAM and
// prefaulted, so the render loop never takes a page fault.
//
// When the mapping can't be locked, usually because of RLIMIT_MEMLOCK, it
// falls back to the heap.
type PinnedAllocator struct {
	// Fallbacks is the number of buffers that came from the heap.
	Fallbacks int

	heap    HeapAllocator
	regions [][]byte
}

func (p *PinnedAllocator) Colors(n int) ([]rgb565.Color, error) {
	b, err := p.mmap(2 * n)
	if err != nil {
		p.Fallbacks++
		return p.heap.Colors(n)
	}
	return unsafe.Slice((*rgb565.Color)(unsafe.Pointer(&b[0])), n), nil
}

func (p *PinnedAllocator) Floats(n int) ([]float32, error) {
	b, err := p.mmap(4 * n)
	if err != nil {
		p.Fallbacks++
		return p.heap.Floats(n)
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n), nil
}

// Close unmaps every region. Buffers must not be used afterward.
func (p *PinnedAllocator) Close() error {
	var err error
	for _, r := range p.regions {
		if err2 := unix.Munmap(r); err == nil {
			err = err2
		}
	}
	p.regions = nil
	return err
}

func (p *PinnedAllocator) mmap(size int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE|unix.MAP_LOCKED|unix.MAP_POPULATE)
	if err != nil {
		return nil, err
	}
	p.regions = append(p.regions, b)
	return b, nil
}
