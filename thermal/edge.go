// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"errors"
	"math"
)

// DefaultEdgeThreshold is the normalized gradient above which a pixel is
// highlighted.
const DefaultEdgeThreshold = 0.2

// GradientMap holds one gradient magnitude per output pixel.
type GradientMap struct {
	Mag    []float32
	Width  int
	Height int
}

// WrapGradient returns a OutWidth×OutHeight map using mag as backing store.
func WrapGradient(mag []float32) (*GradientMap, error) {
	if len(mag) < OutWidth*OutHeight {
		return nil, errors.New("thermal: gradient buffer too small")
	}
	return &GradientMap{Mag: mag[:OutWidth*OutHeight], Width: OutWidth, Height: OutHeight}, nil
}

// At returns the magnitude at (x, y).
func (m *GradientMap) At(x, y int) float32 {
	return m.Mag[y*m.Width+x]
}

// Row returns line y.
func (m *GradientMap) Row(y int) []float32 {
	return m.Mag[y*m.Width : (y+1)*m.Width]
}

// EdgeDetector computes a Sobel gradient on the upscaled grid.
//
// The 3×3 neighborhood of an output pixel is sampled one source cell apart
// around its source position, with the same fractional offsets as the
// Upscaler. Samples are normalized against the Range so the magnitude is
// comparable with a fixed threshold.
type EdgeDetector struct {
	u *Upscaler
}

// NewEdgeDetector returns a detector sharing the walks of u.
func NewEdgeDetector(u *Upscaler) *EdgeDetector {
	return &EdgeDetector{u: u}
}

// Compute fills m. The one pixel border is zero.
func (d *EdgeDetector) Compute(m *GradientMap, g *Grid, r Range) {
	w, h := m.Width, m.Height
	clear(m.Row(0))
	clear(m.Row(h - 1))
	var n [3][3]float32
	for y := 1; y < h-1; y++ {
		sy := d.u.ys[y]
		line := m.Row(y)
		line[0] = 0
		line[w-1] = 0
		for x := 1; x < w-1; x++ {
			sx := d.u.xs[x]
			for j := 0; j < 3; j++ {
				for i := 0; i < 3; i++ {
					n[j][i] = r.Normalize(g.bilinear(sx.base+i-1, sy.base+j-1, sx.frac, sy.frac))
				}
			}
			gx := (n[0][2] + 2*n[1][2] + n[2][2]) - (n[0][0] + 2*n[1][0] + n[2][0])
			gy := (n[2][0] + 2*n[2][1] + n[2][2]) - (n[0][0] + 2*n[0][1] + n[0][2])
			line[x] = float32(math.Sqrt(float64(gx*gx+gy*gy))) / 8
		}
	}
}
