// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mlx90640

import (
	"errors"
	"math"
)

// Number of 16 bits words in the EEPROM and in a frame read.
const (
	eepromWords = 832
	ramWords    = 832
	pixels      = 768
)

// Indexes in a frame read. Words 832 and 833 are appended by the driver.
const (
	auxPTATArt = 768
	auxCP0     = 776
	auxGain    = 778
	auxPTAT    = 800
	auxCP1     = 808
	auxVdd     = 810
	auxControl = 832
	auxSubpage = 833
	frameWords = 834
)

// params are the calibration parameters extracted from the EEPROM.
//
// See MLX90640 datasheet §11.1 "Restoring the calibration data".
type params struct {
	kVdd       float64
	vdd25      float64
	kvPTAT     float64
	ktPTAT     float64
	vPTAT25    float64
	alphaPTAT  float64
	gainEE     float64
	tgc        float64
	resolution int
	ksTa       float64
	ksTo       [5]float64
	ct         [5]float64
	cpAlpha    [2]float64
	cpOffset   [2]float64
	cpKta      float64
	cpKv       float64
	calibMode  int
	ilChessC   [3]float64
	alpha      [pixels]float64
	offset     [pixels]float64
	kta        [pixels]float64
	kv         [pixels]float64
	// bad is set for broken and outlier pixels.
	bad [pixels]bool
}

// signed returns v as a two's complement number of n bits.
func signed(v uint16, bits uint) float64 {
	x := int(v)
	if x >= 1<<(bits-1) {
		x -= 1 << bits
	}
	return float64(x)
}

func nibbles(w uint16) [4]uint16 {
	return [4]uint16{w & 0xF, (w >> 4) & 0xF, (w >> 8) & 0xF, w >> 12}
}

// extract decodes the calibration data.
func extract(ee []uint16) (*params, error) {
	if len(ee) != eepromWords {
		return nil, errors.New("mlx90640: invalid eeprom size")
	}
	p := &params{}

	p.kVdd = signed(ee[51]>>8, 8) * 32
	p.vdd25 = (float64(ee[51]&0xFF)-256)*32 - 8192

	p.kvPTAT = signed(ee[50]>>10, 6) / 4096
	p.ktPTAT = signed(ee[50]&0x3FF, 10) / 8
	p.vPTAT25 = float64(ee[49])
	p.alphaPTAT = float64(ee[16]>>12)/4 + 8

	p.gainEE = signed(ee[48], 16)
	p.tgc = signed(ee[60]&0xFF, 8) / 32
	p.resolution = int(ee[56]>>12) & 0x3
	p.ksTa = signed(ee[60]>>8, 8) / 8192

	// Temperature ranges for the sensitivity correction.
	step := float64((ee[63]>>12)&0x3) * 10
	p.ct[0] = -40
	p.ct[1] = 0
	p.ct[2] = float64((ee[63]>>4)&0xF) * step
	p.ct[3] = p.ct[2] + float64((ee[63]>>8)&0xF)*step
	p.ct[4] = 400
	ksToScale := float64(int(1) << ((ee[63] & 0xF) + 8))
	p.ksTo[0] = signed(ee[61]&0xFF, 8) / ksToScale
	p.ksTo[1] = signed(ee[61]>>8, 8) / ksToScale
	p.ksTo[2] = signed(ee[62]&0xFF, 8) / ksToScale
	p.ksTo[3] = signed(ee[62]>>8, 8) / ksToScale
	p.ksTo[4] = -0.0002

	// Compensation pixels.
	cpAlphaScale := math.Exp2(float64(ee[32]>>12) + 27)
	p.cpOffset[0] = signed(ee[58]&0x3FF, 10)
	p.cpOffset[1] = signed(ee[58]>>10, 6) + p.cpOffset[0]
	p.cpAlpha[0] = signed(ee[57]&0x3FF, 10) / cpAlphaScale
	p.cpAlpha[1] = (1 + signed(ee[57]>>10, 6)/128) * p.cpAlpha[0]
	ktaScale1 := math.Exp2(float64((ee[56]>>4)&0xF) + 8)
	ktaScale2 := float64(int(1) << (ee[56] & 0xF))
	kvScale := math.Exp2(float64((ee[56] >> 8) & 0xF))
	p.cpKta = signed(ee[59]&0xFF, 8) / ktaScale1
	p.cpKv = signed(ee[59]>>8, 8) / kvScale

	p.calibMode = int((ee[10]&0x0800)>>4) ^ 0x80
	p.ilChessC[0] = signed(ee[53]&0x3F, 6) / 16
	p.ilChessC[1] = signed((ee[53]>>6)&0x1F, 5) / 2
	p.ilChessC[2] = signed(ee[53]>>11, 5) / 8

	// Per row and column coefficients, packed by nibbles.
	var accRow, occRow [24]float64
	var accCol, occCol [32]float64
	for i := 0; i < 6; i++ {
		a, o := nibbles(ee[34+i]), nibbles(ee[18+i])
		for k := 0; k < 4; k++ {
			accRow[4*i+k] = signed(a[k], 4)
			occRow[4*i+k] = signed(o[k], 4)
		}
	}
	for i := 0; i < 8; i++ {
		a, o := nibbles(ee[40+i]), nibbles(ee[24+i])
		for k := 0; k < 4; k++ {
			accCol[4*i+k] = signed(a[k], 4)
			occCol[4*i+k] = signed(o[k], 4)
		}
	}
	accRemScale := float64(int(1) << (ee[32] & 0xF))
	accColScale := math.Exp2(float64((ee[32] >> 4) & 0xF))
	accRowScale := math.Exp2(float64((ee[32] >> 8) & 0xF))
	alphaScale := math.Exp2(float64(ee[32]>>12) + 30)
	alphaRef := float64(ee[33])
	occRemScale := float64(int(1) << (ee[16] & 0xF))
	occColScale := math.Exp2(float64((ee[16] >> 4) & 0xF))
	occRowScale := math.Exp2(float64((ee[16] >> 8) & 0xF))
	offsetRef := signed(ee[17], 16)

	// Kta and Kv depend on the row and column parity.
	ktaRC := [4]float64{signed(ee[54]>>8, 8), signed(ee[55]>>8, 8), signed(ee[54]&0xFF, 8), signed(ee[55]&0xFF, 8)}
	kv := nibbles(ee[52])
	kvRC := [4]float64{signed(kv[3], 4), signed(kv[1], 4), signed(kv[2], 4), signed(kv[0], 4)}

	for i := 0; i < pixels; i++ {
		row, col := i/32, i%32
		w := ee[64+i]
		// A zero word marks a broken pixel, bit 0 an outlier.
		p.bad[i] = w == 0 || w&1 != 0

		a := signed((w>>4)&0x3F, 6) * accRemScale
		a = (alphaRef + accRow[row]*accRowScale + accCol[col]*accColScale + a) / alphaScale
		p.alpha[i] = a - p.tgc*(p.cpAlpha[0]+p.cpAlpha[1])/2

		o := signed(w>>10, 6) * occRemScale
		p.offset[i] = offsetRef + occRow[row]*occRowScale + occCol[col]*occColScale + o

		split := 2*(row&1) + col&1
		k := signed((w>>1)&0x7, 3) * ktaScale2
		p.kta[i] = (ktaRC[split] + k) / ktaScale1
		p.kv[i] = kvRC[split] / kvScale
	}
	return p, nil
}

// vdd returns the supply voltage.
func (p *params) vdd(frame []uint16) float64 {
	v := signed(frame[auxVdd], 16)
	ram := int(frame[auxControl]>>10) & 0x3
	corr := math.Exp2(float64(p.resolution)) / math.Exp2(float64(ram))
	return (corr*v-p.vdd25)/p.kVdd + 3.3
}

// ta returns the sensor die temperature in °C.
func (p *params) ta(frame []uint16, vdd float64) float64 {
	ptat := signed(frame[auxPTAT], 16)
	art := signed(frame[auxPTATArt], 16)
	art = ptat / (ptat*p.alphaPTAT + art) * (1 << 18)
	t := art/(1+p.kvPTAT*(vdd-3.3)) - p.vPTAT25
	return t/p.ktPTAT + 25
}

// pattern returns the subpage pixel i belongs to.
func pattern(i int, chess bool) int {
	il := (i / 32) & 1
	if chess {
		return il ^ (i & 1)
	}
	return il
}

// calculate computes the object temperature of the pixels of the subpage in
// frame and writes them to out. Bad pixels are set to NaN.
//
// tr is the reflected temperature; emissivity is in ]0, 1].
func (p *params) calculate(frame []uint16, emissivity, tr float64, out *[pixels]float32) {
	sub := int(frame[auxSubpage])
	vdd := p.vdd(frame)
	ta := p.ta(frame, vdd)
	ta4 := math.Pow(ta+273.15, 4)
	tr4 := math.Pow(tr+273.15, 4)
	taTr := tr4 - (tr4-ta4)/emissivity

	var alphaCorr [4]float64
	alphaCorr[0] = 1 / (1 + p.ksTo[0]*40)
	alphaCorr[1] = 1
	alphaCorr[2] = 1 + p.ksTo[1]*p.ct[2]
	alphaCorr[3] = alphaCorr[2] * (1 + p.ksTo[2]*(p.ct[3]-p.ct[2]))

	gain := p.gainEE / signed(frame[auxGain], 16)
	mode := int(frame[auxControl]&0x1000) >> 5
	dTa := ta - 25
	dVdd := vdd - 3.3

	cpCorr := (1 + p.cpKta*dTa) * (1 + p.cpKv*dVdd)
	var cp [2]float64
	cp[0] = signed(frame[auxCP0], 16)*gain - p.cpOffset[0]*cpCorr
	if mode == p.calibMode {
		cp[1] = signed(frame[auxCP1], 16)*gain - p.cpOffset[1]*cpCorr
	} else {
		cp[1] = signed(frame[auxCP1], 16)*gain - (p.cpOffset[1]+p.ilChessC[0])*cpCorr
	}

	chess := mode != 0
	for i := 0; i < pixels; i++ {
		if pattern(i, chess) != sub {
			continue
		}
		if p.bad[i] {
			out[i] = float32(math.NaN())
			continue
		}
		il := (i / 32) & 1
		conv := ((i+2)/4 - (i+3)/4 + (i+1)/4 - i/4) * (1 - 2*il)

		ir := signed(frame[i], 16) * gain
		ir -= p.offset[i] * (1 + p.kta[i]*dTa) * (1 + p.kv[i]*dVdd)
		if mode != p.calibMode {
			ir += p.ilChessC[2]*float64(2*il-1) - p.ilChessC[1]*float64(conv)
		}
		ir -= p.tgc * cp[sub]
		ir /= emissivity

		a := p.alpha[i] * (1 + p.ksTa*dTa)
		sx := a * a * a * (ir + a*taTr)
		sx = math.Sqrt(math.Sqrt(sx)) * p.ksTo[1]
		to := math.Sqrt(math.Sqrt(ir/(a*(1-p.ksTo[1]*273.15)+sx)+taTr)) - 273.15

		r := 3
		switch {
		case to < p.ct[1]:
			r = 0
		case to < p.ct[2]:
			r = 1
		case to < p.ct[3]:
			r = 2
		}
		to = math.Sqrt(math.Sqrt(ir/(a*alphaCorr[r]*(1+p.ksTo[r]*(to-p.ct[r])))+taTr)) - 273.15
		out[i] = float32(to)
	}
}
