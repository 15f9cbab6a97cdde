// Package fft implements the marker matcher with a cross-correlation
// computed in the frequency domain.
//
// The probe spectrum is calculated once and reused for every window, so
// scanning a long signal costs one forward and one inverse FFT per window.
package fft

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/xaionaro-go/audiolat/pkg/matcher"
)

type Matcher struct {
	probe []float64
	gain  float64

	// n is the FFT size the probe spectrum was prepared for. Windows longer
	// than n force a re-preparation.
	n int
	// probeSpectrumConj is conj(FFT(probe zero-padded to n)).
	probeSpectrumConj []complex128

	gained []float64
	padded []float64
	prod   []complex128
}

var _ matcher.Matcher = (*Matcher)(nil)

type Factory struct {
	// WindowSizeHint is the expected window length; it allows to prepare the
	// probe spectrum upfront. Zero means "decide on the first window".
	WindowSizeHint int
}

var _ matcher.Factory = Factory{}

func (f Factory) NewMatcher(probe []float64, gain float64) (matcher.Matcher, error) {
	return NewMatcher(probe, gain, f.WindowSizeHint)
}

func NewMatcher(probe []float64, gain float64, windowSizeHint int) (*Matcher, error) {
	if len(probe) == 0 {
		return nil, fmt.Errorf("the probe is empty")
	}
	m := &Matcher{
		probe: probe,
		gain:  gain,
	}
	if windowSizeHint > 0 {
		m.prepare(windowSizeHint)
	}
	return m, nil
}

func (m *Matcher) ProbeLen() int {
	return len(m.probe)
}

// prepare calculates the probe spectrum for windows up to windowSize samples.
//
// For lags 0..len(window)-len(probe) a circular correlation of size
// n >= len(window) never wraps around, so no extra padding is needed.
func (m *Matcher) prepare(windowSize int) {
	n := 1
	for n < windowSize {
		n <<= 1
	}
	m.n = n
	m.padded = make([]float64, n)
	copy(m.padded, m.probe)
	m.probeSpectrumConj = fft.FFTReal(m.padded)
	for i, c := range m.probeSpectrumConj {
		m.probeSpectrumConj[i] = cmplx.Conj(c)
	}
	m.prod = make([]complex128, n)
}

func (m *Matcher) Match(window []float64) matcher.Result {
	lags := len(window) - len(m.probe) + 1
	if lags <= 0 {
		return matcher.Result{}
	}
	if len(window) > m.n {
		m.prepare(len(window))
	}
	window = matcher.ApplyGain(m.gained, window, m.gain)
	if m.gain != 0 {
		m.gained = window
	}

	copy(m.padded, window)
	for i := len(window); i < m.n; i++ {
		m.padded[i] = 0
	}
	spectrum := fft.FFTReal(m.padded)
	for i, c := range spectrum {
		m.prod[i] = c * m.probeSpectrumConj[i]
	}
	corr := fft.IFFT(m.prod)

	offset := 0
	maxVal := real(corr[0])
	for lag := 1; lag < lags; lag++ {
		if v := real(corr[lag]); v > maxVal {
			maxVal = v
			offset = lag
		}
	}
	return matcher.Result{
		Offset:     offset,
		Confidence: matcher.Confidence(window[offset:offset+len(m.probe)], m.probe),
	}
}
