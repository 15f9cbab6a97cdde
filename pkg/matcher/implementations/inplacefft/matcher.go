// Package inplacefft implements the marker matcher with the in-place radix-2
// FFT of github.com/brettbuddin/fourier. Unlike package fft it does not
// allocate per window: all the spectra live in buffers owned by the Matcher.
package inplacefft

import (
	"fmt"
	"math/cmplx"

	"github.com/brettbuddin/fourier"
	"github.com/xaionaro-go/audiolat/pkg/matcher"
)

type Matcher struct {
	probe []float64
	gain  float64

	n                 int
	probeSpectrumConj []complex128
	buf               []complex128
	gained            []float64
}

var _ matcher.Matcher = (*Matcher)(nil)

type Factory struct {
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
		if err := m.prepare(windowSizeHint); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Matcher) ProbeLen() int {
	return len(m.probe)
}

func (m *Matcher) prepare(windowSize int) error {
	n := 1
	for n < windowSize {
		n <<= 1
	}
	spectrum := make([]complex128, n)
	for i, v := range m.probe {
		spectrum[i] = complex(v, 0)
	}
	if err := fourier.Forward(spectrum); err != nil {
		return fmt.Errorf("unable to calculate the spectrum of the probe: %w", err)
	}
	for i, c := range spectrum {
		spectrum[i] = cmplx.Conj(c)
	}
	m.n = n
	m.probeSpectrumConj = spectrum
	m.buf = make([]complex128, n)
	return nil
}

func (m *Matcher) Match(window []float64) matcher.Result {
	lags := len(window) - len(m.probe) + 1
	if lags <= 0 {
		return matcher.Result{}
	}
	if len(window) > m.n {
		if err := m.prepare(len(window)); err != nil {
			return matcher.Result{}
		}
	}
	window = matcher.ApplyGain(m.gained, window, m.gain)
	if m.gain != 0 {
		m.gained = window
	}

	for i := range m.buf {
		if i < len(window) {
			m.buf[i] = complex(window[i], 0)
		} else {
			m.buf[i] = 0
		}
	}
	if err := fourier.Forward(m.buf); err != nil {
		return matcher.Result{}
	}
	for i := range m.buf {
		m.buf[i] *= m.probeSpectrumConj[i]
	}
	if err := fourier.Inverse(m.buf); err != nil {
		return matcher.Result{}
	}

	offset := 0
	maxVal := real(m.buf[0])
	for lag := 1; lag < lags; lag++ {
		if v := real(m.buf[lag]); v > maxVal {
			maxVal = v
			offset = lag
		}
	}
	return matcher.Result{
		Offset:     offset,
		Confidence: matcher.Confidence(window[offset:offset+len(m.probe)], m.probe),
	}
}
