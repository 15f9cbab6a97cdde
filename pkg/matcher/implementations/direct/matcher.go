// Package direct implements the marker matcher with a time-domain
// cross-correlation. It is O(len(window)*len(probe)) per window and is
// mostly useful for short probes and as a reference for other implementations.
package direct

import (
	"fmt"

	"github.com/xaionaro-go/audiolat/pkg/matcher"
)

type Matcher struct {
	probe  []float64
	gain   float64
	gained []float64
	corr   []float64
}

var _ matcher.Matcher = (*Matcher)(nil)

type Factory struct{}

var _ matcher.Factory = Factory{}

func (Factory) NewMatcher(probe []float64, gain float64) (matcher.Matcher, error) {
	return NewMatcher(probe, gain)
}

func NewMatcher(probe []float64, gain float64) (*Matcher, error) {
	if len(probe) == 0 {
		return nil, fmt.Errorf("the probe is empty")
	}
	return &Matcher{
		probe: probe,
		gain:  gain,
	}, nil
}

func (m *Matcher) ProbeLen() int {
	return len(m.probe)
}

func (m *Matcher) Match(window []float64) matcher.Result {
	lags := len(window) - len(m.probe) + 1
	if lags <= 0 {
		return matcher.Result{}
	}
	window = matcher.ApplyGain(m.gained, window, m.gain)
	if m.gain != 0 {
		m.gained = window
	}

	if cap(m.corr) < lags {
		m.corr = make([]float64, lags)
	}
	corr := m.corr[:lags]
	for lag := range corr {
		var sum float64
		for i, p := range m.probe {
			sum += window[lag+i] * p
		}
		corr[lag] = sum
	}

	offset := matcher.ArgMax(corr)
	return matcher.Result{
		Offset:     offset,
		Confidence: matcher.Confidence(window[offset:offset+len(m.probe)], m.probe),
	}
}
