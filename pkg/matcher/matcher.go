package matcher

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

type Result struct {
	// Offset is the lag (in samples, relative to the window start) of the
	// largest raw cross-correlation value.
	Offset int

	// Confidence is the Pearson correlation coefficient between the probe and
	// the window slice at Offset, scaled to 0..100.
	Confidence int
}

type Matcher interface {
	// ProbeLen returns the length of the probe the matcher searches for.
	ProbeLen() int

	// Match finds the best-aligned offset of the probe inside the window.
	// Only alignments where the whole probe fits into the window are
	// considered; a window shorter than the probe yields a zero Result.
	Match(window []float64) Result
}

type Factory interface {
	// NewMatcher prepares a matcher for the given probe. A non-zero gain is
	// applied to every window before the correlation.
	NewMatcher(probe []float64, gain float64) (Matcher, error)
}

// Confidence returns the Pearson correlation coefficient of a and b scaled to
// an integer in 0..100. Undefined coefficients (a constant input) and
// negative correlations are reported as 0.
func Confidence(a, b []float64) int {
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}
	cc := stat.Correlation(a, b, nil)
	if math.IsNaN(cc) || cc <= 0 {
		return 0
	}
	result := int(math.Round(cc * 100))
	if result > 100 {
		result = 100
	}
	return result
}

// ArgMax returns the index of the first largest value of s, or -1 if s is empty.
func ArgMax(s []float64) int {
	if len(s) == 0 {
		return -1
	}
	maxIdx := 0
	for i := 1; i < len(s); i++ {
		if s[i] > s[maxIdx] {
			maxIdx = i
		}
	}
	return maxIdx
}

// ApplyGain returns window multiplied by gain into dst (reallocated if too
// short). A zero gain returns window as is.
func ApplyGain(dst, window []float64, gain float64) []float64 {
	if gain == 0 {
		return window
	}
	if cap(dst) < len(window) {
		dst = make([]float64, len(window))
	}
	dst = dst[:len(window)]
	for i, v := range window {
		dst[i] = v * gain
	}
	return dst
}
