package latency

import (
	"errors"
	"fmt"
	"math"

	"github.com/xaionaro-go/audiolat/pkg/pairing"
	"gonum.org/v1/gonum/stat"
)

// ErrNoSamples is returned when there is nothing to summarize. It is a
// reportable outcome of a measurement rather than a failure.
var ErrNoSamples = errors.New("no latency samples")

type Summary struct {
	Mean        float64 // seconds
	StdDev      float64 // seconds, population standard deviation
	SampleCount int
}

func (s Summary) String() string {
	if s.SampleCount == 0 {
		return "no samples"
	}
	return fmt.Sprintf("average: %.3f s, stddev: %.3f s, samples: %d", s.Mean, s.StdDev, s.SampleCount)
}

// Summarize returns the mean and the population standard deviation of the
// pair latencies. With no pairs it returns a zero-count Summary and ErrNoSamples.
func Summarize(pairs []pairing.MatchedPair) (Summary, error) {
	if len(pairs) == 0 {
		return Summary{}, ErrNoSamples
	}
	latencies := make([]float64, len(pairs))
	for idx, p := range pairs {
		latencies[idx] = p.Latency
	}
	mean, variance := stat.PopMeanVariance(latencies, nil)
	return Summary{
		Mean:        mean,
		StdDev:      math.Sqrt(variance),
		SampleCount: len(pairs),
	}, nil
}
