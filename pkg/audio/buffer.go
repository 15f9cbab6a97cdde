package audio

import (
	"fmt"
	"math"
	"time"
)

type SampleRate uint32

type Channel uint16

// SampleBuffer is a decoded signal: planar float64 samples in the nominal
// range [-1.0, 1.0], one slice per channel, all of the same length.
//
// A SampleBuffer is not modified by the analyzers: whoever needs altered
// samples (gain, clip removal) works on the fly or on a copy.
type SampleBuffer struct {
	SampleRate SampleRate
	Samples    [][]float64
}

func NewSampleBuffer(
	sampleRate SampleRate,
	samples ...[]float64,
) (*SampleBuffer, error) {
	if sampleRate == 0 {
		return nil, fmt.Errorf("sample rate is mandatory")
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("at least one channel is required")
	}
	for idx, ch := range samples[1:] {
		if len(ch) != len(samples[0]) {
			return nil, fmt.Errorf("channel %d has %d samples, while channel 0 has %d", idx+1, len(ch), len(samples[0]))
		}
	}
	return &SampleBuffer{
		SampleRate: sampleRate,
		Samples:    samples,
	}, nil
}

// NewMonoBuffer wraps a single channel; it panics on a zero sample rate.
func NewMonoBuffer(sampleRate SampleRate, samples []float64) *SampleBuffer {
	buf, err := NewSampleBuffer(sampleRate, samples)
	if err != nil {
		panic(err)
	}
	return buf
}

func (b *SampleBuffer) Channels() Channel {
	if b == nil {
		return 0
	}
	return Channel(len(b.Samples))
}

// Len returns the amount of samples per channel.
func (b *SampleBuffer) Len() int {
	if b == nil || len(b.Samples) == 0 {
		return 0
	}
	return len(b.Samples[0])
}

func (b *SampleBuffer) Duration() time.Duration {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(b.Len()) * float64(time.Second) / float64(b.SampleRate))
}

// Channel returns the samples of the given channel, or nil if there is no such channel.
func (b *SampleBuffer) Channel(idx Channel) []float64 {
	if b == nil || int(idx) >= len(b.Samples) {
		return nil
	}
	return b.Samples[idx]
}

// Mono returns the buffer itself if it has a single channel, otherwise
// a new buffer with the channels averaged.
func (b *SampleBuffer) Mono() *SampleBuffer {
	if b.Channels() <= 1 {
		return b
	}
	out := make([]float64, b.Len())
	for _, ch := range b.Samples {
		for i, v := range ch {
			out[i] += v
		}
	}
	scale := 1 / float64(len(b.Samples))
	for i := range out {
		out[i] *= scale
	}
	return &SampleBuffer{
		SampleRate: b.SampleRate,
		Samples:    [][]float64{out},
	}
}

// TimeOf converts a sample offset to seconds.
func (b *SampleBuffer) TimeOf(offset int64) float64 {
	return float64(offset) / float64(b.SampleRate)
}

// OffsetOf converts seconds to the nearest sample offset.
func (b *SampleBuffer) OffsetOf(seconds float64) int64 {
	return int64(math.Round(seconds * float64(b.SampleRate)))
}

// Truncate returns a buffer sharing the samples of b, limited to the first d.
// A non-positive d or a d longer than the buffer returns b itself.
func (b *SampleBuffer) Truncate(d time.Duration) *SampleBuffer {
	if d <= 0 {
		return b
	}
	n := int(b.OffsetOf(d.Seconds()))
	if n >= b.Len() {
		return b
	}
	samples := make([][]float64, len(b.Samples))
	for idx, ch := range b.Samples {
		samples[idx] = ch[:n]
	}
	return &SampleBuffer{
		SampleRate: b.SampleRate,
		Samples:    samples,
	}
}
