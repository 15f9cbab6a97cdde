package resampler

import (
	"fmt"

	"github.com/xaionaro-go/audiolat/pkg/audio"
)

const (
	distanceStep = 10000
)

// Resample converts samples from inRate to outRate using sample-and-hold:
// every output sample takes the value of the latest input sample whose
// position is not after it. It is intended for short reference probes, not
// for high quality playback.
func Resample(samples []float64, inRate, outRate audio.SampleRate) ([]float64, error) {
	if inRate == 0 || outRate == 0 {
		return nil, fmt.Errorf("sample rates must be positive: %d -> %d", inRate, outRate)
	}
	if inRate == outRate {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}

	outDistanceStep := uint64(float64(distanceStep) * float64(inRate) / float64(outRate))
	if outDistanceStep == 0 {
		return nil, fmt.Errorf("the ratio %d -> %d is too large", inRate, outRate)
	}

	expected := uint64(len(samples)) * uint64(outRate) / uint64(inRate)
	out := make([]float64, 0, expected+1)

	var inDistance, outDistance uint64
	for _, v := range samples {
		inDistance += distanceStep
		for outDistance < inDistance {
			out = append(out, v)
			outDistance += outDistanceStep
		}
	}
	return out, nil
}

// ResampleBuffer returns buf converted to outRate; buf itself is returned if
// it already has the requested sample rate.
func ResampleBuffer(buf *audio.SampleBuffer, outRate audio.SampleRate) (*audio.SampleBuffer, error) {
	if buf.SampleRate == outRate {
		return buf, nil
	}
	samples := make([][]float64, len(buf.Samples))
	for idx, ch := range buf.Samples {
		resampled, err := Resample(ch, buf.SampleRate, outRate)
		if err != nil {
			return nil, fmt.Errorf("unable to resample channel %d: %w", idx, err)
		}
		samples[idx] = resampled
	}
	return audio.NewSampleBuffer(outRate, samples...)
}
