// Package marker generates reference waveforms to be emitted and later
// located in a recording.
package marker

import (
	"fmt"
	"math"
	"time"

	"github.com/xaionaro-go/audiolat/pkg/audio"
)

type ChirpConfig struct {
	SampleRate audio.SampleRate
	Duration   time.Duration
	StartFreq  float64 // Hz
	EndFreq    float64 // Hz
	Amplitude  float64
	Fade       time.Duration
}

// DefaultChirpConfig is a 300ms 200Hz..8kHz sweep.
func DefaultChirpConfig(sampleRate audio.SampleRate) ChirpConfig {
	endFreq := 8000.0
	if nyquist := float64(sampleRate) / 2; endFreq > nyquist*0.9 {
		endFreq = nyquist * 0.9
	}
	return ChirpConfig{
		SampleRate: sampleRate,
		Duration:   300 * time.Millisecond,
		StartFreq:  200,
		EndFreq:    endFreq,
		Amplitude:  0.5,
		Fade:       5 * time.Millisecond,
	}
}

// Chirp generates a linear frequency sweep with raised-cosine fades at both ends.
func Chirp(cfg ChirpConfig) (*audio.SampleBuffer, error) {
	if cfg.SampleRate == 0 {
		return nil, fmt.Errorf("sample rate is mandatory")
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("duration must be positive: got %v", cfg.Duration)
	}
	nyquist := float64(cfg.SampleRate) / 2
	if cfg.StartFreq < 0 || cfg.EndFreq < 0 || cfg.StartFreq > nyquist || cfg.EndFreq > nyquist {
		return nil, fmt.Errorf("frequencies must be within 0..%v Hz: got %v..%v", nyquist, cfg.StartFreq, cfg.EndFreq)
	}

	rate := float64(cfg.SampleRate)
	n := int(math.Round(cfg.Duration.Seconds() * rate))
	fadeLen := int(math.Round(cfg.Fade.Seconds() * rate))
	if fadeLen > n/2 {
		fadeLen = n / 2
	}
	total := cfg.Duration.Seconds()
	sweep := (cfg.EndFreq - cfg.StartFreq) / (2 * total)

	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / rate
		phase := 2 * math.Pi * (cfg.StartFreq*t + sweep*t*t)
		v := cfg.Amplitude * math.Sin(phase)
		switch {
		case i < fadeLen:
			v *= fadeGain(i, fadeLen)
		case i >= n-fadeLen:
			v *= fadeGain(n-1-i, fadeLen)
		}
		samples[i] = v
	}
	return audio.NewSampleBuffer(cfg.SampleRate, samples)
}

func fadeGain(pos, length int) float64 {
	return 0.5 * (1 - math.Cos(math.Pi*float64(pos)/float64(length)))
}

// Embed adds the first channel of probe into every channel of dst starting at
// offset. Samples that would go past the end of dst are dropped.
func Embed(dst *audio.SampleBuffer, probe *audio.SampleBuffer, offset int) {
	src := probe.Channel(0)
	for _, ch := range dst.Samples {
		for i, v := range src {
			if offset+i < 0 || offset+i >= len(ch) {
				continue
			}
			ch[offset+i] += v
		}
	}
}

// Silence returns a mono buffer of zeros.
func Silence(sampleRate audio.SampleRate, d time.Duration) *audio.SampleBuffer {
	n := int(math.Round(d.Seconds() * float64(sampleRate)))
	return audio.NewMonoBuffer(sampleRate, make([]float64, n))
}
