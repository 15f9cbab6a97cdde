package transient

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/audiolat/pkg/audio"
)

const testSampleRate = 8000

type segment struct {
	duration  time.Duration
	amplitude float64
}

func tones(segments ...segment) *audio.SampleBuffer {
	var samples []float64
	for _, seg := range segments {
		n := int(seg.duration.Seconds() * testSampleRate)
		for i := 0; i < n; i++ {
			pos := len(samples)
			samples = append(samples, seg.amplitude*math.Sin(2*math.Pi*440*float64(pos)/testSampleRate))
		}
	}
	return audio.NewMonoBuffer(testSampleRate, samples)
}

func detect(t *testing.T, cfg Config, signal *audio.SampleBuffer) []Event {
	d, err := NewDetector(cfg)
	require.NoError(t, err)
	events, err := d.Detect(context.Background(), signal)
	require.NoError(t, err)
	return events
}

func TestDetect_ConstantTone(t *testing.T) {
	events := detect(t, DefaultConfig(), tones(segment{5 * time.Second, 0.99}))
	require.Len(t, events, 1)
	assert.Less(t, events[0].Time, 0.5)
	assert.InDelta(t, DefaultReferenceLevel, events[0].PeakLevelDB, 0.01)
}

func TestDetect_Bursts(t *testing.T) {
	signal := tones(
		segment{time.Second, 0},
		segment{200 * time.Millisecond, 0.5},
		segment{time.Second, 0},
		segment{200 * time.Millisecond, 0.25},
		segment{time.Second, 0},
	)
	cfg := DefaultConfig().WithThresholdBelowPeak(10)
	events := detect(t, cfg, signal)
	require.Len(t, events, 2)
	assert.InDelta(t, 1.0, events[0].Time, 0.2)
	assert.InDelta(t, 2.2, events[1].Time, 0.2)
	assert.GreaterOrEqual(t, events[0].Time, 1.0)
	assert.GreaterOrEqual(t, events[1].Time, 2.2)
	assert.InDelta(t, -12.0, events[1].PeakLevelDB, 0.1)
}

func TestDetect_Hysteresis(t *testing.T) {
	signal := tones(
		segment{time.Second, 0.5},
		// a dip that stays above threshold-hysteresis does not re-arm
		segment{time.Second, 0.3},
		segment{time.Second, 0.5},
		segment{time.Second, 0},
		segment{time.Second, 0.5},
	)
	events := detect(t, DefaultConfig(), signal)
	require.Len(t, events, 2)
	assert.Less(t, events[0].Time, 0.5)
	assert.InDelta(t, 4.0, events[1].Time, 0.5)

	hop := DefaultBlock.Seconds() * DefaultHopFraction
	assert.Greater(t, events[1].Time-events[0].Time, hop)
}

func TestDetect_ClipGuard(t *testing.T) {
	t.Run("clicks_ignored", func(t *testing.T) {
		signal := tones(
			segment{2 * time.Second, 0},
			segment{300 * time.Millisecond, 0.1},
			segment{time.Second, 0},
		)
		signal.Samples[0][testSampleRate/2] = 1.0
		signal.Samples[0][testSampleRate/2+1] = -1.0

		events := detect(t, DefaultConfig(), signal)
		require.Len(t, events, 1)
		assert.GreaterOrEqual(t, events[0].Time, 2.0)
		assert.InDelta(t, DefaultReferenceLevel, events[0].PeakLevelDB, 0.1)
		assert.Equal(t, 1.0, signal.Samples[0][testSampleRate/2], "the signal must not be modified")
	})

	for _, dc := range []float64{1.0, -1.0, 1.5} {
		t.Run(fmt.Sprintf("dc_%v", dc), func(t *testing.T) {
			samples := make([]float64, 2*testSampleRate)
			for i := range samples {
				samples[i] = dc
			}
			events := detect(t, DefaultConfig(), audio.NewMonoBuffer(testSampleRate, samples))
			assert.Empty(t, events, "a signal held at full scale is entirely clipped")
		})
	}

	t.Run("full_scale_sine", func(t *testing.T) {
		events := detect(t, DefaultConfig(), tones(
			segment{time.Second, 0},
			segment{time.Second, 1.0},
		))
		require.Len(t, events, 1)
		assert.GreaterOrEqual(t, events[0].Time, 1.0)
		assert.InDelta(t, DefaultReferenceLevel, events[0].PeakLevelDB, 0.01)
	})
}

func TestDetect_Silence(t *testing.T) {
	events := detect(t, DefaultConfig(), tones(segment{2 * time.Second, 0}))
	assert.Empty(t, events)
}

func TestDetect_ShorterThanBlock(t *testing.T) {
	events := detect(t, DefaultConfig(), tones(segment{100 * time.Millisecond, 0.5}))
	assert.Empty(t, events)
}

func TestNewDetector_Invalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HopFraction = 2
	_, err := NewDetector(cfg)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.HysteresisDB = -1
	_, err = NewDetector(cfg)
	require.Error(t, err)
}

func TestDetect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, err := NewDetector(DefaultConfig())
	require.NoError(t, err)
	_, err = d.Detect(ctx, tones(segment{time.Second, 0.5}))
	require.ErrorIs(t, err, context.Canceled)
}
