package latencycheck

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/audiolat/pkg/audio"
	"github.com/xaionaro-go/audiolat/pkg/audio/resampler"
	"github.com/xaionaro-go/audiolat/pkg/marker"
	"github.com/xaionaro-go/audiolat/pkg/pairing"
	"github.com/xaionaro-go/audiolat/pkg/scanner"
)

func chirp(t *testing.T, cfg marker.ChirpConfig) *audio.SampleBuffer {
	buf, err := marker.Chirp(cfg)
	require.NoError(t, err)
	return buf
}

func place(t *testing.T, capture, probe *audio.SampleBuffer, seconds ...float64) {
	for _, s := range seconds {
		marker.Embed(capture, probe, int(capture.OffsetOf(s)))
	}
}

func TestRoundTrip(t *testing.T) {
	const rate = 48000
	ctx := context.Background()

	start := chirp(t, marker.DefaultChirpConfig(rate))
	responseCfg := marker.DefaultChirpConfig(rate)
	responseCfg.StartFreq, responseCfg.EndFreq = 6000, 500
	response := chirp(t, responseCfg)

	capture := marker.Silence(rate, 7*time.Second)
	place(t, capture, start, 1.0, 3.0, 5.0)
	place(t, capture, response, 1.5, 3.6)

	var (
		locker sync.Mutex
		stages = map[string]float64{}
	)
	cfg := DefaultConfig()
	cfg.OnProgress = func(stage string, percent float64) {
		locker.Lock()
		defer locker.Unlock()
		stages[stage] = percent
	}

	result, err := RoundTrip(ctx, capture, []Reference{
		NewReference("response", response),
		NewReference("start", start),
	}, cfg)
	require.NoError(t, err)

	require.Len(t, result.Markers, 5)
	var labels []string
	for _, m := range result.Markers {
		labels = append(labels, m.Label)
		assert.Equal(t, 100, m.Confidence)
	}
	assert.Equal(t, []string{"start", "response", "start", "response", "start"}, labels)
	assert.Equal(t, "start", result.LeadingLabel)

	require.Len(t, result.Pairs, 2)
	assert.InDelta(t, 0.5, result.Pairs[0].Latency, 1e-9)
	assert.InDelta(t, 0.6, result.Pairs[1].Latency, 1e-9)
	assert.Equal(t, 2, result.Summary.SampleCount)
	assert.InDelta(t, 0.55, result.Summary.Mean, 1e-9)
	assert.InDelta(t, 0.05, result.Summary.StdDev, 1e-9)

	require.Len(t, result.Levels, 1)
	assert.InDelta(t, -6.02, result.Levels[0].PeakDB, 0.1)

	assert.Equal(t, map[string]float64{"start": 100, "response": 100}, stages)
}

func TestRoundTrip_TwoMarkers(t *testing.T) {
	const rate = 48000
	probe := chirp(t, marker.DefaultChirpConfig(rate))
	capture := marker.Silence(rate, 8*time.Second)
	place(t, capture, probe, 3.0, 5.0)

	cfg := DefaultConfig()
	cfg.Pairing.MaxGap = 5 * time.Second
	result, err := RoundTrip(context.Background(), capture, []Reference{NewReference("chirp", probe)}, cfg)
	require.NoError(t, err)
	require.Len(t, result.Markers, 2)
	assert.InDelta(t, 3.0, result.Markers[0].Time, 1e-9)
	assert.InDelta(t, 5.0, result.Markers[1].Time, 1e-9)

	require.Len(t, result.Pairs, 1)
	assert.InDelta(t, 2.0, result.Pairs[0].Latency, 1e-9)
	assert.InDelta(t, 5.0, result.Pairs[0].Timestamp, 1e-9)
	assert.Equal(t, 1, result.Summary.SampleCount)
}

func TestRoundTrip_NoPairs(t *testing.T) {
	const rate = 8000
	capture := marker.Silence(rate, 3*time.Second)
	probe := chirp(t, marker.DefaultChirpConfig(rate))

	result, err := RoundTrip(context.Background(), capture, []Reference{NewReference("chirp", probe)}, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, result.Markers)
	assert.Empty(t, result.Pairs)
	assert.Equal(t, "no samples", result.Summary.String())
}

func TestFindMarkers(t *testing.T) {
	ctx := context.Background()

	t.Run("sample_rate_mismatch", func(t *testing.T) {
		capture := marker.Silence(16000, time.Second)
		probe := chirp(t, marker.DefaultChirpConfig(8000))
		_, err := FindMarkers(ctx, capture, []Reference{NewReference("chirp", probe)}, DefaultConfig())
		require.Error(t, err)
	})

	t.Run("resampled", func(t *testing.T) {
		probe := chirp(t, marker.DefaultChirpConfig(8000))
		upsampled, err := resampler.ResampleBuffer(probe, 16000)
		require.NoError(t, err)

		capture := marker.Silence(16000, 2*time.Second)
		place(t, capture, upsampled, 0.75)

		cfg := DefaultConfig()
		cfg.Resample = true
		markers, err := FindMarkers(ctx, capture, []Reference{NewReference("chirp", probe)}, cfg)
		require.NoError(t, err)
		require.Len(t, markers, 1)
		assert.Equal(t, int64(12000), markers[0].SampleOffset)
	})

	t.Run("limit_marker", func(t *testing.T) {
		probe := chirp(t, marker.DefaultChirpConfig(8000))
		capture := marker.Silence(8000, 2*time.Second)
		place(t, capture, probe, 1.25)

		cfg := DefaultConfig()
		cfg.LimitMarker = 100 * time.Millisecond
		markers, err := FindMarkers(ctx, capture, []Reference{NewReference("chirp", probe)}, cfg)
		require.NoError(t, err)
		require.Len(t, markers, 1)
		assert.Equal(t, int64(10000), markers[0].SampleOffset)
		assert.Equal(t, 100, markers[0].Confidence)
	})

	t.Run("one_of_references_fails", func(t *testing.T) {
		probe := chirp(t, marker.DefaultChirpConfig(8000))
		capture := marker.Silence(8000, 2*time.Second)
		place(t, capture, probe, 0.5)

		markers, err := FindMarkers(ctx, capture, []Reference{
			{Label: "empty"},
			NewReference("chirp", probe),
			{Label: "bad_threshold", Buffer: probe, Threshold: 101},
		}, DefaultConfig())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
		assert.Contains(t, err.Error(), "bad_threshold")
		require.Len(t, markers, 1)
		assert.Equal(t, "chirp", markers[0].Label)
	})

	t.Run("cancelled", func(t *testing.T) {
		probe := chirp(t, marker.DefaultChirpConfig(8000))
		capture := marker.Silence(8000, 2*time.Second)
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := FindMarkers(ctx, capture, []Reference{NewReference("chirp", probe)}, DefaultConfig())
		require.ErrorIs(t, err, context.Canceled)
	})
}

func addBurst(buf *audio.SampleBuffer, at, duration time.Duration, freq, amplitude float64) {
	begin := int(buf.OffsetOf(at.Seconds()))
	end := int(buf.OffsetOf((at + duration).Seconds()))
	for _, ch := range buf.Samples {
		for i := begin; i < end && i < len(ch); i++ {
			ch[i] += amplitude * math.Sin(2*math.Pi*freq*float64(i-begin)/float64(buf.SampleRate))
		}
	}
}

func TestTransients(t *testing.T) {
	const rate = 8000
	ctx := context.Background()

	chirpCfg := marker.DefaultChirpConfig(rate)
	chirpCfg.Amplitude = 0.2
	probe := chirp(t, chirpCfg)

	capture := marker.Silence(rate, 4*time.Second)
	addBurst(capture, 1700*time.Millisecond, 100*time.Millisecond, 440, 0.9)
	place(t, capture, probe, 2.0)

	t.Run("transient_before_marker", func(t *testing.T) {
		result, err := Transients(ctx, capture, NewReference("chirp", probe), TransientConfig(pairing.LeadingBefore))
		require.NoError(t, err)
		require.Len(t, result.Markers, 1)
		require.Len(t, result.Transients, 1)
		assert.InDelta(t, 1.725, result.Transients[0].Time, 0.026)

		require.Len(t, result.Pairs, 1)
		pair := result.Pairs[0]
		assert.Equal(t, "chirp", pair.Label)
		assert.Equal(t, TransientLabel, pair.LeadingLabel)
		assert.InDelta(t, 2.0-result.Transients[0].Time, pair.Latency, 1e-9)
		assert.InDelta(t, -6, pair.LeadingLevelDB, 0.5)
		assert.Equal(t, 1, result.Summary.SampleCount)
	})

	t.Run("transient_after_marker", func(t *testing.T) {
		cfg := TransientConfig(pairing.LeadingAfter)
		result, err := Transients(ctx, capture, NewReference("chirp", probe), cfg)
		require.NoError(t, err)
		require.Len(t, result.Transients, 1)
		assert.Empty(t, result.Pairs)
		assert.Zero(t, result.Summary.SampleCount)
	})

	t.Run("invalid_detector_config", func(t *testing.T) {
		cfg := TransientConfig(pairing.LeadingBefore)
		cfg.Transient.HopFraction = 2
		_, err := Transients(ctx, capture, NewReference("chirp", probe), cfg)
		require.Error(t, err)
	})
}

func TestTransientConfig_MinGap(t *testing.T) {
	marker := []pairing.Event{{Time: 1.0, Label: "chirp"}}
	for _, tc := range []struct {
		direction pairing.Direction
		minGap    time.Duration
		transient float64
	}{
		{pairing.LeadingBefore, 5 * time.Millisecond, 0.993},
		{pairing.LeadingAfter, 10 * time.Millisecond, 1.007},
	} {
		t.Run(tc.direction.String(), func(t *testing.T) {
			cfg := TransientConfig(tc.direction)
			require.Equal(t, tc.direction, cfg.Pairing.Direction)
			require.Equal(t, tc.minGap, cfg.Pairing.MinGap)

			// 7ms away: enough before the marker, too close after it
			transients := []pairing.Event{{Time: tc.transient, Label: TransientLabel}}
			pairs, err := pairing.Pair(transients, marker, cfg.Pairing)
			require.NoError(t, err)
			if tc.direction == pairing.LeadingBefore {
				require.Len(t, pairs, 1)
				assert.InDelta(t, 0.007, pairs[0].Latency, 1e-9)
			} else {
				assert.Empty(t, pairs)
			}
		})
	}
}

func TestPairMarkers(t *testing.T) {
	markers := []scanner.Marker{
		{Time: 1.0, Label: "begin"},
		{Time: 1.0015, Label: "end"},
		{Time: 1.25, Label: "end"},
		{Time: 2.0, Label: "begin"},
		{Time: 2.3, Label: "end"},
		{Time: 3.0, Label: "begin"},
	}
	leadingLabel, pairs, summary, err := PairMarkers(context.Background(), markers, pairing.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "begin", leadingLabel)
	require.Len(t, pairs, 2)
	assert.InDelta(t, 0.25, pairs[0].Latency, 1e-9)
	assert.InDelta(t, 0.3, pairs[1].Latency, 1e-9)
	assert.Equal(t, 2, summary.SampleCount)

	_, _, _, err = PairMarkers(context.Background(), markers, pairing.Config{MinGap: time.Second, MaxGap: time.Millisecond})
	require.Error(t, err)
}
