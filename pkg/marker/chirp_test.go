package marker

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChirp(t *testing.T) {
	buf, err := Chirp(DefaultChirpConfig(48000))
	require.NoError(t, err)
	require.Equal(t, 14400, buf.Len())
	assert.Equal(t, 300*time.Millisecond, buf.Duration())

	samples := buf.Channel(0)
	assert.Equal(t, 0.0, samples[0], "the fade-in starts from silence")
	var peak float64
	for _, v := range samples {
		peak = math.Max(peak, math.Abs(v))
	}
	assert.InDelta(t, 0.5, peak, 0.01)
}

func TestChirp_LowRate(t *testing.T) {
	cfg := DefaultChirpConfig(8000)
	assert.InDelta(t, 3600, cfg.EndFreq, 1e-9)
	_, err := Chirp(cfg)
	require.NoError(t, err)
}

func TestChirp_Invalid(t *testing.T) {
	cfg := DefaultChirpConfig(48000)
	cfg.EndFreq = 30000
	_, err := Chirp(cfg)
	require.Error(t, err)

	cfg = DefaultChirpConfig(48000)
	cfg.Duration = 0
	_, err = Chirp(cfg)
	require.Error(t, err)
}

func TestEmbed(t *testing.T) {
	dst := Silence(1000, 10*time.Millisecond)
	probe := Silence(1000, 4*time.Millisecond)
	for i := range probe.Samples[0] {
		probe.Samples[0][i] = 1
	}
	Embed(dst, probe, 8)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 0, 0, 1, 1}, dst.Channel(0))
}
