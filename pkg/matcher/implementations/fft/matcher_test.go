package fft

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/audiolat/pkg/matcher/implementations/direct"
)

func noise(rng *rand.Rand, n int, amplitude float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return s
}

func TestMatcher_Match(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	probe := noise(rng, 100, 1)

	m, err := NewMatcher(probe, 0, 0)
	require.NoError(t, err)

	t.Run("embedded", func(t *testing.T) {
		window := make([]float64, 300)
		copy(window[123:], probe)
		r := m.Match(window)
		assert.Equal(t, 123, r.Offset)
		assert.Equal(t, 100, r.Confidence)
	})

	t.Run("last_lag", func(t *testing.T) {
		window := make([]float64, 300)
		copy(window[200:], probe)
		r := m.Match(window)
		assert.Equal(t, 200, r.Offset)
		assert.Equal(t, 100, r.Confidence)
	})

	t.Run("silence", func(t *testing.T) {
		r := m.Match(make([]float64, 300))
		assert.Equal(t, 0, r.Confidence)
	})

	t.Run("window_shorter_than_probe", func(t *testing.T) {
		assert.Zero(t, m.Match(probe[:50]))
	})

	t.Run("growing_window", func(t *testing.T) {
		window := make([]float64, 5000)
		copy(window[4321:], probe)
		r := m.Match(window)
		assert.Equal(t, 4321, r.Offset)
		assert.Equal(t, 100, r.Confidence)
	})
}

func TestMatcher_SameAsDirect(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	probe := noise(rng, 256, 0.5)

	fm, err := Factory{WindowSizeHint: 1024}.NewMatcher(probe, 0)
	require.NoError(t, err)
	dm, err := direct.Factory{}.NewMatcher(probe, 0)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			window := noise(rng, 1024, 0.3)
			offset := rng.Intn(len(window) - len(probe) + 1)
			for j, v := range probe {
				window[offset+j] += v
			}
			fr := fm.Match(window)
			dr := dm.Match(window)
			assert.Equal(t, offset, fr.Offset)
			assert.Equal(t, dr, fr)
		})
	}
}

func BenchmarkMatcher_Match(b *testing.B) {
	rng := rand.New(rand.NewSource(3))
	for _, probeLen := range []int{480, 14400} {
		probe := noise(rng, probeLen, 1)
		window := noise(rng, probeLen+4800, 1)
		b.Run(fmt.Sprintf("probe-%d", probeLen), func(b *testing.B) {
			m, err := NewMatcher(probe, 0, len(window))
			require.NoError(b, err)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				m.Match(window)
			}
		})
	}
}
