package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/audiolat/pkg/latency"
	"github.com/xaionaro-go/audiolat/pkg/pairing"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "db", "runs.sqlite3"))
	require.NoError(t, err)
	defer s.Close()

	pairs := []pairing.MatchedPair{
		{Timestamp: 3.6, Latency: 0.6, Label: "response", LeadingTime: 3.0, LeadingLabel: "start"},
		{Timestamp: 1.5, Latency: 0.5, Label: "response", LeadingTime: 1.0, LeadingLabel: "start", LevelDB: -3},
	}
	summary, err := latency.Summarize(pairs)
	require.NoError(t, err)

	id, err := s.SaveRun(ctx, "capture.wav", "aaudio", "start", summary, pairs)
	require.NoError(t, err)
	require.Len(t, id, 36)

	emptyID, err := s.SaveRun(ctx, "silence.wav", "oboe", "", latency.Summary{}, nil)
	require.NoError(t, err)
	require.NotEqual(t, id, emptyID)

	runs, err := s.Runs(ctx, "aaudio")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "capture.wav", runs[0].Capture)
	assert.Equal(t, 2, runs[0].SampleCount)
	assert.InDelta(t, 0.55, runs[0].Mean, 1e-9)

	runs, err = s.Runs(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 2)

	stored, err := s.Pairs(ctx, id)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, pairs[1], stored[0])
	assert.Equal(t, pairs[0], stored[1])

	restored, err := s.Summary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, summary, restored)

	_, err = s.Summary(ctx, emptyID)
	require.ErrorIs(t, err, latency.ErrNoSamples)
}

func TestNilStore(t *testing.T) {
	var s *Store
	_, err := s.Runs(context.Background(), "")
	require.Error(t, err)
	require.NoError(t, s.Close())
}
