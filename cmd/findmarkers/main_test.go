package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/audiolat/pkg/audio"
	"github.com/xaionaro-go/audiolat/pkg/audiofile"
	"github.com/xaionaro-go/audiolat/pkg/audiofile/implementations/wav"
)

func writeWAV(t *testing.T, path string, buf *audio.SampleBuffer) {
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, wav.Encode(f, buf, wav.DefaultBitDepth))
	require.NoError(t, f.Close())
}

func TestLoadReferences(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	begin := filepath.Join(dir, "begin.wav")
	end := filepath.Join(dir, "end.wav")
	writeWAV(t, begin, audio.NewMonoBuffer(8000, []float64{0, 0.5, -0.5, 0}))
	writeWAV(t, end, audio.NewMonoBuffer(8000, []float64{0.25, -0.25}))

	refs, err := loadReferences(ctx, []string{begin, end}, audiofile.DefaultOptions(), []int{90, 20})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "begin.wav", refs[0].Label)
	assert.Equal(t, 90, refs[0].Threshold)
	assert.Equal(t, 4, refs[0].Buffer.Len())
	assert.Equal(t, "end.wav", refs[1].Label)
	assert.Equal(t, 20, refs[1].Threshold)

	_, err = loadReferences(ctx, []string{begin, filepath.Join(dir, "missing.wav")}, audiofile.DefaultOptions(), nil)
	require.Error(t, err)
}
