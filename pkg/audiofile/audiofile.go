// Package audiofile loads captured recordings and reference markers into
// sample buffers. Format support is provided by the packages under
// implementations/, which register themselves when imported.
package audiofile

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/audiolat/pkg/audio"
	"github.com/xaionaro-go/audiolat/pkg/audio/pcm"
)

// Options describe the data for formats that carry no header (raw PCM).
// Self-describing formats ignore them.
type Options struct {
	SampleRate audio.SampleRate
	Channels   audio.Channel
	Format     pcm.Format
}

func DefaultOptions() Options {
	return Options{
		SampleRate: 48000,
		Channels:   1,
		Format:     pcm.FormatS16LE,
	}
}

type Decoder interface {
	// Extensions returns the file extensions (without the dot) the decoder handles.
	Extensions() []string

	Decode(ctx context.Context, r io.ReadSeeker, opts Options) (*audio.SampleBuffer, error)
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Load decodes r with the decoder registered for ext.
func Load(ctx context.Context, r io.ReadSeeker, ext string, opts Options) (*audio.SampleBuffer, error) {
	decoder := DecoderFor(ext)
	if decoder == nil {
		return nil, fmt.Errorf("no decoder registered for extension '%s'", ext)
	}
	buf, err := decoder.Decode(ctx, r, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to decode with %T: %w", decoder, err)
	}
	return buf, nil
}

// LoadFile opens and decodes the file at path, choosing the decoder by the
// file extension.
func LoadFile(ctx context.Context, path string, opts Options) (*audio.SampleBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		logger.Debugf(ctx, "loading '%s' (%s)", path, humanize.Bytes(uint64(fi.Size())))
	}

	buf, err := Load(ctx, f, filepath.Ext(path), opts)
	if err != nil {
		return nil, fmt.Errorf("unable to load '%s': %w", path, err)
	}
	logger.Debugf(ctx, "loaded '%s': %d Hz, %d channels, %v", path, buf.SampleRate, buf.Channels(), buf.Duration())
	return buf, nil
}
