package raw

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/audiolat/pkg/audio"
	"github.com/xaionaro-go/audiolat/pkg/audio/pcm"
	"github.com/xaionaro-go/audiolat/pkg/audiofile"
	"github.com/xaionaro-go/datacounter"
)

// Decoder reads headerless interleaved PCM, described by audiofile.Options.
type Decoder struct{}

var _ audiofile.Decoder = Decoder{}

func (Decoder) Extensions() []string {
	return []string{"raw", "pcm"}
}

func (Decoder) Decode(
	ctx context.Context,
	r io.ReadSeeker,
	opts audiofile.Options,
) (*audio.SampleBuffer, error) {
	if opts.SampleRate == 0 {
		return nil, fmt.Errorf("the sample rate is required for raw PCM")
	}
	if opts.Channels == 0 {
		opts.Channels = 1
	}
	if opts.Format == pcm.FormatUndefined {
		opts.Format = pcm.FormatS16LE
	}

	rc := datacounter.NewReaderCounter(r)
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("unable to read: %w", err)
	}
	logger.Debugf(ctx, "read %s of %s PCM", humanize.Bytes(rc.Count()), opts.Format)

	frameSize := int(opts.Format.Size()) * int(opts.Channels)
	if frameSize > 0 {
		if tail := len(data) % frameSize; tail != 0 {
			logger.Warnf(ctx, "dropping an incomplete trailing frame of %d bytes", tail)
			data = data[:len(data)-tail]
		}
	}

	samples, err := pcm.Decode(opts.Format, opts.Channels, data)
	if err != nil {
		return nil, err
	}
	return audio.NewSampleBuffer(opts.SampleRate, samples...)
}
