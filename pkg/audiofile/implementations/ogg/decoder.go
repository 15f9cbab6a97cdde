package ogg

import (
	"context"
	"fmt"
	"io"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/jfreymuth/oggvorbis"
	"github.com/xaionaro-go/audiolat/pkg/audio"
	"github.com/xaionaro-go/audiolat/pkg/audio/pcm"
	"github.com/xaionaro-go/audiolat/pkg/audiofile"
)

// Decoder reads Ogg Vorbis streams.
type Decoder struct{}

var _ audiofile.Decoder = Decoder{}

func (Decoder) Extensions() []string {
	return []string{"ogg", "oga"}
}

func (Decoder) Decode(
	ctx context.Context,
	r io.ReadSeeker,
	_ audiofile.Options,
) (*audio.SampleBuffer, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to decode the Ogg Vorbis stream: %w", err)
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("the Ogg Vorbis stream has no valid format description")
	}
	logger.Tracef(ctx, "Ogg Vorbis: %d Hz, %d channels, %d values", format.SampleRate, format.Channels, len(samples))

	interleaved := make([]float64, len(samples))
	for idx, v := range samples {
		interleaved[idx] = float64(v)
	}
	return audio.NewSampleBuffer(
		audio.SampleRate(format.SampleRate),
		pcm.Deinterleave(audio.Channel(format.Channels), interleaved)...,
	)
}
