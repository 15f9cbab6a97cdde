package wav

import (
	"context"
	"fmt"
	"io"

	"github.com/facebookincubator/go-belt/tool/logger"
	gowav "github.com/go-audio/wav"
	"github.com/xaionaro-go/audiolat/pkg/audio"
	"github.com/xaionaro-go/audiolat/pkg/audio/pcm"
	"github.com/xaionaro-go/audiolat/pkg/audiofile"
)

const (
	formatPCM        = 1
	formatIEEEFloat  = 3
	formatExtensible = 0xFFFE
)

type Decoder struct{}

var _ audiofile.Decoder = Decoder{}

func (Decoder) Extensions() []string {
	return []string{"wav", "wave"}
}

func (Decoder) Decode(
	ctx context.Context,
	r io.ReadSeeker,
	_ audiofile.Options,
) (*audio.SampleBuffer, error) {
	d := gowav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}
	switch d.WavAudioFormat {
	case formatPCM, formatExtensible:
	case formatIEEEFloat:
		return decodeFloat(ctx, d)
	default:
		return nil, fmt.Errorf("unsupported WAV audio format %d", d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("unable to read the PCM data: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("the WAV file has no valid format description")
	}

	bitDepth := int(d.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
	logger.Tracef(ctx, "WAV: %d Hz, %d channels, %d bits, %d values", buf.Format.SampleRate, buf.Format.NumChannels, bitDepth, len(buf.Data))

	interleaved := make([]float64, len(buf.Data))
	switch bitDepth {
	case 8:
		// 8-bit WAV is unsigned
		for idx, v := range buf.Data {
			interleaved[idx] = float64(v-128) / 128
		}
	default:
		scale := 1 / float64(int64(1)<<(bitDepth-1))
		for idx, v := range buf.Data {
			interleaved[idx] = float64(v) * scale
		}
	}

	return audio.NewSampleBuffer(
		audio.SampleRate(buf.Format.SampleRate),
		pcm.Deinterleave(audio.Channel(buf.Format.NumChannels), interleaved)...,
	)
}

// decodeFloat reads IEEE-float PCM, which go-audio would interpret as integers.
func decodeFloat(
	ctx context.Context,
	d *gowav.Decoder,
) (*audio.SampleBuffer, error) {
	var format pcm.Format
	switch d.BitDepth {
	case 32:
		format = pcm.FormatFloat32LE
	case 64:
		format = pcm.FormatFloat64LE
	default:
		return nil, fmt.Errorf("unsupported float bit depth: %d", d.BitDepth)
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("unable to find the PCM data: %w", err)
	}
	if d.PCMChunk == nil {
		return nil, fmt.Errorf("PCM chunk not found")
	}
	data, err := io.ReadAll(io.LimitReader(d.PCMChunk, int64(d.PCMSize)))
	if err != nil {
		return nil, fmt.Errorf("unable to read the PCM data: %w", err)
	}

	channels := audio.Channel(d.NumChans)
	frameSize := int(format.Size()) * int(channels)
	if tail := len(data) % frameSize; tail != 0 {
		logger.Warnf(ctx, "dropping %d bytes of an incomplete trailing frame", tail)
		data = data[:len(data)-tail]
	}
	logger.Tracef(ctx, "WAV: %d Hz, %d channels, %s, %d bytes", d.SampleRate, channels, format, len(data))

	samples, err := pcm.Decode(format, channels, data)
	if err != nil {
		return nil, err
	}
	return audio.NewSampleBuffer(audio.SampleRate(d.SampleRate), samples...)
}
