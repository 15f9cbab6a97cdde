package wav

import (
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/xaionaro-go/audiolat/pkg/audio"
)

const DefaultBitDepth = 16

// Encode writes buf as an integer PCM WAV file. Samples out of [-1.0, 1.0]
// are clipped.
func Encode(w io.WriteSeeker, buf *audio.SampleBuffer, bitDepth int) error {
	if buf.Channels() == 0 || buf.SampleRate == 0 {
		return fmt.Errorf("an empty buffer cannot be encoded")
	}
	if bitDepth == 0 {
		bitDepth = DefaultBitDepth
	}
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}

	channels := int(buf.Channels())
	maxValue := float64(int64(1)<<(bitDepth-1)) - 1
	minValue := -maxValue - 1
	data := make([]int, buf.Len()*channels)
	for ch, samples := range buf.Samples {
		for idx, v := range samples {
			data[idx*channels+ch] = int(math.Max(minValue, math.Min(maxValue, math.Round(v*(maxValue+1)))))
		}
	}

	enc := gowav.NewEncoder(w, int(buf.SampleRate), bitDepth, channels, formatPCM)
	err := enc.Write(&goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  int(buf.SampleRate),
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	})
	if err != nil {
		return fmt.Errorf("unable to write the samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("unable to finalize the WAV file: %w", err)
	}
	return nil
}
