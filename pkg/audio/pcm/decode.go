package pcm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xaionaro-go/audiolat/pkg/audio"
)

// DecodeSample converts a single sample at the beginning of p into a float64
// in the range [-1.0, 1.0].
func DecodeSample(f Format, p []byte) (float64, error) {
	if uint(len(p)) < f.Size() || f.Size() == 0 {
		return 0, fmt.Errorf("cannot decode a %s sample from %d bytes", f, len(p))
	}
	switch f {
	case FormatU8:
		return (float64(p[0]) - 128) / 128, nil
	case FormatS16LE:
		return float64(int16(binary.LittleEndian.Uint16(p))) / 32768, nil
	case FormatS16BE:
		return float64(int16(binary.BigEndian.Uint16(p))) / 32768, nil
	case FormatS24LE:
		return float64(signExtend24(uint32(p[0])|uint32(p[1])<<8|uint32(p[2])<<16)) / 8388608, nil
	case FormatS24BE:
		return float64(signExtend24(uint32(p[2])|uint32(p[1])<<8|uint32(p[0])<<16)) / 8388608, nil
	case FormatS32LE:
		return float64(int32(binary.LittleEndian.Uint32(p))) / 2147483648, nil
	case FormatS32BE:
		return float64(int32(binary.BigEndian.Uint32(p))) / 2147483648, nil
	case FormatS64LE:
		return float64(int64(binary.LittleEndian.Uint64(p))) / 9223372036854775808, nil
	case FormatS64BE:
		return float64(int64(binary.BigEndian.Uint64(p))) / 9223372036854775808, nil
	case FormatFloat32LE:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p))), nil
	case FormatFloat32BE:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(p))), nil
	case FormatFloat64LE:
		return math.Float64frombits(binary.LittleEndian.Uint64(p)), nil
	case FormatFloat64BE:
		return math.Float64frombits(binary.BigEndian.Uint64(p)), nil
	default:
		return 0, fmt.Errorf("unknown format: %v", f)
	}
}

func signExtend24(v uint32) int32 {
	val := int32(v)
	if val&0x800000 != 0 {
		val |= -16777216
	}
	return val
}

// Decode converts interleaved PCM bytes into planar normalized samples,
// one slice per channel.
func Decode(f Format, channels audio.Channel, data []byte) ([][]float64, error) {
	if channels == 0 {
		return nil, fmt.Errorf("channels must be greater than 0")
	}
	sampleSize := int(f.Size())
	if sampleSize == 0 {
		return nil, fmt.Errorf("unsupported PCM format: %v", f)
	}
	frameSize := sampleSize * int(channels)
	if len(data)%frameSize != 0 {
		return nil, fmt.Errorf("expected a message length that is a multiple of %d, but received %d", frameSize, len(data))
	}

	samplesPerChan := len(data) / frameSize
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, samplesPerChan)
	}
	for samplePos := 0; samplePos < samplesPerChan; samplePos++ {
		frame := data[samplePos*frameSize:]
		for ch := 0; ch < int(channels); ch++ {
			v, err := DecodeSample(f, frame[ch*sampleSize:])
			if err != nil {
				return nil, fmt.Errorf("unable to decode sample %d of channel %d: %w", samplePos, ch, err)
			}
			out[ch][samplePos] = v
		}
	}
	return out, nil
}

// Deinterleave splits interleaved float samples into per-channel slices.
// Trailing samples that do not form a complete frame are dropped.
func Deinterleave(channels audio.Channel, interleaved []float64) [][]float64 {
	if channels == 0 {
		return nil
	}
	samplesPerChan := len(interleaved) / int(channels)
	out := make([][]float64, channels)
	for ch := range out {
		samples := make([]float64, samplesPerChan)
		for samplePos := range samples {
			samples[samplePos] = interleaved[samplePos*int(channels)+ch]
		}
		out[ch] = samples
	}
	return out
}
