package pcm

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

type Format uint

const (
	FormatUndefined = Format(iota)
	FormatU8
	FormatS16LE
	FormatS16BE
	FormatS24LE
	FormatS24BE
	FormatS32LE
	FormatS32BE
	FormatS64LE
	FormatS64BE
	FormatFloat32LE
	FormatFloat32BE
	FormatFloat64LE
	FormatFloat64BE
	endOfFormat
)

var _ pflag.Value = (*Format)(nil)

// Size returns the size of a single sample in bytes.
func (f Format) Size() uint {
	switch f {
	case FormatU8:
		return 1
	case FormatS16LE, FormatS16BE:
		return 2
	case FormatS24LE, FormatS24BE:
		return 3
	case FormatS32LE, FormatS32BE, FormatFloat32LE, FormatFloat32BE:
		return 4
	case FormatS64LE, FormatS64BE, FormatFloat64LE, FormatFloat64BE:
		return 8
	default:
		return 0
	}
}

func (f Format) String() string {
	switch f {
	case FormatUndefined:
		return "undefined"
	case FormatU8:
		return "u8"
	case FormatS16LE:
		return "s16le"
	case FormatS16BE:
		return "s16be"
	case FormatS24LE:
		return "s24le"
	case FormatS24BE:
		return "s24be"
	case FormatS32LE:
		return "s32le"
	case FormatS32BE:
		return "s32be"
	case FormatS64LE:
		return "s64le"
	case FormatS64BE:
		return "s64be"
	case FormatFloat32LE:
		return "f32le"
	case FormatFloat32BE:
		return "f32be"
	case FormatFloat64LE:
		return "f64le"
	case FormatFloat64BE:
		return "f64be"
	default:
		return fmt.Sprintf("unknown_format_%d", uint(f))
	}
}

func (f *Format) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	for candidate := FormatU8; candidate < endOfFormat; candidate++ {
		if candidate.String() == s {
			*f = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown PCM format '%s'", s)
}

func (f *Format) Type() string {
	return "pcm-format"
}
