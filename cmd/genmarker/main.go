package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/audiolat/pkg/audio"
	"github.com/xaionaro-go/audiolat/pkg/audiofile/implementations/wav"
	"github.com/xaionaro-go/audiolat/pkg/marker"
)

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	sampleRate := pflag.Uint32P("sample-rate", "r", 48000, "sample rate in Hz")
	defaultCfg := marker.DefaultChirpConfig(48000)
	duration := pflag.DurationP("duration", "d", defaultCfg.Duration, "duration of the chirp")
	startFreq := pflag.Float64("start-freq", defaultCfg.StartFreq, "start frequency in Hz")
	endFreq := pflag.Float64("end-freq", 0, "end frequency in Hz (default: 8kHz or 90% of Nyquist, whichever is lower)")
	amplitude := pflag.Float64("amplitude", defaultCfg.Amplitude, "peak amplitude (0..1)")
	fade := pflag.Duration("fade", defaultCfg.Fade, "fade-in/fade-out duration")
	bitDepth := pflag.Int("bit-depth", wav.DefaultBitDepth, "bit depth of the output: 16, 24 or 32")
	pflag.Parse()

	if pflag.NArg() != 1 {
		panic(fmt.Errorf("expected exactly one positional argument: the output WAV file path (e.g. chirp2_48k_300ms.wav)"))
	}
	outputPath := pflag.Arg(0)

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	cfg := marker.DefaultChirpConfig(audio.SampleRate(*sampleRate))
	cfg.Duration = *duration
	cfg.StartFreq = *startFreq
	if *endFreq > 0 {
		cfg.EndFreq = *endFreq
	}
	cfg.Amplitude = *amplitude
	cfg.Fade = *fade
	logger.Tracef(ctx, "chirp config: %s", spew.Sdump(cfg))

	buf, err := marker.Chirp(cfg)
	assertNoError(err)

	f, err := os.Create(outputPath)
	assertNoError(err)
	defer f.Close()
	assertNoError(wav.Encode(f, buf, *bitDepth))
	fi, err := f.Stat()
	assertNoError(err)

	logger.Infof(ctx, "written %s (%v, %d Hz) to '%s'", humanize.Bytes(uint64(fi.Size())), buf.Duration().Round(time.Millisecond), buf.SampleRate, outputPath)
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
