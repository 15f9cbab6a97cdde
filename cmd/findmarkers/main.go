package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/audiolat/pkg/audiofile"
	_ "github.com/xaionaro-go/audiolat/pkg/audiofile/implementations/ogg"
	_ "github.com/xaionaro-go/audiolat/pkg/audiofile/implementations/raw"
	_ "github.com/xaionaro-go/audiolat/pkg/audiofile/implementations/wav"
	"github.com/xaionaro-go/audiolat/pkg/latencycheck"
	"github.com/xaionaro-go/audiolat/pkg/progress"
	"github.com/xaionaro-go/audiolat/pkg/report"
	"github.com/xaionaro-go/audiolat/pkg/scanner"
	"github.com/xaionaro-go/observability"
)

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	inputPath := pflag.StringP("input", "i", "", "the captured recording to search in")
	thresholdsFlag := pflag.StringP("threshold", "t", "50", "comma-separated confidence thresholds (0..100), one per reference in order; the last one is reused")
	limitMarker := pflag.Float64("limit-marker", 0, "use only the first N seconds of every reference (0 to disable)")
	outputPath := pflag.StringP("output", "o", "", "output CSV path (default: <input>.csv)")
	resample := pflag.Bool("resample", false, "resample the references to the sample rate of the input")
	showProgress := pflag.Bool("progress", true, "show progress bars")
	matcherKind := scanner.MatcherKindFFT
	pflag.Var(&matcherKind, "matcher", "correlation implementation: fft, inplacefft or direct")
	gain := pflag.Float64("gain", 0, "amplify the capture by this factor before correlating (0 to disable)")
	fileOpts := audiofile.DefaultOptions()
	pflag.Uint32Var((*uint32)(&fileOpts.SampleRate), "raw-sample-rate", uint32(fileOpts.SampleRate), "sample rate of raw PCM files")
	pflag.Uint16Var((*uint16)(&fileOpts.Channels), "raw-channels", uint16(fileOpts.Channels), "channels of raw PCM files")
	pflag.Var(&fileOpts.Format, "raw-format", "sample format of raw PCM files")
	pflag.Parse()

	if *inputPath == "" || pflag.NArg() == 0 {
		panic(fmt.Errorf("expected --input and at least one reference file as a positional argument"))
	}

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func() { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	thresholds, err := latencycheck.ParseThresholds(*thresholdsFlag)
	assertNoError(err)

	capture, err := audiofile.LoadFile(ctx, *inputPath, fileOpts)
	assertNoError(err)

	refs, err := loadReferences(ctx, pflag.Args(), fileOpts, thresholds)
	assertNoError(err)

	cfg := latencycheck.DefaultConfig()
	cfg.Scanner.Matcher = matcherKind
	cfg.Scanner.Gain = *gain
	cfg.LimitMarker = time.Duration(*limitMarker * float64(time.Second))
	cfg.Resample = *resample
	var bars *progress.Bars
	if *showProgress {
		bars = progress.New(os.Stderr)
		cfg.OnProgress = bars.Update
	}

	markers, err := latencycheck.FindMarkers(ctx, capture, refs, cfg)
	bars.Wait()
	if err != nil {
		logger.Errorf(ctx, "%v", err)
	}

	if *outputPath == "" {
		*outputPath = *inputPath + ".csv"
	}
	f, err := os.Create(*outputPath)
	assertNoError(err)
	defer f.Close()
	assertNoError(report.WriteMarkers(f, markers))
	logger.Infof(ctx, "found %d markers, written to '%s'", len(markers), *outputPath)
}

func loadReferences(
	ctx context.Context,
	paths []string,
	fileOpts audiofile.Options,
	thresholds []int,
) ([]latencycheck.Reference, error) {
	refs := make([]latencycheck.Reference, 0, len(paths))
	for _, refPath := range paths {
		logger.Infof(ctx, "** Check for %s", refPath)
		buf, err := audiofile.LoadFile(ctx, refPath, fileOpts)
		if err != nil {
			return nil, fmt.Errorf("unable to load reference '%s': %w", refPath, err)
		}
		refs = append(refs, latencycheck.NewReference(filepath.Base(refPath), buf))
	}
	latencycheck.ApplyThresholds(refs, thresholds)
	return refs, nil
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
