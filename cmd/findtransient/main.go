package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/audiolat/pkg/audiofile"
	_ "github.com/xaionaro-go/audiolat/pkg/audiofile/implementations/ogg"
	_ "github.com/xaionaro-go/audiolat/pkg/audiofile/implementations/raw"
	_ "github.com/xaionaro-go/audiolat/pkg/audiofile/implementations/wav"
	"github.com/xaionaro-go/audiolat/pkg/latency"
	"github.com/xaionaro-go/audiolat/pkg/latencycheck"
	"github.com/xaionaro-go/audiolat/pkg/level"
	"github.com/xaionaro-go/audiolat/pkg/pairing"
	"github.com/xaionaro-go/audiolat/pkg/progress"
	"github.com/xaionaro-go/audiolat/pkg/report"
	"github.com/xaionaro-go/audiolat/pkg/scanner"
	"github.com/xaionaro-go/observability"
)

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	markerPath := pflag.StringP("marker", "m", "", "the reference marker")
	leading := pflag.BoolP("leading", "l", false, "the marker leads: look for transients after the marker instead of before it")
	threshold := pflag.IntP("threshold", "t", 90, "marker confidence threshold (0..100)")
	transientThreshold := pflag.Float64("transient-threshold", 6, "transient threshold in dB below the peak of the file")
	resample := pflag.Bool("resample", false, "resample the marker to the sample rate of the captures")
	showProgress := pflag.Bool("progress", true, "show progress bars")
	matcherKind := scanner.MatcherKindFFT
	pflag.Var(&matcherKind, "matcher", "correlation implementation: fft, inplacefft or direct")
	gain := pflag.Float64("gain", 0, "amplify the capture by this factor before correlating (0 to disable)")
	fileOpts := audiofile.DefaultOptions()
	pflag.Uint32Var((*uint32)(&fileOpts.SampleRate), "raw-sample-rate", uint32(fileOpts.SampleRate), "sample rate of raw PCM files")
	pflag.Uint16Var((*uint16)(&fileOpts.Channels), "raw-channels", uint16(fileOpts.Channels), "channels of raw PCM files")
	pflag.Var(&fileOpts.Format, "raw-format", "sample format of raw PCM files")
	pflag.Parse()

	if *markerPath == "" || pflag.NArg() == 0 {
		panic(fmt.Errorf("expected --marker and at least one file to analyze as a positional argument"))
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

	markerBuf, err := audiofile.LoadFile(ctx, *markerPath, fileOpts)
	assertNoError(err)
	marker := latencycheck.NewReference(filepath.Base(*markerPath), markerBuf)
	marker.Threshold = *threshold

	direction := pairing.LeadingBefore
	if *leading {
		direction = pairing.LeadingAfter
	}
	cfg := latencycheck.TransientConfig(direction)
	cfg.Scanner.Matcher = matcherKind
	cfg.Scanner.Gain = *gain
	cfg.Transient = cfg.Transient.WithThresholdBelowPeak(*transientThreshold)
	cfg.Resample = *resample

	var (
		mErr      *multierror.Error
		summaries []report.NamedSummary
	)
	for _, inputPath := range pflag.Args() {
		logger.Infof(ctx, "** Check %s", inputPath)
		summary, err := processFile(ctx, inputPath, marker, cfg, fileOpts, *showProgress)
		if err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("'%s': %w", inputPath, err))
			continue
		}
		logger.Infof(ctx, "%s: %s", inputPath, summary)
		summaries = append(summaries, report.NamedSummary{Name: inputPath, Summary: summary})
	}

	assertNoError(report.WriteSummaries(os.Stdout, summaries))
	if err := mErr.ErrorOrNil(); err != nil {
		logger.Errorf(ctx, "%v", err)
		belt.Flush(ctx)
		os.Exit(1)
	}
}

func processFile(
	ctx context.Context,
	inputPath string,
	marker latencycheck.Reference,
	cfg latencycheck.Config,
	fileOpts audiofile.Options,
	showProgress bool,
) (latency.Summary, error) {
	capture, err := audiofile.LoadFile(ctx, inputPath, fileOpts)
	if err != nil {
		return latency.Summary{}, err
	}

	var bars *progress.Bars
	if showProgress {
		bars = progress.New(os.Stderr)
		cfg.OnProgress = bars.Update
	}
	result, err := latencycheck.Transients(ctx, capture, marker, cfg)
	bars.Wait()
	if err != nil {
		return latency.Summary{}, err
	}

	var levels level.Levels
	if ch := int(cfg.Transient.Channel); ch < len(result.Levels) {
		levels = result.Levels[ch]
	}
	if err := writeCSV(inputPath+".transients.csv", func(f *os.File) error {
		return report.WriteTransients(f, result.Transients, levels)
	}); err != nil {
		return latency.Summary{}, err
	}
	if err := writeCSV(inputPath+".peaks_match.csv", func(f *os.File) error {
		return report.WritePairs(f, result.Pairs)
	}); err != nil {
		return latency.Summary{}, err
	}
	return result.Summary, nil
}

func writeCSV(path string, write func(f *os.File) error) (_err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create '%s': %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil && _err == nil {
			_err = err
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("unable to write '%s': %w", path, err)
	}
	return nil
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
