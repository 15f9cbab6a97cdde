package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"strings"
	"time"

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
	"github.com/xaionaro-go/audiolat/pkg/progress"
	"github.com/xaionaro-go/audiolat/pkg/report"
	"github.com/xaionaro-go/audiolat/pkg/scanner"
	"github.com/xaionaro-go/audiolat/pkg/report/store"
	"github.com/xaionaro-go/observability"
)

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	startSignalPath := pflag.String("start-signal", "begin_signal.wav", "the start signal reference")
	chirpPath := pflag.String("chirp", "chirp2_48k_300ms.wav", "the response reference")
	startThreshold := pflag.Int("start-threshold", 90, "confidence threshold of the start signal (0..100)")
	chirpThreshold := pflag.Int("chirp-threshold", 20, "confidence threshold of the response (0..100)")
	outputDir := pflag.StringP("output", "o", "latency", "directory for the CSV files")
	label := pflag.StringP("label", "l", "capture", "label of the run, used in the file names and in the database")
	dbPath := pflag.String("db", "", "store the results in this sqlite database")
	listRuns := pflag.Bool("list-runs", false, "print the runs stored in --db (of --label, if set explicitly) and exit")
	resample := pflag.Bool("resample", true, "resample the references to the sample rate of the capture")
	showProgress := pflag.Bool("progress", true, "show progress bars")
	matcherKind := scanner.MatcherKindFFT
	pflag.Var(&matcherKind, "matcher", "correlation implementation: fft, inplacefft or direct")
	gain := pflag.Float64("gain", 0, "amplify the capture by this factor before correlating (0 to disable)")
	cfg := latencycheck.DefaultConfig()
	pflag.DurationVar(&cfg.Pairing.MinGap, "min-gap", cfg.Pairing.MinGap, "the minimal round trip delay")
	pflag.DurationVar(&cfg.Pairing.MaxGap, "max-gap", cfg.Pairing.MaxGap, "the maximal round trip delay")
	fileOpts := audiofile.DefaultOptions()
	pflag.Uint32Var((*uint32)(&fileOpts.SampleRate), "raw-sample-rate", uint32(fileOpts.SampleRate), "sample rate of raw PCM captures")
	pflag.Uint16Var((*uint16)(&fileOpts.Channels), "raw-channels", uint16(fileOpts.Channels), "channels of raw PCM captures")
	pflag.Var(&fileOpts.Format, "raw-format", "sample format of raw PCM captures")
	pflag.Parse()
	cfg.Scanner.Matcher = matcherKind
	cfg.Scanner.Gain = *gain

	if pflag.NArg() == 0 && !*listRuns {
		panic(fmt.Errorf("expected at least one capture file as a positional argument"))
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

	if *listRuns {
		if *dbPath == "" {
			panic(fmt.Errorf("--list-runs requires --db"))
		}
		db, err := store.Open(*dbPath)
		assertNoError(err)
		defer db.Close()
		filter := ""
		if pflag.CommandLine.Changed("label") {
			filter = *label
		}
		assertNoError(printRuns(ctx, db, filter))
		return
	}

	startSignal, err := audiofile.LoadFile(ctx, *startSignalPath, fileOpts)
	assertNoError(err)
	chirp, err := audiofile.LoadFile(ctx, *chirpPath, fileOpts)
	assertNoError(err)
	refs := []latencycheck.Reference{
		latencycheck.NewReference(filepath.Base(*startSignalPath), startSignal),
		latencycheck.NewReference(filepath.Base(*chirpPath), chirp),
	}
	latencycheck.ApplyThresholds(refs, []int{*startThreshold, *chirpThreshold})
	cfg.Resample = *resample

	assertNoError(os.MkdirAll(*outputDir, 0o755))

	var db *store.Store
	if *dbPath != "" {
		db, err = store.Open(*dbPath)
		assertNoError(err)
		defer db.Close()
	}

	var mErr *multierror.Error
	for _, capturePath := range pflag.Args() {
		if err := processCapture(ctx, capturePath, refs, cfg, fileOpts, *outputDir, *label, db, *showProgress); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("'%s': %w", capturePath, err))
		}
	}
	if err := mErr.ErrorOrNil(); err != nil {
		logger.Errorf(ctx, "%v", err)
		belt.Flush(ctx)
		os.Exit(1)
	}
}

func processCapture(
	ctx context.Context,
	capturePath string,
	refs []latencycheck.Reference,
	cfg latencycheck.Config,
	fileOpts audiofile.Options,
	outputDir string,
	label string,
	db *store.Store,
	showProgress bool,
) error {
	capture, err := audiofile.LoadFile(ctx, capturePath, fileOpts)
	if err != nil {
		return err
	}

	var bars *progress.Bars
	if showProgress {
		bars = progress.New(os.Stderr)
		cfg.OnProgress = bars.Update
	}
	result, err := latencycheck.RoundTrip(ctx, capture, refs, cfg)
	bars.Wait()
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%s_%d_%s", label, capture.SampleRate, strings.TrimSuffix(filepath.Base(capturePath), filepath.Ext(capturePath)))
	if err := writeCSV(filepath.Join(outputDir, "signals_"+name+".csv"), func(f *os.File) error {
		return report.WriteMarkers(f, result.Markers)
	}); err != nil {
		return err
	}
	resultsPath := filepath.Join(outputDir, "results_"+name+".csv")
	if err := writeCSV(resultsPath, func(f *os.File) error {
		return report.WritePairs(f, result.Pairs)
	}); err != nil {
		return err
	}

	for ch, levels := range result.Levels {
		logger.Infof(ctx, "channel %d: rms %.1f dB, peak %.1f dB, crest %.1f dB, bias %.1f dB", ch, levels.RMSDB, levels.PeakDB, levels.CrestDB, levels.BiasDB)
	}
	fmt.Printf("\n***\nfilename: %s\naverage roundtrip delay: %.3f sec, stddev: %.3f sec\nnumbers of samples collected: %d\n***\n",
		resultsPath, result.Summary.Mean, result.Summary.StdDev, result.Summary.SampleCount)

	if db != nil {
		id, err := db.SaveRun(ctx, capturePath, label, result.LeadingLabel, result.Summary, result.Pairs)
		if err != nil {
			return fmt.Errorf("unable to store the results: %w", err)
		}
		logger.Infof(ctx, "stored as run %s", id)
	}
	return nil
}

func printRuns(ctx context.Context, db *store.Store, label string) error {
	runs, err := db.Runs(ctx, label)
	if err != nil {
		return err
	}
	summaries := make([]report.NamedSummary, 0, len(runs))
	for _, run := range runs {
		summary, err := db.Summary(ctx, run.ID)
		if err != nil && !errors.Is(err, latency.ErrNoSamples) {
			return err
		}
		summaries = append(summaries, report.NamedSummary{
			Name:    fmt.Sprintf("%s %s %s %s", run.CreatedAt.Format(time.RFC3339), run.ID, run.Label, run.Capture),
			Summary: summary,
		})
	}
	return report.WriteSummaries(os.Stdout, summaries)
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
