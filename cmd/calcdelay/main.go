package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/audiolat/pkg/latency"
	"github.com/xaionaro-go/audiolat/pkg/latencycheck"
	"github.com/xaionaro-go/audiolat/pkg/pairing"
	"github.com/xaionaro-go/audiolat/pkg/report"
	"github.com/xaionaro-go/observability"
)

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	outputPath := pflag.StringP("output", "o", "", "write the summaries as CSV to this path (default: stdout)")
	pairingCfg := pairing.DefaultConfig()
	pflag.DurationVar(&pairingCfg.MinGap, "min-gap", pairingCfg.MinGap, "the minimal delay between a start signal and its response")
	pflag.DurationVar(&pairingCfg.MaxGap, "max-gap", pairingCfg.MaxGap, "the maximal delay between a start signal and its response")
	pflag.Parse()

	if pflag.NArg() == 0 {
		panic(fmt.Errorf("expected at least one markers CSV file as a positional argument"))
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

	var (
		mErr      *multierror.Error
		summaries []report.NamedSummary
	)
	for _, path := range pflag.Args() {
		summary, err := calcDelay(ctx, path, pairingCfg)
		if err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("'%s': %w", path, err))
			continue
		}
		if summary.SampleCount == 0 {
			logger.Warnf(ctx, "no data in '%s'", path)
		}
		logger.Infof(ctx, "filename: %s %s", path, summary)
		summaries = append(summaries, report.NamedSummary{Name: path, Summary: summary})
	}

	var out io.Writer = os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		assertNoError(err)
		defer f.Close()
		out = f
	}
	assertNoError(report.WriteSummaries(out, summaries))

	if err := mErr.ErrorOrNil(); err != nil {
		logger.Errorf(ctx, "%v", err)
	}
}

func calcDelay(
	ctx context.Context,
	path string,
	cfg pairing.Config,
) (latency.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return latency.Summary{}, err
	}
	defer f.Close()

	markers, err := report.ReadMarkers(f)
	if err != nil {
		return latency.Summary{}, err
	}
	_, _, summary, err := latencycheck.PairMarkers(ctx, markers, cfg)
	return summary, err
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
