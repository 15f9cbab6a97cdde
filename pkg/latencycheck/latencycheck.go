// Package latencycheck composes the analyzers into the two measurement
// pipelines: round trip (several reference markers, one of them being the
// start signal) and transient (a marker paired with loud onsets of any
// waveform).
package latencycheck

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/audiolat/pkg/audio"
	"github.com/xaionaro-go/audiolat/pkg/audio/resampler"
	"github.com/xaionaro-go/audiolat/pkg/latency"
	"github.com/xaionaro-go/audiolat/pkg/level"
	"github.com/xaionaro-go/audiolat/pkg/pairing"
	"github.com/xaionaro-go/audiolat/pkg/scanner"
	"github.com/xaionaro-go/audiolat/pkg/transient"
)

// TransientLabel is the label of the transient events in the pairs.
const TransientLabel = "transient"

type Reference struct {
	Label     string
	Buffer    *audio.SampleBuffer
	Threshold int
}

func NewReference(label string, buf *audio.SampleBuffer) Reference {
	return Reference{
		Label:     label,
		Buffer:    buf,
		Threshold: scanner.DefaultThreshold,
	}
}

type ProgressFunc func(stage string, percent float64)

type Config struct {
	// Scanner is the template for scanning every reference; its Threshold,
	// Label and OnProgress are overridden per reference.
	Scanner   scanner.Config
	Transient transient.Config
	Pairing   pairing.Config

	// LimitMarker keeps only the beginning of every reference, if positive.
	LimitMarker time.Duration

	// Resample converts references to the capture sample rate instead of
	// failing on a mismatch.
	Resample bool

	OnProgress ProgressFunc
}

func DefaultConfig() Config {
	return Config{
		Scanner:   scanner.DefaultConfig(),
		Transient: transient.DefaultConfig(),
		Pairing:   pairing.DefaultConfig(),
	}
}

// TransientConfig is DefaultConfig with the pairing window used for transient
// measurements in the given direction: a transient expected before the marker
// must be at least 5ms away from it, one expected after it at least 10ms.
func TransientConfig(direction pairing.Direction) Config {
	cfg := DefaultConfig()
	cfg.Pairing.Direction = direction
	switch direction {
	case pairing.LeadingAfter:
		cfg.Pairing.MinGap = 10 * time.Millisecond
	default:
		cfg.Pairing.MinGap = 5 * time.Millisecond
	}
	return cfg
}

type RoundTripResult struct {
	// Markers of all the references ordered by time.
	Markers      []scanner.Marker
	LeadingLabel string
	Pairs        []pairing.MatchedPair
	Summary      latency.Summary
	Levels       []level.Levels
}

type TransientsResult struct {
	Markers    []scanner.Marker
	Transients []transient.Event
	Pairs      []pairing.MatchedPair
	Summary    latency.Summary
	Levels     []level.Levels
}

func (cfg Config) progress(stage string) func(float64) {
	if cfg.OnProgress == nil {
		return nil
	}
	return func(percent float64) {
		cfg.OnProgress(stage, percent)
	}
}

func (cfg Config) prepareReference(
	ctx context.Context,
	ref Reference,
	sampleRate audio.SampleRate,
) (*audio.SampleBuffer, error) {
	if ref.Buffer == nil {
		return nil, fmt.Errorf("reference '%s' has no samples", ref.Label)
	}
	buf := ref.Buffer.Mono()
	if buf.SampleRate != sampleRate && cfg.Resample {
		logger.Debugf(ctx, "resampling '%s' from %d to %d", ref.Label, buf.SampleRate, sampleRate)
		var err error
		buf, err = resampler.ResampleBuffer(buf, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("unable to resample '%s': %w", ref.Label, err)
		}
	}
	return buf.Truncate(cfg.LimitMarker), nil
}

// FindMarkers scans capture for every reference and returns all the markers
// ordered by time. A failure of one reference does not stop the others; all
// the failures are returned together.
func FindMarkers(
	ctx context.Context,
	capture *audio.SampleBuffer,
	refs []Reference,
	cfg Config,
) ([]scanner.Marker, error) {
	var (
		markers []scanner.Marker
		mErr    *multierror.Error
	)
	for _, ref := range refs {
		probe, err := cfg.prepareReference(ctx, ref, capture.SampleRate)
		if err != nil {
			mErr = multierror.Append(mErr, err)
			continue
		}

		scanCfg := cfg.Scanner
		scanCfg.Threshold = ref.Threshold
		scanCfg.Label = ref.Label
		scanCfg.OnProgress = cfg.progress(ref.Label)
		found, err := scanner.Scan(ctx, capture, probe, scanCfg)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			mErr = multierror.Append(mErr, fmt.Errorf("unable to scan for '%s': %w", ref.Label, err))
			continue
		}
		markers = append(markers, found...)
	}
	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].SampleOffset < markers[j].SampleOffset
	})
	return markers, mErr.ErrorOrNil()
}

func summarize(ctx context.Context, pairs []pairing.MatchedPair) (latency.Summary, error) {
	summary, err := latency.Summarize(pairs)
	if errors.Is(err, latency.ErrNoSamples) {
		logger.Infof(ctx, "no matching pairs")
		return summary, nil
	}
	return summary, err
}

// PairMarkers pairs the markers of the most frequent label (the start
// signal) with the markers of all the other labels and summarizes the
// delays. If there is only one label its occurrences are paired with each
// other. Having no pairs is not an error: the summary just has no samples.
func PairMarkers(
	ctx context.Context,
	markers []scanner.Marker,
	cfg pairing.Config,
) (string, []pairing.MatchedPair, latency.Summary, error) {
	leadingLabel, leading, trailing := pairing.SplitByLeadingLabel(markers)
	logger.Debugf(ctx, "leading label: '%s' (%d), trailing markers: %d", leadingLabel, len(leading), len(trailing))
	if len(trailing) == 0 {
		// a single reference: every occurrence is the echo of a previous one
		trailing = leading
	}

	pairs, err := pairing.Pair(pairing.FromMarkers(leading), pairing.FromMarkers(trailing), cfg)
	if err != nil {
		return "", nil, latency.Summary{}, fmt.Errorf("unable to pair: %w", err)
	}
	summary, err := summarize(ctx, pairs)
	if err != nil {
		return "", nil, latency.Summary{}, err
	}
	return leadingLabel, pairs, summary, nil
}

// RoundTrip finds the markers of every reference in capture, treats the most
// frequent one as the start signal and measures the delay of the others
// relative to it. See PairMarkers.
func RoundTrip(
	ctx context.Context,
	capture *audio.SampleBuffer,
	refs []Reference,
	cfg Config,
) (*RoundTripResult, error) {
	if capture == nil {
		return nil, fmt.Errorf("capture is nil")
	}
	logger.Tracef(ctx, "RoundTrip config: %s", spew.Sdump(cfg))

	markers, err := FindMarkers(ctx, capture, refs, cfg)
	if err != nil {
		return nil, err
	}

	leadingLabel, pairs, summary, err := PairMarkers(ctx, markers, cfg.Pairing)
	if err != nil {
		return nil, err
	}

	levels, err := level.Analyze(ctx, capture)
	if err != nil {
		return nil, fmt.Errorf("unable to measure the levels: %w", err)
	}

	return &RoundTripResult{
		Markers:      markers,
		LeadingLabel: leadingLabel,
		Pairs:        pairs,
		Summary:      summary,
		Levels:       levels,
	}, nil
}

// Transients finds marker and the transients in capture and pairs every
// marker with the closest transient. With pairing.LeadingBefore the
// transient is expected before the marker, with pairing.LeadingAfter after it.
func Transients(
	ctx context.Context,
	capture *audio.SampleBuffer,
	marker Reference,
	cfg Config,
) (*TransientsResult, error) {
	if capture == nil {
		return nil, fmt.Errorf("capture is nil")
	}
	logger.Tracef(ctx, "Transients config: %s", spew.Sdump(cfg))

	markers, err := FindMarkers(ctx, capture, []Reference{marker}, cfg)
	if err != nil {
		return nil, err
	}

	detectorCfg := cfg.Transient
	detectorCfg.OnProgress = cfg.progress(TransientLabel)
	detector, err := transient.NewDetector(detectorCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the transient detector: %w", err)
	}
	transients, err := detector.Detect(ctx, capture)
	if err != nil {
		return nil, fmt.Errorf("unable to detect transients: %w", err)
	}

	pairs, err := pairing.Pair(
		pairing.FromTransients(transients, TransientLabel),
		pairing.FromMarkers(markers),
		cfg.Pairing,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to pair: %w", err)
	}
	summary, err := summarize(ctx, pairs)
	if err != nil {
		return nil, err
	}

	levels, err := level.Analyze(ctx, capture)
	if err != nil {
		return nil, fmt.Errorf("unable to measure the levels: %w", err)
	}

	return &TransientsResult{
		Markers:    markers,
		Transients: transients,
		Pairs:      pairs,
		Summary:    summary,
		Levels:     levels,
	}, nil
}
