// Package scanner finds every occurrence of a short reference waveform (a
// marker) inside a long signal.
//
// The signal is split into overlapping windows of len(probe)+step samples
// and the window start advances by step, so every alignment of the probe is
// covered by at least one window. Each window is handed to a matcher; hits
// above the confidence threshold become markers.
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/audiolat/pkg/audio"
	"github.com/xaionaro-go/audiolat/pkg/matcher"
)

const (
	DefaultStep      = 100 * time.Millisecond
	DefaultThreshold = 50
)

type Marker struct {
	SampleOffset int64
	Time         float64 // seconds, SampleOffset / sample rate
	Confidence   int     // 0..100
	Label        string
}

// ProgressFunc receives the percentage (0..100) of the signal scanned so far.
type ProgressFunc func(percent float64)

type Config struct {
	// Threshold is the confidence a match must exceed to become a marker.
	Threshold int

	// Step is the deduplication window and the window advance. Matches
	// closer than Step to the previous marker are treated as the same
	// occurrence.
	Step time.Duration

	// Gain is applied to the signal before correlating; zero disables it.
	Gain float64

	// Channel is the signal channel to scan.
	Channel audio.Channel

	// Label is copied into every emitted marker.
	Label string

	// Matcher is used if MatcherFactory is not set.
	Matcher        MatcherKind
	MatcherFactory matcher.Factory

	OnProgress ProgressFunc
}

func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		Step:      DefaultStep,
	}
}

type Scanner struct {
	Config
}

func New(cfg Config) (*Scanner, error) {
	if cfg.Threshold < 0 || cfg.Threshold > 100 {
		return nil, fmt.Errorf("threshold must be within 0..100: got %d", cfg.Threshold)
	}
	if cfg.Step <= 0 {
		cfg.Step = DefaultStep
	}
	if cfg.MatcherFactory == nil && cfg.Matcher >= endOfMatcherKind {
		return nil, fmt.Errorf("unknown matcher kind: %v", cfg.Matcher)
	}
	return &Scanner{Config: cfg}, nil
}

// Scan returns the markers found in signal, ordered by SampleOffset.
//
// Degenerate inputs (an empty probe or signal, a probe longer than the
// signal) produce no markers and no error. If ctx is cancelled the partial
// result is discarded and ctx.Err() is returned.
func (s *Scanner) Scan(
	ctx context.Context,
	signal *audio.SampleBuffer,
	probe *audio.SampleBuffer,
) ([]Marker, error) {
	if signal == nil || probe == nil {
		return nil, nil
	}
	if signal.SampleRate != probe.SampleRate {
		return nil, fmt.Errorf("sample rates of the signal and the probe differ: %d != %d", signal.SampleRate, probe.SampleRate)
	}
	data := signal.Channel(s.Channel)
	probeData := probe.Mono().Channel(0)
	if len(probeData) == 0 || len(data) < len(probeData) {
		logger.Debugf(ctx, "nothing to scan: signal:%d probe:%d", len(data), len(probeData))
		return nil, nil
	}

	step := int(signal.OffsetOf(s.Step.Seconds()))
	if step < 1 {
		step = 1
	}
	readLen := len(probeData) + step

	factory := s.MatcherFactory
	if factory == nil {
		var err error
		factory, err = s.Matcher.Factory(readLen)
		if err != nil {
			return nil, err
		}
	}
	m, err := factory.NewMatcher(probeData, s.Gain)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the matcher: %w", err)
	}

	totalLength := len(data) - len(probeData)
	logger.Debugf(ctx, "scanning %d samples for '%s' (%d samples), step %d, threshold %d", len(data), s.Label, len(probeData), step, s.Threshold)

	var markers []Marker
	for last := 0; last <= totalLength; last += step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.reportProgress(last, totalLength)

		end := min(last+readLen, len(data))
		r := m.Match(data[last:end])
		if r.Confidence <= s.Threshold {
			continue
		}

		pos := last + r.Offset
		marker := Marker{
			SampleOffset: int64(pos),
			Time:         signal.TimeOf(int64(pos)),
			Confidence:   r.Confidence,
			Label:        s.Label,
		}
		if n := len(markers); n > 0 && marker.SampleOffset-markers[n-1].SampleOffset < int64(step) {
			if marker.Confidence > markers[n-1].Confidence {
				logger.Tracef(ctx, "replacing %+v with %+v", markers[n-1], marker)
				markers[n-1] = marker
			}
			continue
		}
		logger.Tracef(ctx, "found: %d @ %.3f s, cc: %d", marker.SampleOffset, marker.Time, marker.Confidence)
		markers = append(markers, marker)
	}
	s.reportProgress(totalLength, totalLength)

	logger.Debugf(ctx, "found %d occurrences of '%s'", len(markers), s.Label)
	return markers, nil
}

func (s *Scanner) reportProgress(pos, total int) {
	if s.OnProgress == nil {
		return
	}
	if total <= 0 {
		s.OnProgress(100)
		return
	}
	s.OnProgress(100 * float64(pos) / float64(total))
}

// Scan is a shortcut for New(cfg) followed by Scan.
func Scan(
	ctx context.Context,
	signal *audio.SampleBuffer,
	probe *audio.SampleBuffer,
	cfg Config,
) ([]Marker, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return s.Scan(ctx, signal, probe)
}
