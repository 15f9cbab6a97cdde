// Package pairing associates trailing events with the closest valid leading
// event and turns every association into a latency sample.
package pairing

import (
	"fmt"
	"time"

	"github.com/xaionaro-go/audiolat/pkg/scanner"
	"github.com/xaionaro-go/audiolat/pkg/transient"
)

const (
	DefaultMinGap = 2 * time.Millisecond
	DefaultMaxGap = time.Second

	// gapEpsilon absorbs floating point noise of subtracting timestamps, so
	// that a gap equal to a bound is rejected reliably. It is far below a
	// sample period at any realistic sample rate.
	gapEpsilon = 1e-9
)

type Direction int

const (
	// LeadingBefore pairs a trailing event with a leading event that occurred before it.
	LeadingBefore = Direction(iota)

	// LeadingAfter pairs a trailing event with a leading event that occurred after it.
	LeadingAfter
)

func (d Direction) String() string {
	switch d {
	case LeadingBefore:
		return "leading-before"
	case LeadingAfter:
		return "leading-after"
	default:
		return fmt.Sprintf("unknown_direction_%d", int(d))
	}
}

type Event struct {
	Time    float64 // seconds
	Label   string
	LevelDB float64
}

type MatchedPair struct {
	// Timestamp is the time of the trailing event.
	Timestamp float64
	// Latency is the (positive) gap between the paired events in seconds.
	Latency        float64
	Label          string
	LeadingTime    float64
	LeadingLabel   string
	LevelDB        float64
	LeadingLevelDB float64
}

type Config struct {
	MinGap    time.Duration
	MaxGap    time.Duration
	Direction Direction
}

func DefaultConfig() Config {
	return Config{
		MinGap:    DefaultMinGap,
		MaxGap:    DefaultMaxGap,
		Direction: LeadingBefore,
	}
}

type Pairer struct {
	Config
}

func NewPairer(cfg Config) (*Pairer, error) {
	if cfg.MinGap < 0 {
		return nil, fmt.Errorf("the minimal gap must not be negative: got %v", cfg.MinGap)
	}
	if cfg.MaxGap <= cfg.MinGap {
		return nil, fmt.Errorf("the maximal gap (%v) must be greater than the minimal gap (%v)", cfg.MaxGap, cfg.MinGap)
	}
	switch cfg.Direction {
	case LeadingBefore, LeadingAfter:
	default:
		return nil, fmt.Errorf("unknown direction: %v", cfg.Direction)
	}
	return &Pairer{Config: cfg}, nil
}

// Pair returns a MatchedPair for every trailing event that has a leading
// event at a gap strictly between MinGap and MaxGap; the closest such leading
// event is used. Trailing events without a valid leading event are dropped.
func (p *Pairer) Pair(leading, trailing []Event) []MatchedPair {
	minGap := p.MinGap.Seconds()
	maxGap := p.MaxGap.Seconds()

	var pairs []MatchedPair
	for _, end := range trailing {
		bestIdx := -1
		bestGap := maxGap
		for idx, begin := range leading {
			gap := end.Time - begin.Time
			if p.Direction == LeadingAfter {
				gap = -gap
			}
			if gap > minGap+gapEpsilon && gap < bestGap-gapEpsilon {
				bestGap = gap
				bestIdx = idx
			}
		}
		if bestIdx < 0 {
			continue
		}
		begin := leading[bestIdx]
		pairs = append(pairs, MatchedPair{
			Timestamp:      end.Time,
			Latency:        bestGap,
			Label:          end.Label,
			LeadingTime:    begin.Time,
			LeadingLabel:   begin.Label,
			LevelDB:        end.LevelDB,
			LeadingLevelDB: begin.LevelDB,
		})
	}
	return pairs
}

// Pair is a shortcut for NewPairer(cfg) followed by Pair.
func Pair(leading, trailing []Event, cfg Config) ([]MatchedPair, error) {
	p, err := NewPairer(cfg)
	if err != nil {
		return nil, err
	}
	return p.Pair(leading, trailing), nil
}

func FromMarkers(markers []scanner.Marker) []Event {
	events := make([]Event, 0, len(markers))
	for _, m := range markers {
		events = append(events, Event{
			Time:  m.Time,
			Label: m.Label,
		})
	}
	return events
}

func FromTransients(transients []transient.Event, label string) []Event {
	events := make([]Event, 0, len(transients))
	for _, t := range transients {
		events = append(events, Event{
			Time:    t.Time,
			Label:   label,
			LevelDB: t.PeakLevelDB,
		})
	}
	return events
}
