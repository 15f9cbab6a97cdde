// Package transient finds loud onsets in a signal by level thresholding,
// independently of the waveform of what is played.
package transient

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/audiolat/pkg/audio"
	"github.com/xaionaro-go/audiolat/pkg/level"
)

const (
	DefaultBlock          = 500 * time.Millisecond
	DefaultHopFraction    = 1.0 / 8
	DefaultReferenceLevel = -6.0 // dB
	DefaultHysteresis     = 6.0  // dB
	DefaultThreshold      = DefaultReferenceLevel - 6
)

type Event struct {
	SampleOffset int64
	Time         float64 // seconds
	PeakLevelDB  float64 // level of the local maximum after gain normalization
}

type Config struct {
	// ThresholdDB is the level (after normalization) a block must reach to
	// trigger an event.
	ThresholdDB float64

	// HysteresisDB is how far below ThresholdDB the level must fall before
	// another event may be triggered.
	HysteresisDB float64

	// ReferenceLevelDB is the level the loudest non-clipped sample is
	// normalized to.
	ReferenceLevelDB float64

	Block       time.Duration
	HopFraction float64

	Channel audio.Channel

	OnProgress func(percent float64)
}

func DefaultConfig() Config {
	return Config{
		ThresholdDB:      DefaultThreshold,
		HysteresisDB:     DefaultHysteresis,
		ReferenceLevelDB: DefaultReferenceLevel,
		Block:            DefaultBlock,
		HopFraction:      DefaultHopFraction,
	}
}

type state int

const (
	stateIdle = state(iota)
	stateTriggered
)

type Detector struct {
	Config
}

func NewDetector(cfg Config) (*Detector, error) {
	if cfg.Block <= 0 {
		cfg.Block = DefaultBlock
	}
	if cfg.HopFraction <= 0 {
		cfg.HopFraction = DefaultHopFraction
	}
	if cfg.HopFraction > 1 {
		return nil, fmt.Errorf("hop fraction must be within (0, 1]: got %v", cfg.HopFraction)
	}
	if cfg.HysteresisDB < 0 {
		return nil, fmt.Errorf("hysteresis must not be negative: got %v", cfg.HysteresisDB)
	}
	return &Detector{Config: cfg}, nil
}

// clipGuard returns the magnitude of v, or zero if v is clipped.
func clipGuard(v float64) float64 {
	v = math.Abs(v)
	if v >= 1 {
		return 0
	}
	return v
}

// Detect returns the onsets found in signal, ordered by time.
//
// Samples with a magnitude of 1.0 or more are treated as zeros, then the
// gain is chosen so that the loudest remaining sample is at ReferenceLevelDB.
// A block of Block duration slides with a hop of Block*HopFraction; only the
// transition from idle to triggered emits an event, so a sustained loud
// passage yields a single event at its onset.
func (d *Detector) Detect(ctx context.Context, signal *audio.SampleBuffer) ([]Event, error) {
	data := signal.Channel(d.Channel)
	if len(data) == 0 {
		return nil, nil
	}

	var peak float64
	for _, v := range data {
		peak = math.Max(peak, clipGuard(v))
	}
	if peak == 0 {
		logger.Debugf(ctx, "the signal is silent, no transients")
		return nil, nil
	}
	gain := level.DBToFloat(d.ReferenceLevelDB) / peak

	blockSize := int(signal.OffsetOf(d.Block.Seconds()))
	if blockSize < 1 {
		blockSize = 1
	}
	hop := int(float64(blockSize) * d.HopFraction)
	if hop < 1 {
		hop = 1
	}
	logger.Debugf(ctx, "transient detection: gain %.2f dB, block %d, hop %d, threshold %.1f dB", level.FloatToDB(gain), blockSize, hop, d.ThresholdDB)

	var (
		events []Event
		st     = stateIdle
	)
	for index := 0; index+blockSize <= len(data); index += hop {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d.OnProgress != nil {
			d.OnProgress(100 * float64(index) / float64(len(data)))
		}

		localMaxIdx := 0
		localMax := -1.0
		for i, v := range data[index : index+blockSize] {
			if m := clipGuard(v); m > localMax {
				localMax = m
				localMaxIdx = i
			}
		}
		localMaxDB := level.FloatToDB(localMax * gain)

		switch {
		case st == stateIdle && localMaxDB >= d.ThresholdDB:
			st = stateTriggered
			offset := int64(index + localMaxIdx)
			events = append(events, Event{
				SampleOffset: offset,
				Time:         signal.TimeOf(offset),
				PeakLevelDB:  localMaxDB,
			})
			logger.Tracef(ctx, "onset at %.3f s, %.1f dB", signal.TimeOf(offset), localMaxDB)
		case st == stateTriggered && localMaxDB < d.ThresholdDB-d.HysteresisDB:
			st = stateIdle
		}
	}
	if d.OnProgress != nil {
		d.OnProgress(100)
	}

	logger.Debugf(ctx, "found %d transients", len(events))
	return events, nil
}

// WithThresholdBelowPeak returns cfg with the threshold set db decibels below
// the normalized peak.
func (cfg Config) WithThresholdBelowPeak(db float64) Config {
	cfg.ThresholdDB = cfg.ReferenceLevelDB - math.Abs(db)
	return cfg
}
