// Package level computes loudness statistics of a signal: RMS, peak, crest
// factor and DC bias, all in dB relative to full scale.
package level

import (
	"context"
	"fmt"
	"math"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/audiolat/pkg/audio"
)

// BlockDuration is the amount of signal reduced per step.
const BlockDuration = 10 // seconds

type Levels struct {
	RMSDB   float64
	PeakDB  float64
	CrestDB float64
	BiasDB  float64
}

type channelAccumulator struct {
	sum   float64
	sumSq float64
	peak  float64
	count uint64
}

// Accumulator is a single-pass reducer of per-channel levels; blocks may be
// pushed as they are decoded, there is no need to keep the whole signal.
type Accumulator struct {
	channels []channelAccumulator
}

func NewAccumulator(channels audio.Channel) *Accumulator {
	return &Accumulator{
		channels: make([]channelAccumulator, channels),
	}
}

// Push adds a planar block of samples, one slice per channel.
func (a *Accumulator) Push(block [][]float64) error {
	if len(block) != len(a.channels) {
		return fmt.Errorf("expected %d channels, received %d", len(a.channels), len(block))
	}
	for idx, samples := range block {
		acc := &a.channels[idx]
		for _, v := range samples {
			acc.sum += v
			acc.sumSq += v * v
			if abs := math.Abs(v); abs > acc.peak {
				acc.peak = abs
			}
		}
		acc.count += uint64(len(samples))
	}
	return nil
}

// Levels returns the per-channel statistics of everything pushed so far.
func (a *Accumulator) Levels() []Levels {
	result := make([]Levels, len(a.channels))
	for idx, acc := range a.channels {
		if acc.count == 0 {
			result[idx] = Levels{RMSDB: FloorDB, PeakDB: FloorDB, CrestDB: FloorDB, BiasDB: FloorDB}
			continue
		}
		rms := math.Sqrt(acc.sumSq / float64(acc.count))
		crest := FloorDB
		if rms > 0 {
			crest = FloatToDB(acc.peak / rms)
		}
		result[idx] = Levels{
			RMSDB:   FloatToDB(rms),
			PeakDB:  FloatToDB(acc.peak),
			CrestDB: crest,
			BiasDB:  FloatToDB(acc.sum / float64(acc.count)),
		}
	}
	return result
}

// Analyze reduces buf block by block.
func Analyze(ctx context.Context, buf *audio.SampleBuffer) ([]Levels, error) {
	if buf == nil || buf.SampleRate == 0 {
		return nil, fmt.Errorf("a buffer with a sample rate is required")
	}
	acc := NewAccumulator(buf.Channels())
	blockSize := int(buf.SampleRate) * BlockDuration
	block := make([][]float64, buf.Channels())
	for pos := 0; pos < buf.Len(); pos += blockSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(pos+blockSize, buf.Len())
		for ch, samples := range buf.Samples {
			block[ch] = samples[pos:end]
		}
		if err := acc.Push(block); err != nil {
			return nil, err
		}
	}
	result := acc.Levels()
	logger.Debugf(ctx, "levels of %d channels over %v: %+v", len(result), buf.Duration(), result)
	return result, nil
}
