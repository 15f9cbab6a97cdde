// Package progress renders the progress callbacks of the analyzers as
// terminal progress bars, one bar per stage.
package progress

import (
	"io"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

const resolution = 1000

type Bars struct {
	locker   sync.Mutex
	progress *mpb.Progress
	bars     map[string]*mpb.Bar
	order    []string
}

func New(out io.Writer) *Bars {
	return &Bars{
		progress: mpb.New(mpb.WithWidth(64), mpb.WithOutput(out)),
		bars:     map[string]*mpb.Bar{},
	}
}

func (b *Bars) bar(stage string) *mpb.Bar {
	if bar, ok := b.bars[stage]; ok {
		return bar
	}
	bar := b.progress.AddBar(resolution,
		mpb.PrependDecorators(
			decor.Name(stage, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)
	b.bars[stage] = bar
	b.order = append(b.order, stage)
	return bar
}

// Update sets the progress of the stage in percents (0..100), creating the
// bar on the first call. It is safe for concurrent use.
func (b *Bars) Update(stage string, percent float64) {
	if b == nil {
		return
	}
	b.locker.Lock()
	defer b.locker.Unlock()
	percent = max(0, min(100, percent))
	b.bar(stage).SetCurrent(int64(percent * resolution / 100))
}

// Stages returns the names of the bars in the order of creation.
func (b *Bars) Stages() []string {
	if b == nil {
		return nil
	}
	b.locker.Lock()
	defer b.locker.Unlock()
	return append([]string(nil), b.order...)
}

// Wait completes all the bars and waits for the rendering to finish.
func (b *Bars) Wait() {
	if b == nil {
		return
	}
	b.locker.Lock()
	for _, bar := range b.bars {
		bar.SetTotal(-1, true)
	}
	b.locker.Unlock()
	b.progress.Wait()
}
