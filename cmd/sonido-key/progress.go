package main

import (
	"io"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// barProgress renders averaging progress as a terminal bar with an EWMA
// based ETA
type barProgress struct {
	out io.Writer
	p   *mpb.Progress
	bar *mpb.Bar
}

func newBarProgress(out io.Writer) *barProgress {
	return &barProgress{out: out}
}

func (b *barProgress) Start(expected int) {
	b.p = mpb.New(mpb.WithOutput(b.out), mpb.WithWidth(64))
	b.bar = b.p.AddBar(int64(expected),
		mpb.PrependDecorators(
			decor.Name("Analyzing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)
}

func (b *barProgress) Step(_ int, elapsed time.Duration) {
	b.bar.EwmaIncrement(elapsed)
}

// Finish stops the bar. The last estimated window is usually never
// processed, so the bar is aborted rather than waited on.
func (b *barProgress) Finish(int, time.Duration) {
	if !b.bar.Completed() {
		b.bar.Abort(false)
	}
	b.p.Wait()
}
