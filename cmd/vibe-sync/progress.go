package main

import (
	"os"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/inodb/vibe-sync/internal/pool"
)

// newProgressBar returns submit options drawing per-chromosome progress on
// stderr, and a func that must be called once the run returns.
func newProgressBar(name string, enabled bool) ([]pool.SubmitOption, func()) {
	if !enabled {
		return nil, func() {}
	}

	pbs := mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
	var bar *mpb.Bar
	opt := pool.WithProgress(func(done, total int) {
		if bar == nil {
			bar = pbs.AddBar(int64(total),
				mpb.PrependDecorators(
					decor.Name(name+": ", decor.WC{W: len(name) + 2, C: decor.DindentRight}),
					decor.CountersNoUnit("%d / %d chromosomes", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.Elapsed(decor.ET_STYLE_GO),
					decor.OnComplete(decor.Name(""), ". done"),
				),
			)
		}
		bar.SetCurrent(int64(done))
	})
	return []pool.SubmitOption{opt}, func() {
		if bar != nil && !bar.Completed() {
			bar.Abort(false)
		}
		pbs.Wait()
	}
}
