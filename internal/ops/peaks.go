package ops

import (
	"context"

	"github.com/inodb/vibe-sync/internal/pool"
)

// PeakOptions controls peak calling over binned tracks.
type PeakOptions struct {
	// Threshold is the minimum value of a bin inside a peak.
	Threshold float64
	// MergeWithin merges peaks separated by at most this many bins.
	MergeWithin int
	// MinWidth drops peaks narrower than this many bins.
	MinWidth int
}

// Peak is a run of bins at or above the threshold, [Start, End).
type Peak struct {
	Chromosome string
	Start, End int
	Summit     int
	Value      float64
}

// FindPeaks calls peaks on every track. Peaks are ordered by track, then
// by start.
func FindPeaks(ctx context.Context, p *pool.Pool, tracks []Track, opts PeakOptions, submit ...pool.SubmitOption) ([]Peak, error) {
	tasks := make([]pool.Task[[]Peak], len(tracks))
	for i, t := range tracks {
		tasks[i] = pool.Task[[]Peak]{
			Chromosome: t.Chromosome,
			Run: func(job *pool.Job) ([]Peak, error) {
				peaks := callPeaks(job, t, opts)
				job.NotifyProgress()
				return peaks, nil
			},
		}
	}
	per, err := pool.Submit(ctx, p, tasks, submit...)
	if err != nil {
		return nil, err
	}
	var out []Peak
	for _, peaks := range per {
		out = append(out, peaks...)
	}
	return out, nil
}

func callPeaks(job *pool.Job, t Track, opts PeakOptions) []Peak {
	if t.Values == nil {
		return nil
	}
	vals := t.Values.Values()
	var raw []Peak
	for i := 0; i < len(vals); i++ {
		if job.Stopped() {
			return nil
		}
		if vals[i] < opts.Threshold {
			continue
		}
		pk := Peak{Chromosome: t.Chromosome, Start: i, Summit: i, Value: vals[i]}
		for i < len(vals) && vals[i] >= opts.Threshold {
			if vals[i] > pk.Value {
				pk.Summit, pk.Value = i, vals[i]
			}
			i++
		}
		pk.End = i
		raw = append(raw, pk)
	}

	var merged []Peak
	for _, pk := range raw {
		if n := len(merged); n > 0 && pk.Start-merged[n-1].End <= opts.MergeWithin {
			last := &merged[n-1]
			last.End = pk.End
			if pk.Value > last.Value {
				last.Summit, last.Value = pk.Summit, pk.Value
			}
			continue
		}
		merged = append(merged, pk)
	}

	out := merged[:0]
	for _, pk := range merged {
		if pk.End-pk.Start >= opts.MinWidth {
			out = append(out, pk)
		}
	}
	return out
}
