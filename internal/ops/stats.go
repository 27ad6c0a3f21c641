// Package ops implements bulk per-chromosome computations over numeric
// tracks. Every operation fans out one task per chromosome on a pool.Pool.
package ops

import (
	"context"
	"math"

	"github.com/inodb/vibe-sync/internal/pool"
	"github.com/inodb/vibe-sync/internal/posarray"
)

// Track is one chromosome's values, one per bin or indexed position.
type Track struct {
	Chromosome string
	Values     *posarray.Array[float64]
}

// Summary describes the values of one chromosome, or of every chromosome
// when Chromosome is empty. NaN values are skipped.
type Summary struct {
	Chromosome string
	Count      int
	Sum        float64
	Min        float64
	Max        float64
}

// Mean returns the average value, or NaN for an empty summary.
func (s Summary) Mean() float64 {
	if s.Count == 0 {
		return math.NaN()
	}
	return s.Sum / float64(s.Count)
}

func (s *Summary) merge(o Summary) {
	if o.Count == 0 {
		return
	}
	if s.Count == 0 {
		s.Min, s.Max = o.Min, o.Max
	} else {
		s.Min = math.Min(s.Min, o.Min)
		s.Max = math.Max(s.Max, o.Max)
	}
	s.Count += o.Count
	s.Sum += o.Sum
}

// Statistics summarizes each track and the whole genome. The per-chromosome
// summaries are in track order.
func Statistics(ctx context.Context, p *pool.Pool, tracks []Track, opts ...pool.SubmitOption) ([]Summary, Summary, error) {
	tasks := make([]pool.Task[Summary], len(tracks))
	for i, t := range tracks {
		tasks[i] = pool.Task[Summary]{
			Chromosome: t.Chromosome,
			Run: func(job *pool.Job) (Summary, error) {
				s := summarize(job, t)
				job.NotifyProgress()
				return s, nil
			},
		}
	}

	per, err := pool.Submit(ctx, p, tasks, opts...)
	if err != nil {
		return nil, Summary{}, err
	}
	var total Summary
	for _, s := range per {
		total.merge(s)
	}
	return per, total, nil
}

func summarize(job *pool.Job, t Track) Summary {
	s := Summary{Chromosome: t.Chromosome}
	if t.Values == nil {
		return s
	}
	for _, v := range t.Values.Values() {
		if job.Stopped() {
			return s
		}
		if math.IsNaN(v) {
			continue
		}
		if s.Count == 0 {
			s.Min, s.Max = v, v
		} else if v < s.Min {
			s.Min = v
		} else if v > s.Max {
			s.Max = v
		}
		s.Count++
		s.Sum += v
	}
	return s
}
