package ops

import (
	"context"
	"errors"

	"github.com/inodb/vibe-sync/internal/genome"
	"github.com/inodb/vibe-sync/internal/pool"
	"github.com/inodb/vibe-sync/internal/posarray"
	"github.com/inodb/vibe-sync/internal/variant"
)

// DensityTrack counts the variants of s starting in each bin of width bin
// over a chromosome of the given length.
func DensityTrack(job *pool.Job, s *genome.Store, length, bin int) (*posarray.Array[float64], error) {
	if bin <= 0 {
		return nil, errors.New("bin width must be positive")
	}
	n := (length + bin - 1) / bin
	track := posarray.New[float64](n)
	track.ResizeTo(n)
	for i := range s.Len() {
		if job != nil && job.Stopped() {
			return track, nil
		}
		b := s.RefPosition(i) / bin
		if b >= n {
			continue
		}
		v, _ := track.Get(b)
		if err := track.Set(b, v+1); err != nil {
			return nil, err
		}
	}
	return track, nil
}

// DensityTracks builds one density track per chromosome for a genome allele.
// Chromosomes without a store get an all-zero track.
func DensityTracks(ctx context.Context, p *pool.Pool, project *genome.Project, genomeName string, allele variant.Allele, bin int, submit ...pool.SubmitOption) ([]Track, error) {
	chroms := project.Chromosomes().All()
	tasks := make([]pool.Task[Track], len(chroms))
	for i, c := range chroms {
		tasks[i] = pool.Task[Track]{
			Chromosome: c.Name,
			Run: func(job *pool.Job) (Track, error) {
				defer job.NotifyProgress()
				s, ok := project.Store(genomeName, c.Name, allele)
				if !ok {
					s = genome.NewStore(c.Name, allele)
				}
				values, err := DensityTrack(job, s, c.Length, bin)
				if err != nil {
					return Track{}, err
				}
				return Track{Chromosome: c.Name, Values: values}, nil
			},
		}
	}
	return pool.Submit(ctx, p, tasks, submit...)
}
