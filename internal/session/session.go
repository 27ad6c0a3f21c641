package session

import (
	"context"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/inodb/vibe-sync/internal/display"
	"github.com/inodb/vibe-sync/internal/filter"
	"github.com/inodb/vibe-sync/internal/genome"
	"github.com/inodb/vibe-sync/internal/ingest"
	"github.com/inodb/vibe-sync/internal/pool"
	"github.com/inodb/vibe-sync/internal/shift"
	"github.com/inodb/vibe-sync/internal/variant"
)

// Session owns the shared state of one open project. Components receive it
// explicitly instead of reaching for process-wide instances.
type Session struct {
	Config   Config
	Project  *genome.Project
	Pool     *pool.Pool
	Computer *shift.Computer
	Engine   *filter.Engine
	Policy   *display.Policy

	logger *zap.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger handed to every component.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New creates a session over chroms. Filter sources are read through r.
func New(cfg Config, chroms *variant.ChromosomeSet, r filter.Retriever, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{Config: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	s.Project = genome.NewProject(chroms)
	s.Pool = pool.New(cfg.Parallelism, pool.WithLogger(s.logger))
	s.Computer = shift.NewComputer(s.Project)
	s.Engine = filter.NewEngine(r,
		filter.WithFailurePolicy(cfg.FailurePolicy()),
		filter.WithLogger(s.logger))
	s.Policy = display.NewPolicy(cfg.Display.ShowReference, cfg.Display.ShowFiltered)
	return s, nil
}

// Logger returns the session logger.
func (s *Session) Logger() *zap.Logger { return s.logger }

// Close cancels every operation still running on the session pool.
func (s *Session) Close() {
	s.Pool.Cancel()
}

// Synchronize (re)builds the stores of genomeName on every chromosome from
// sources, one pool task per chromosome. Records of several sources are
// merged linearly. Stores are published only once every chromosome has been
// built, so a cancelled or failed run leaves the genome unchanged.
func (s *Session) Synchronize(ctx context.Context, genomeName string, sources []*ingest.Calls, opts ...pool.SubmitOption) error {
	g, err := s.Project.AddGenome(genomeName)
	if err != nil {
		return err
	}

	chroms := s.Project.Chromosomes().Names()
	tasks := make([]pool.Task[[]*genome.Store], len(chroms))
	for i, chrom := range chroms {
		tasks[i] = pool.Task[[]*genome.Store]{
			Chromosome: chrom,
			Run: func(job *pool.Job) ([]*genome.Store, error) {
				defer job.NotifyProgress()
				out := make([]*genome.Store, len(ingest.Haplotypes))
				for k, allele := range ingest.Haplotypes {
					seqs := make([]iter.Seq[variant.Record], 0, len(sources))
					for _, src := range sources {
						seqs = append(seqs, stopping(job, src.Seq(chrom, allele)))
					}
					st, err := genome.MergeStores(chrom, allele, seqs, s.Config.indexOptions()...)
					if err != nil {
						return nil, err
					}
					out[k] = st
				}
				return out, nil
			},
		}
	}

	built, err := pool.Submit(ctx, s.Pool, tasks, opts...)
	if err != nil {
		return fmt.Errorf("synchronize %s: %w", genomeName, err)
	}
	total := 0
	for _, stores := range built {
		for _, st := range stores {
			g.SetStore(st)
			total += st.Len()
		}
	}
	s.logger.Info("genome synchronized",
		zap.String("genome", genomeName),
		zap.Int("chromosomes", len(chroms)),
		zap.Int("sources", len(sources)),
		zap.Int("variants", total))
	return nil
}

// stopping ends seq early once the job is stopped.
func stopping(job *pool.Job, seq iter.Seq[variant.Record]) iter.Seq[variant.Record] {
	return func(yield func(variant.Record) bool) {
		for rec := range seq {
			if job.Stopped() || !yield(rec) {
				return
			}
		}
	}
}

// ApplyFilters runs one filter cycle on region and rebuilds the display
// policy from its results. Per-source failures are reported by
// Results.Err; the returned error is set only when the cycle itself ended.
func (s *Session) ApplyFilters(ctx context.Context, region filter.Region, specs []filter.Spec) (*filter.Results, error) {
	results, err := s.Engine.Reevaluate(ctx, region, specs)
	if err != nil {
		return nil, fmt.Errorf("apply filters on %s: %w", region.Chromosome, err)
	}
	s.Policy.Rebuild(s.Project, results)
	if ferr := results.Err(); ferr != nil {
		s.logger.Warn("filters applied with unavailable sources",
			zap.String("chrom", region.Chromosome),
			zap.Int("failed_sources", len(results.Failures)),
			zap.Error(ferr))
	}
	return results, nil
}

// SetChromosomes replaces the chromosome set. Stores of chromosomes that
// are no longer present are dropped; the others are kept.
func (s *Session) SetChromosomes(chroms *variant.ChromosomeSet) {
	s.Project.SetChromosomes(chroms)
}
