package filter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-sync/internal/vcf"
)

// AllGenomes is the genome key of exclusions that apply to every genome.
const AllGenomes = "*"

// ErrSourceRetrieval matches failures to retrieve one source's records.
var ErrSourceRetrieval = errors.New("source retrieval failed")

// SourceError reports a failed retrieval for one source.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("retrieve %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() []error { return []error{ErrSourceRetrieval, e.Err} }

// Request describes one retrieval round trip.
type Request struct {
	Source     string
	Columns    []Column
	Chromosome string
	Start, End int // 0-based, half-open; End <= 0 means the whole chromosome
}

// Contains reports whether the 0-based reference start lies in the request.
func (r Request) Contains(start int) bool {
	return start >= r.Start && (r.End <= 0 || start < r.End)
}

// Retriever reads the records of one source. It is supplied by the I/O layer.
type Retriever interface {
	Retrieve(ctx context.Context, req Request) ([]Record, error)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, req Request) ([]Record, error)

func (f RetrieverFunc) Retrieve(ctx context.Context, req Request) ([]Record, error) {
	return f(ctx, req)
}

// FailurePolicy decides how filters on an unreachable source behave.
type FailurePolicy int

const (
	// FailOpen treats filters on a failed source as excluding nothing.
	FailOpen FailurePolicy = iota
	// FailClosed treats them as excluding every variant they target.
	FailClosed
)

// Region is the chromosome window a cycle evaluates.
type Region struct {
	Chromosome string
	Start, End int
}

type exclusions map[string]map[int]struct{}

func (x exclusions) add(genome string, pos int) {
	m, ok := x[genome]
	if !ok {
		m = make(map[int]struct{})
		x[genome] = m
	}
	m[pos] = struct{}{}
}

type specResult struct {
	excluded exclusions
	closed   []string
}

// Engine re-evaluates filter sets incrementally. One cycle runs at a time.
type Engine struct {
	retriever Retriever
	policy    FailurePolicy
	logger    *zap.Logger

	mu      sync.Mutex
	region  Region
	applied []Spec
	cache   map[string]*specResult
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithFailurePolicy sets the behavior for failed sources.
func WithFailurePolicy(p FailurePolicy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine reading records through r.
func NewEngine(r Retriever, opts ...EngineOption) *Engine {
	e := &Engine{
		retriever: r,
		logger:    zap.NewNop(),
		cache:     make(map[string]*specResult),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Applied returns the specs whose results are current.
func (e *Engine) Applied() []Spec {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.applied)
}

// Reevaluate runs one filter cycle for region. Only specs that are new since
// the previous cycle are evaluated unless the region changed. Each source is
// retrieved at most once, requesting the union of columns its specs need.
//
// Source failures do not abort the cycle; they are listed in the returned
// Results. The error is non-nil only when ctx ends the cycle.
func (e *Engine) Reevaluate(ctx context.Context, region Region, current []Spec) (*Results, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	changed := region != e.region
	if changed {
		e.cache = make(map[string]*specResult)
	}
	todo := IncrementalUpdate(e.applied, current, changed)

	keep := make(map[string]struct{}, len(current))
	for _, s := range current {
		keep[s.Fingerprint()] = struct{}{}
	}
	for k := range e.cache {
		if _, ok := keep[k]; !ok {
			delete(e.cache, k)
		}
	}

	var failures []*SourceError
	failed := make(map[string]struct{})
	groups := GroupBySource(todo)
	for _, source := range Sources(groups) {
		specs := groups[source]
		req := Request{
			Source:     source,
			Columns:    RequiredColumns(specs),
			Chromosome: region.Chromosome,
			Start:      region.Start,
			End:        region.End,
		}
		records, err := e.retriever.Retrieve(ctx, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			serr := &SourceError{Source: source, Err: err}
			failures = append(failures, serr)
			e.logger.Warn("filter source unavailable",
				zap.String("source", source),
				zap.String("chrom", region.Chromosome),
				zap.Int("filters", len(specs)),
				zap.Error(err))
			for _, s := range specs {
				e.cache[s.Fingerprint()] = e.failedResult(s)
				failed[s.Fingerprint()] = struct{}{}
			}
			continue
		}

		results, err := evaluateAll(ctx, specs, records)
		if err != nil {
			return nil, err
		}
		for i, s := range specs {
			e.cache[s.Fingerprint()] = results[i]
		}
		e.logger.Debug("filters evaluated",
			zap.String("source", source),
			zap.Int("records", len(records)),
			zap.Int("filters", len(specs)))
	}

	// Failed specs stay out of the applied set so the next cycle retries them.
	e.applied = e.applied[:0]
	for _, s := range current {
		if _, ok := failed[s.Fingerprint()]; !ok {
			e.applied = append(e.applied, s)
		}
	}
	e.region = region

	return e.snapshot(region, current, failures), nil
}

func (e *Engine) failedResult(s Spec) *specResult {
	res := &specResult{excluded: exclusions{}}
	if e.policy == FailClosed {
		res.closed = s.Genomes
		if len(res.closed) == 0 {
			res.closed = []string{AllGenomes}
		}
	}
	return res
}

// evaluateAll evaluates each spec against the shared, read-only records.
func evaluateAll(ctx context.Context, specs []Spec, records []Record) ([]*specResult, error) {
	results := make([]*specResult, len(specs))
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range specs {
		g.Go(func() error {
			res := &specResult{excluded: exclusions{}}
			for n, rec := range records {
				if n%4096 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				evaluateRecord(s, rec, res.excluded)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func evaluateRecord(s Spec, rec Record, out exclusions) {
	starts := recordStarts(rec.Variant)
	if s.Column == ColumnGenotype {
		genomes := s.Genomes
		if len(genomes) == 0 {
			genomes = rec.Samples
		}
		for _, g := range genomes {
			if Excludes(s, rec, g) {
				for _, p := range starts {
					out.add(g, p)
				}
			}
		}
		return
	}
	// Outside GT the match does not depend on the genome.
	targets := s.Genomes
	if len(targets) == 0 {
		targets = []string{AllGenomes}
	}
	if !Excludes(s, rec, targets[0]) {
		return
	}
	for _, g := range targets {
		for _, p := range starts {
			out.add(g, p)
		}
	}
}

// recordStarts returns the distinct 0-based starts of a record's alleles.
func recordStarts(v *vcf.Variant) []int {
	alts := v.Alts()
	if len(alts) <= 1 {
		return []int{v.ReferenceStart()}
	}
	starts := make([]int, 0, len(alts))
	for _, alt := range alts {
		p := vcf.ReferenceStart(v.Pos, v.Ref, alt)
		if !slices.Contains(starts, p) {
			starts = append(starts, p)
		}
	}
	return starts
}

func (e *Engine) snapshot(region Region, current []Spec, failures []*SourceError) *Results {
	r := &Results{
		Region:   region,
		excluded: exclusions{},
		closed:   make(map[string]struct{}),
		Failures: failures,
	}
	for _, s := range current {
		res, ok := e.cache[s.Fingerprint()]
		if !ok {
			continue
		}
		for g, positions := range res.excluded {
			for p := range positions {
				r.excluded.add(g, p)
			}
		}
		for _, g := range res.closed {
			r.closed[g] = struct{}{}
		}
	}
	return r
}

// Results is the immutable outcome of one filter cycle.
type Results struct {
	Region   Region
	Failures []*SourceError

	excluded exclusions
	closed   map[string]struct{}
}

// Excluded reports whether the variant starting at refStart is filtered out
// for genome.
func (r *Results) Excluded(genome string, refStart int) bool {
	if r == nil {
		return false
	}
	if _, ok := r.closed[AllGenomes]; ok {
		return true
	}
	if _, ok := r.closed[genome]; ok {
		return true
	}
	if _, ok := r.excluded[AllGenomes][refStart]; ok {
		return true
	}
	_, ok := r.excluded[genome][refStart]
	return ok
}

// ExcludedCount returns the number of excluded positions recorded for genome,
// including those recorded for every genome.
func (r *Results) ExcludedCount(genome string) int {
	if r == nil {
		return 0
	}
	n := len(r.excluded[AllGenomes])
	for p := range r.excluded[genome] {
		if _, dup := r.excluded[AllGenomes][p]; !dup {
			n++
		}
	}
	return n
}

// Err combines the per-source failures, or returns nil.
func (r *Results) Err() error {
	if r == nil {
		return nil
	}
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, f)
	}
	return err
}
