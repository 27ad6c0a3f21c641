package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-sync/internal/duckdb"
	"github.com/inodb/vibe-sync/internal/filter"
	"github.com/inodb/vibe-sync/internal/ingest"
	"github.com/inodb/vibe-sync/internal/session"
)

// callsFlags selects the VCFs and sample a genome is built from.
type callsFlags struct {
	vcfs             []string
	sample           string
	includeReference bool
	progress         bool
}

func (f *callsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.vcfs, "vcf", nil, "VCF or MAF files with the genome's calls (repeatable)")
	cmd.Flags().StringVar(&f.sample, "sample", "", "Sample column or MAF Tumor_Sample_Barcode (default: first sample)")
	cmd.Flags().BoolVar(&f.includeReference, "include-reference", false, "Keep homozygous-reference calls")
	cmd.Flags().BoolVar(&f.progress, "progress", false, "Show a progress bar on stderr")
	_ = cmd.MarkFlagRequired("vcf")
}

// openSession loads the calls of f, creates a session over the chromosomes
// of the first file, and synchronizes genomeName. The returned func releases
// the session and any database it opened.
func openSession(ctx context.Context, genomeName string, f *callsFlags) (*session.Session, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, usageError{err}
	}

	sources := make([]*ingest.Calls, 0, len(f.vcfs))
	for _, path := range f.vcfs {
		calls, err := ingest.Load(ctx, path, ingest.Options{
			Sample:           f.sample,
			IncludeReference: f.includeReference,
			Logger:           logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("loading %s: %w", path, err)
		}
		sources = append(sources, calls)
	}
	chroms, err := sources[0].ChromosomeSet()
	if err != nil {
		return nil, nil, err
	}

	retriever, closeRetriever, err := openRetriever(cfg)
	if err != nil {
		return nil, nil, err
	}

	s, err := session.New(cfg, chroms, retriever, session.WithLogger(logger))
	if err != nil {
		closeRetriever()
		return nil, nil, usageError{err}
	}
	cleanup := func() {
		s.Close()
		closeRetriever()
	}

	bar, done := newProgressBar("indexing "+genomeName, f.progress)
	err = s.Synchronize(ctx, genomeName, sources, bar...)
	done()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return s, cleanup, nil
}

// openRetriever reads filter sources from the DuckDB database when one is
// configured, and from VCF files otherwise.
func openRetriever(cfg session.Config) (filter.Retriever, func(), error) {
	if cfg.DB.Path == "" {
		return ingest.FileRetriever{Dir: cfg.Filters.Dir}, func() {}, nil
	}
	store, err := duckdb.Open(cfg.DB.Path)
	if err != nil {
		return nil, nil, err
	}
	store.SetLogger(logger)
	logger.Debug("reading filter sources from database", zap.String("path", cfg.DB.Path))
	return store, func() { store.Close() }, nil
}
