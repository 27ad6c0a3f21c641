package genome

import (
	"fmt"
	"iter"

	"github.com/inodb/vibe-sync/internal/posarray"
	"github.com/inodb/vibe-sync/internal/variant"
)

// BuildStore indexes a sequence of variants already sorted by start.
func BuildStore(chrom string, allele variant.Allele, variants iter.Seq[variant.Record], opts ...posarray.Option) (*Store, error) {
	s := NewStore(chrom, allele, opts...)
	for rec := range variants {
		if err := s.AddVariant(rec); err != nil {
			return nil, fmt.Errorf("build %s store for %s: %w", allele, chrom, err)
		}
	}
	return s, nil
}

// MergeStores indexes the union of several sorted sequences, e.g. one per
// source file. The sequences are merged linearly; none is re-sorted. Ties on
// start keep the order of the sources.
func MergeStores(chrom string, allele variant.Allele, sources []iter.Seq[variant.Record], opts ...posarray.Option) (*Store, error) {
	return BuildStore(chrom, allele, Merge(sources...), opts...)
}

// Merge returns the k-way merge of sorted record sequences.
func Merge(sources ...iter.Seq[variant.Record]) iter.Seq[variant.Record] {
	if len(sources) == 1 {
		return sources[0]
	}
	return func(yield func(variant.Record) bool) {
		type head struct {
			rec  variant.Record
			next func() (variant.Record, bool)
			ok   bool
		}

		heads := make([]head, len(sources))
		for i, src := range sources {
			next, stop := iter.Pull(src)
			defer stop()
			rec, ok := next()
			heads[i] = head{rec: rec, next: next, ok: ok}
		}

		for {
			best := -1
			for i := range heads {
				if !heads[i].ok {
					continue
				}
				if best < 0 || heads[i].rec.Start < heads[best].rec.Start {
					best = i
				}
			}
			if best < 0 {
				return
			}
			if !yield(heads[best].rec) {
				return
			}
			heads[best].rec, heads[best].ok = heads[best].next()
		}
	}
}
