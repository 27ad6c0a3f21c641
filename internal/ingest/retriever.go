package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/inodb/vibe-sync/internal/filter"
	"github.com/inodb/vibe-sync/internal/vcf"
)

// FileRetriever serves filter sources straight from VCF files. Relative
// source names resolve against Dir.
type FileRetriever struct {
	Dir string
}

// Retrieve scans the whole file and keeps the records of the requested
// chromosome and range. A plain file cannot project columns, so every
// column is returned.
func (r FileRetriever) Retrieve(ctx context.Context, req filter.Request) ([]filter.Record, error) {
	path := req.Source
	if !filepath.IsAbs(path) && r.Dir != "" {
		path = filepath.Join(r.Dir, path)
	}
	p, err := vcf.NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	samples := p.SampleNames()
	want := strings.TrimPrefix(req.Chromosome, "chr")
	var out []filter.Record
	for n := 0; ; n++ {
		if n%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		v, err := p.Next()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", req.Source, err)
		}
		if v == nil {
			return out, nil
		}
		if v.NormalizeChrom() != want || !req.Contains(v.ReferenceStart()) {
			continue
		}
		out = append(out, filter.Record{Variant: v, Samples: samples})
	}
}
