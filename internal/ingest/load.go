// Package ingest turns VCF or MAF calls into sorted per-chromosome, per-allele
// record sequences ready to be indexed.
package ingest

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"github.com/inodb/vibe-sync/internal/maf"
	"github.com/inodb/vibe-sync/internal/variant"
	"github.com/inodb/vibe-sync/internal/vcf"
)

// Options controls how calls are read.
type Options struct {
	// Sample selects the genotype column. Empty selects the first sample,
	// or treats a sites-only file as carrying every ALT on both alleles.
	Sample string

	// IncludeReference keeps homozygous-reference calls as Reference records.
	IncludeReference bool

	// IncludeNoCalls keeps missing genotypes and spanning deletions as
	// NoCall records.
	IncludeNoCalls bool

	Logger *zap.Logger
}

type trackKey struct {
	chrom  string
	allele variant.Allele
}

// Calls holds the records of one sample from one source, split by
// chromosome and haplotype.
type Calls struct {
	Source  string
	Sample  string
	Contigs []vcf.Contig

	chroms []string
	tracks map[trackKey][]variant.Record
	maxEnd map[string]int
	count  int
}

// Haplotypes are the alleles a Calls value keeps tracks for.
var Haplotypes = []variant.Allele{variant.Paternal, variant.Maternal}

// Parser is a source of variants with per-sample genotypes.
type Parser interface {
	vcf.VariantParser
	SampleNames() []string
	Contigs() []vcf.Contig
}

// Load reads the VCF or MAF at path. MAF rows are selected by
// Tumor_Sample_Barcode when opts.Sample is set.
func Load(ctx context.Context, path string, opts Options) (*Calls, error) {
	var (
		p   Parser
		err error
	)
	switch DetectFormat(path) {
	case FormatMAF:
		var mafOpts []maf.Option
		if opts.Sample != "" {
			mafOpts = append(mafOpts, maf.WithSample(opts.Sample))
		}
		p, err = maf.NewParser(path, mafOpts...)
	default:
		p, err = vcf.NewParser(path)
	}
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return Read(ctx, p, filepath.Base(path), opts)
}

// Read consumes every variant of p. source names the records' origin.
func Read(ctx context.Context, p Parser, source string, opts Options) (*Calls, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sampleIdx := -1
	sample := opts.Sample
	switch {
	case sample != "":
		sampleIdx = slices.Index(p.SampleNames(), sample)
		if sampleIdx < 0 {
			return nil, fmt.Errorf("sample %q not found in %s", sample, source)
		}
	case len(p.SampleNames()) > 0:
		sampleIdx = 0
		sample = p.SampleNames()[0]
	}

	c := &Calls{
		Source:  source,
		Sample:  sample,
		Contigs: p.Contigs(),
		tracks:  make(map[trackKey][]variant.Record),
		maxEnd:  make(map[string]int),
	}

	for n := 0; ; n++ {
		if n%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		v, err := p.Next()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
		if v == nil {
			break
		}
		c.addVariant(v, sampleIdx, opts)
	}

	for k, recs := range c.tracks {
		slices.SortStableFunc(recs, func(a, b variant.Record) int { return cmp.Compare(a.Start, b.Start) })
		c.tracks[k] = recs
	}

	logger.Info("loaded calls",
		zap.String("source", source),
		zap.String("sample", sample),
		zap.Int("records", c.count),
		zap.Int("chromosomes", len(c.chroms)))
	return c, nil
}

func (c *Calls) addVariant(v *vcf.Variant, sampleIdx int, opts Options) {
	var gt vcf.Genotype
	if sampleIdx >= 0 {
		gt = v.Genotype(sampleIdx)
		if allMissing(gt) {
			if opts.IncludeNoCalls {
				c.add(v.Chrom, c.siteRecord(v, variant.NoCall))
			}
			return
		}
		switch gt.Class() {
		case "HOM_REF", "HEMI_REF":
			if opts.IncludeReference {
				c.add(v.Chrom, c.siteRecord(v, variant.Reference))
			}
			return
		}
	}

	for k, alt := range v.Alts() {
		allele, carried := carrier(gt, k+1, sampleIdx < 0)
		if !carried {
			continue
		}
		typ, length := vcf.Classify(v.Ref, alt, v.Info)
		if typ == variant.Reference {
			continue
		}
		if typ == variant.NoCall && !opts.IncludeNoCalls {
			continue
		}
		c.add(v.Chrom, variant.Record{
			Type:   typ,
			Start:  vcf.ReferenceStart(v.Pos, v.Ref, alt),
			Length: length,
			Allele: allele,
			Source: c.Source,
		})
	}
}

func (c *Calls) siteRecord(v *vcf.Variant, typ variant.Type) variant.Record {
	return variant.Record{Type: typ, Start: int(v.Pos) - 1, Length: len(v.Ref), Allele: variant.Both, Source: c.Source}
}

func allMissing(gt vcf.Genotype) bool {
	for _, a := range gt.Alleles {
		if a >= 0 {
			return false
		}
	}
	return true
}

// carrier reports which haplotypes carry allele index alt. The first
// genotype field is paternal and the second maternal; haploid calls and
// sites-only records apply to both.
func carrier(gt vcf.Genotype, alt int, sitesOnly bool) (variant.Allele, bool) {
	if sitesOnly {
		return variant.Both, true
	}
	switch len(gt.Alleles) {
	case 0:
		return variant.Both, false
	case 1:
		return variant.Both, gt.Alleles[0] == alt
	}
	pat := gt.Alleles[0] == alt
	mat := gt.Alleles[1] == alt
	switch {
	case pat && mat:
		return variant.Both, true
	case pat:
		return variant.Paternal, true
	case mat:
		return variant.Maternal, true
	}
	return variant.Both, false
}

func (c *Calls) add(chrom string, rec variant.Record) {
	if _, seen := c.maxEnd[chrom]; !seen {
		c.chroms = append(c.chroms, chrom)
		c.maxEnd[chrom] = 0
	}
	if end := rec.End(); end > c.maxEnd[chrom] {
		c.maxEnd[chrom] = end
	}
	c.count++
	switch rec.Allele {
	case variant.Paternal, variant.Maternal:
		k := trackKey{chrom, rec.Allele}
		c.tracks[k] = append(c.tracks[k], rec)
	default:
		for _, a := range Haplotypes {
			k := trackKey{chrom, a}
			c.tracks[k] = append(c.tracks[k], rec)
		}
	}
}

// Len returns the number of records read, counting a record carried on both
// haplotypes once.
func (c *Calls) Len() int { return c.count }

// Chromosomes returns the chromosomes with records, in file order.
func (c *Calls) Chromosomes() []string { return slices.Clone(c.chroms) }

// Records returns the sorted records of one haplotype. Both returns the
// paternal track.
func (c *Calls) Records(chrom string, allele variant.Allele) []variant.Record {
	if allele == variant.Both {
		allele = variant.Paternal
	}
	return c.tracks[trackKey{chrom, allele}]
}

// Seq iterates Records(chrom, allele).
func (c *Calls) Seq(chrom string, allele variant.Allele) iter.Seq[variant.Record] {
	return slices.Values(c.Records(chrom, allele))
}

// ChromosomeSet builds the chromosome set from the ##contig header. Without
// contig lines the chromosomes with records are used, sized by their last
// record.
func (c *Calls) ChromosomeSet() (*variant.ChromosomeSet, error) {
	var chroms []variant.Chromosome
	if len(c.Contigs) > 0 {
		for _, ct := range c.Contigs {
			chroms = append(chroms, variant.Chromosome{Name: ct.ID, Length: ct.Length})
		}
	} else {
		for _, name := range c.chroms {
			chroms = append(chroms, variant.Chromosome{Name: name, Length: c.maxEnd[name]})
		}
	}
	return variant.NewChromosomeSet(chroms...)
}
