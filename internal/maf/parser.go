// Package maf reads MAF (Mutation Annotation Format) files as variant calls.
package maf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/vibe-sync/internal/vcf"
)

// Standard MAF column names
const (
	ColChromosome         = "Chromosome"
	ColStartPosition      = "Start_Position"
	ColEndPosition        = "End_Position"
	ColReferenceAllele    = "Reference_Allele"
	ColTumorSeqAllele1    = "Tumor_Seq_Allele1"
	ColTumorSeqAllele2    = "Tumor_Seq_Allele2"
	ColTumorSampleBarcode = "Tumor_Sample_Barcode"
	ColDbSNPRS            = "dbSNP_RS"
	ColFilter             = "FILTER"
)

// ColumnIndices holds the indices of the MAF columns a Parser reads. Absent
// optional columns are -1.
type ColumnIndices struct {
	Chromosome         int
	StartPosition      int
	EndPosition        int
	ReferenceAllele    int
	TumorSeqAllele1    int
	TumorSeqAllele2    int
	TumorSampleBarcode int
	DbSNPRS            int
	Filter             int
}

// anchor pads MAF indels, which carry no reference context, into the VCF
// convention of a shared leading base.
const anchor = "N"

// Parser reads variants from a MAF file. Each row becomes one variant with
// a GT built from the two tumor alleles. Variants keep VCF conventions so
// they can be ingested like VCF records.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	columns    ColumnIndices
	headerLine string
	sample     string
}

// Option configures a Parser.
type Option func(*Parser)

// WithSample keeps only the rows of one Tumor_Sample_Barcode.
func WithSample(barcode string) Option {
	return func(p *Parser) { p.sample = barcode }
}

// NewParser creates a new MAF parser for the given file.
// Supports both plain MAF and gzipped MAF (.maf.gz) files.
func NewParser(path string, opts ...Option) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin, opts...)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open maf file: %w", err)
	}

	p := &Parser{file: file}
	for _, opt := range opts {
		opt(p)
	}

	buf := make([]byte, 2)
	if _, err := io.ReadFull(file, buf); err != nil {
		file.Close()
		return nil, fmt.Errorf("read maf header: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek maf file: %w", err)
	}

	if buf[0] == 0x1f && buf[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader, opts ...Option) (*Parser, error) {
	p := &Parser{reader: bufio.NewReader(r)}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.parseHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

// parseHeader skips '#' comment lines and reads the column header.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return &ParseError{Line: p.lineNumber, Message: "no header line found"}
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p.headerLine = line
		return p.parseColumnIndices(line)
	}
}

func (p *Parser) parseColumnIndices(headerLine string) error {
	p.columns = ColumnIndices{
		Chromosome:         -1,
		StartPosition:      -1,
		EndPosition:        -1,
		ReferenceAllele:    -1,
		TumorSeqAllele1:    -1,
		TumorSeqAllele2:    -1,
		TumorSampleBarcode: -1,
		DbSNPRS:            -1,
		Filter:             -1,
	}

	for i, col := range strings.Split(headerLine, "\t") {
		switch col {
		case ColChromosome:
			p.columns.Chromosome = i
		case ColStartPosition:
			p.columns.StartPosition = i
		case ColEndPosition:
			p.columns.EndPosition = i
		case ColReferenceAllele:
			p.columns.ReferenceAllele = i
		case ColTumorSeqAllele1:
			p.columns.TumorSeqAllele1 = i
		case ColTumorSeqAllele2:
			p.columns.TumorSeqAllele2 = i
		case ColTumorSampleBarcode:
			p.columns.TumorSampleBarcode = i
		case ColDbSNPRS:
			p.columns.DbSNPRS = i
		case ColFilter:
			p.columns.Filter = i
		}
	}

	for _, req := range []struct {
		name string
		idx  int
	}{
		{ColChromosome, p.columns.Chromosome},
		{ColStartPosition, p.columns.StartPosition},
		{ColReferenceAllele, p.columns.ReferenceAllele},
		{ColTumorSeqAllele2, p.columns.TumorSeqAllele2},
	} {
		if req.idx == -1 {
			return &ParseError{
				Line:    p.lineNumber,
				Message: fmt.Sprintf("required column '%s' not found in header", req.name),
			}
		}
	}
	if p.sample != "" && p.columns.TumorSampleBarcode == -1 {
		return &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("sample %q requested but '%s' not found in header", p.sample, ColTumorSampleBarcode),
		}
	}
	return nil
}

// Next reads the next variant from the MAF file.
// Returns nil, nil when there are no more variants.
func (p *Parser) Next() (*vcf.Variant, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		v, keep, err := p.parseLine(line)
		if err != nil {
			return nil, err
		}
		if keep {
			return v, nil
		}
	}
}

func field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// parseLine converts a MAF row into a Variant. keep is false for rows of
// another sample.
func (p *Parser) parseLine(line string) (*vcf.Variant, bool, error) {
	fields := strings.Split(line, "\t")

	minCols := max(p.columns.Chromosome, p.columns.StartPosition, p.columns.ReferenceAllele, p.columns.TumorSeqAllele2)
	if len(fields) <= minCols {
		return nil, false, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least %d columns, found %d", minCols+1, len(fields)),
		}
	}
	if p.sample != "" && field(fields, p.columns.TumorSampleBarcode) != p.sample {
		return nil, false, nil
	}

	start, err := strconv.ParseInt(fields[p.columns.StartPosition], 10, 64)
	if err != nil {
		return nil, false, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid position: %s", fields[p.columns.StartPosition]),
		}
	}

	ref := fields[p.columns.ReferenceAllele]
	alt2 := fields[p.columns.TumorSeqAllele2]
	alt1 := field(fields, p.columns.TumorSeqAllele1)
	if alt1 == "" {
		alt1 = ref
	}

	pos, vcfRef, alt := toVCF(start, ref, alt2)

	v := &vcf.Variant{
		Chrom:  fields[p.columns.Chromosome],
		Pos:    pos,
		ID:     ".",
		Ref:    vcfRef,
		Alt:    alt,
		Filter: ".",
		Info:   map[string]string{},
	}
	if id := field(fields, p.columns.DbSNPRS); id != "" && id != "novel" {
		v.ID = id
	}
	if f := field(fields, p.columns.Filter); f != "" {
		v.Filter = f
	}
	if p.sample != "" {
		v.Format = []string{"GT"}
		v.Samples = [][]string{{genotype(ref, alt1, alt2)}}
	}
	return v, true, nil
}

// toVCF converts MAF coordinates and alleles into a VCF position and
// alleles. Indels gain a leading anchor base: insertions sit after
// Start_Position and deletions begin at it.
func toVCF(start int64, ref, alt string) (int64, string, string) {
	if ref == "-" {
		ref = ""
	}
	if alt == "-" {
		alt = ""
	}
	switch {
	case ref == "" && alt == "":
		return start, anchor, anchor
	case ref == "":
		return start, anchor, anchor + alt
	case alt == "" || len(ref) != len(alt):
		return start - 1, anchor + ref, anchor + alt
	}
	return start, ref, alt
}

// genotype builds an unphased GT from the two tumor alleles.
func genotype(ref, alt1, alt2 string) string {
	if alt1 != ref && alt1 == alt2 {
		return "1/1"
	}
	// A second, different ALT is not represented.
	return "0/1"
}

// SampleNames returns the selected sample, or nil when every row is read.
func (p *Parser) SampleNames() []string {
	if p.sample == "" {
		return nil
	}
	return []string{p.sample}
}

// Contigs returns nil; MAF carries no contig lengths.
func (p *Parser) Contigs() []vcf.Contig { return nil }

// Header returns the MAF header line.
func (p *Parser) Header() string {
	return p.headerLine
}

// Columns returns the parsed column indices.
func (p *Parser) Columns() ColumnIndices {
	return p.columns
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents an error during MAF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("maf parse error at line %d: %s", e.Line, e.Message)
}
