package duckdb

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/inodb/vibe-sync/internal/filter"
	"github.com/inodb/vibe-sync/internal/vcf"
)

// ErrUnknownSource is returned when retrieving from a source that was never
// imported.
var ErrUnknownSource = errors.New("unknown source")

// ImportResult summarizes one ImportFile call.
type ImportResult struct {
	Source  string
	Records int
	Skipped bool
}

// ImportFile imports the VCF at path as source name. Unless force is set,
// a source whose file is unchanged since the last import is skipped.
func (s *Store) ImportFile(ctx context.Context, name, path string, force bool) (ImportResult, error) {
	if name == "" {
		name = filepath.Base(path)
	}
	fp, err := StatFile(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !force {
		prev, ok, err := s.Source(ctx, name)
		if err != nil {
			return ImportResult{}, err
		}
		if ok && prev.Fingerprint.Matches(fp) {
			s.logger.Debug("source unchanged, skipping import", zap.String("source", name))
			return ImportResult{Source: name, Records: int(prev.Records), Skipped: true}, nil
		}
	}

	p, err := vcf.NewParser(path)
	if err != nil {
		return ImportResult{}, err
	}
	defer p.Close()

	n, err := s.ImportVCF(ctx, name, p, fp)
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Source: name, Records: n}, nil
}

// ImportVCF replaces the records of source name with every variant of p,
// batch-inserted with the Appender API.
func (s *Store) ImportVCF(ctx context.Context, name string, p *vcf.Parser, fp FileFingerprint) (int, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "DELETE FROM variant_records WHERE source = ?", name); err != nil {
		return 0, fmt.Errorf("clear source %s: %w", name, err)
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "variant_records")
		return err
	}); err != nil {
		return 0, fmt.Errorf("create appender: %w", err)
	}

	n := 0
	for {
		if n%10000 == 0 {
			if err := ctx.Err(); err != nil {
				appender.Close()
				return 0, err
			}
		}
		v, err := p.Next()
		if err != nil {
			appender.Close()
			return 0, fmt.Errorf("read %s: %w", name, err)
		}
		if v == nil {
			break
		}
		if err := appender.AppendRow(
			name, v.Chrom, v.Pos, int64(recordStart(v)), v.ID, v.Ref, v.Alt,
			v.Qual, v.Filter, vcf.FormatInfo(v.Info),
			strings.Join(v.Format, ":"), joinSamples(v.Samples),
		); err != nil {
			appender.Close()
			return 0, fmt.Errorf("append record: %w", err)
		}
		n++
	}
	if err := appender.Close(); err != nil {
		return 0, fmt.Errorf("flush records: %w", err)
	}

	if _, err := conn.ExecContext(ctx, `INSERT OR REPLACE INTO sources VALUES (?, ?, ?, ?, ?, ?)`,
		name, fp.Path, fp.Size, fp.ModTime.UTC().Truncate(time.Microsecond),
		strings.Join(p.SampleNames(), "\t"), int64(n)); err != nil {
		return 0, fmt.Errorf("record source %s: %w", name, err)
	}

	s.logger.Info("imported source",
		zap.String("source", name),
		zap.Int("records", n),
		zap.Int("samples", len(p.SampleNames())))
	return n, nil
}

// recordStart is the smallest 0-based reference start among the alleles.
func recordStart(v *vcf.Variant) int {
	start := v.ReferenceStart()
	for _, alt := range v.Alts() {
		start = min(start, vcf.ReferenceStart(v.Pos, v.Ref, alt))
	}
	return start
}

func joinSamples(samples [][]string) string {
	parts := make([]string, len(samples))
	for i, s := range samples {
		parts[i] = strings.Join(s, ":")
	}
	return strings.Join(parts, "\t")
}

func splitSamples(s string) [][]string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "\t")
	out := make([][]string, len(parts))
	for i, p := range parts {
		out[i] = strings.Split(p, ":")
	}
	return out
}

// DeleteSource removes every record and the metadata of source name.
func (s *Store) DeleteSource(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM variant_records WHERE source = ?", name); err != nil {
		return fmt.Errorf("delete records of %s: %w", name, err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sources WHERE source = ?", name); err != nil {
		return fmt.Errorf("delete source %s: %w", name, err)
	}
	return nil
}

// Chromosomes lists the chromosomes with records in source name.
func (s *Store) Chromosomes(ctx context.Context, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chrom FROM variant_records
		WHERE source = ? GROUP BY chrom ORDER BY chrom`, name)
	if err != nil {
		return nil, fmt.Errorf("query chromosomes: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var chrom string
		if err := rows.Scan(&chrom); err != nil {
			return nil, fmt.Errorf("scan chromosome: %w", err)
		}
		out = append(out, chrom)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chromosomes: %w", err)
	}
	return out, nil
}

// columnSQL maps filter columns to the table columns they need. ALT and the
// position columns are always selected.
var columnSQL = map[filter.Column][]string{
	filter.ColumnID:       {"id"},
	filter.ColumnFilter:   {"filter"},
	filter.ColumnQual:     {"qual"},
	filter.ColumnInfo:     {"info"},
	filter.ColumnGenotype: {"format", "samples"},
}

// Retrieve implements filter.Retriever, selecting only the columns the
// request needs.
func (s *Store) Retrieve(ctx context.Context, req filter.Request) ([]filter.Record, error) {
	info, ok, err := s.Source(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, req.Source)
	}

	cols := []string{"chrom", "pos", "ref", "alt"}
	for _, c := range req.Columns {
		cols = append(cols, columnSQL[c]...)
	}
	query := fmt.Sprintf(`SELECT %s FROM variant_records
		WHERE source = ? AND chrom IN (?, ?) AND ref_start >= ? AND (? <= 0 OR ref_start < ?)
		ORDER BY pos`, strings.Join(cols, ", "))

	rows, err := s.db.QueryContext(ctx, query, req.Source,
		req.Chromosome, alternateChromName(req.Chromosome),
		int64(req.Start), int64(req.End), int64(req.End))
	if err != nil {
		return nil, fmt.Errorf("query records of %s: %w", req.Source, err)
	}
	defer rows.Close()

	var out []filter.Record
	for rows.Next() {
		v := &vcf.Variant{}
		var infoCol, format, samples string
		dest := []any{&v.Chrom, &v.Pos, &v.Ref, &v.Alt}
		for _, c := range cols[4:] {
			switch c {
			case "id":
				dest = append(dest, &v.ID)
			case "filter":
				dest = append(dest, &v.Filter)
			case "qual":
				dest = append(dest, &v.Qual)
			case "info":
				dest = append(dest, &infoCol)
			case "format":
				dest = append(dest, &format)
			case "samples":
				dest = append(dest, &samples)
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		v.Info = vcf.ParseInfo(infoCol)
		if format != "" {
			v.Format = strings.Split(format, ":")
			v.Samples = splitSamples(samples)
		}
		out = append(out, filter.Record{Variant: v, Samples: info.SampleNames})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// alternateChromName returns name with the "chr" prefix toggled.
func alternateChromName(name string) string {
	if trimmed, ok := strings.CutPrefix(name, "chr"); ok {
		return trimmed
	}
	return "chr" + name
}
