package output

import (
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/inodb/vibe-sync/internal/display"
	"github.com/inodb/vibe-sync/internal/filter"
	"github.com/inodb/vibe-sync/internal/ops"
	"github.com/inodb/vibe-sync/internal/variant"
)

// visibilities is the row order of WriteCounts.
var visibilities = []display.Visibility{display.Shown, display.ShownAsFiltered, display.Hidden}

// CountsWriter reports per-store visibility tallies.
type CountsWriter struct {
	tw *TabWriter
}

// NewCountsWriter writes the header and returns a CountsWriter.
func NewCountsWriter(w io.Writer) (*CountsWriter, error) {
	tw := NewTabWriter(w, "Genome", "Chromosome", "Allele", "Visibility", "Count")
	if err := tw.WriteHeader(); err != nil {
		return nil, err
	}
	return &CountsWriter{tw: tw}, nil
}

// Write writes one row per visibility, zero counts included.
func (cw *CountsWriter) Write(genomeName, chrom string, allele variant.Allele, counts map[display.Visibility]int) error {
	for _, v := range visibilities {
		if err := cw.tw.WriteRow(genomeName, chrom, allele.String(), v.String(), strconv.Itoa(counts[v])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes buffered rows.
func (cw *CountsWriter) Flush() error { return cw.tw.Flush() }

// WriteFailures writes one row per failed source retrieval.
func WriteFailures(w io.Writer, failures []*filter.SourceError) error {
	tw := NewTabWriter(w, "Source", "Error")
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, f := range failures {
		if err := tw.WriteRow(f.Source, f.Err.Error()); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteSummaries writes per-chromosome summaries followed by the total,
// whose chromosome column reads "all".
func WriteSummaries(w io.Writer, perChrom []ops.Summary, total ops.Summary) error {
	tw := NewTabWriter(w, "Chromosome", "Count", "Sum", "Min", "Max", "Mean")
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	total.Chromosome = "all"
	for _, s := range append(slices.Clip(perChrom), total) {
		if err := tw.WriteRow(s.Chromosome, strconv.Itoa(s.Count),
			formatFloat(s.Sum), formatFloat(s.Min), formatFloat(s.Max), formatFloat(s.Mean())); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WritePeaks writes one row per peak with bin coordinates scaled by bin
// into reference positions.
func WritePeaks(w io.Writer, peaks []ops.Peak, bin int) error {
	tw := NewTabWriter(w, "Chromosome", "Start", "End", "Summit", "Value")
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, p := range peaks {
		if err := tw.WriteRow(p.Chromosome,
			strconv.Itoa(p.Start*bin), strconv.Itoa(p.End*bin), strconv.Itoa(p.Summit*bin),
			formatFloat(p.Value)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'g', 6, 64)
}
