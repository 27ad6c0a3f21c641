package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-sync/internal/display"
	"github.com/inodb/vibe-sync/internal/filter"
	"github.com/inodb/vibe-sync/internal/ops"
	"github.com/inodb/vibe-sync/internal/variant"
)

func TestTabWriter_WriteHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf, "Chromosome", "Start")

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Flush())
	assert.Equal(t, "#Chromosome\tStart\n", buf.String())
}

func TestTabWriter_WriteRow(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf, "A", "B", "C")

	require.NoError(t, w.WriteRow("x", "", "z"))
	require.NoError(t, w.Flush())
	assert.Equal(t, "x\t-\tz\n", buf.String())

	assert.Error(t, w.WriteRow("too", "few"))
}

func TestCountsWriter(t *testing.T) {
	var buf bytes.Buffer
	cw, err := NewCountsWriter(&buf)
	require.NoError(t, err)

	counts := map[display.Visibility]int{display.Shown: 3, display.ShownAsFiltered: 1}
	require.NoError(t, cw.Write("child", "chr1", variant.Maternal, counts))
	require.NoError(t, cw.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "#Genome\tChromosome\tAllele\tVisibility\tCount", lines[0])
	assert.Equal(t, "child\tchr1\tmaternal\t"+display.Shown.String()+"\t3", lines[1])
	assert.Equal(t, "child\tchr1\tmaternal\t"+display.Hidden.String()+"\t0", lines[3])
}

func TestWriteFailures(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFailures(&buf, []*filter.SourceError{
		{Source: "gone.vcf", Err: errors.New("no such file")},
	}))
	assert.Equal(t, "#Source\tError\ngone.vcf\tno such file\n", buf.String())
}

func TestWriteSummaries(t *testing.T) {
	var buf bytes.Buffer
	per := []ops.Summary{
		{Chromosome: "chr1", Count: 2, Sum: 3, Min: 1, Max: 2},
		{Chromosome: "chr2"},
	}
	total := ops.Summary{Count: 2, Sum: 3, Min: 1, Max: 2}
	require.NoError(t, WriteSummaries(&buf, per, total))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "chr1\t2\t3\t1\t2\t1.5", lines[1])
	assert.Equal(t, "chr2\t0\t0\t0\t0\t-", lines[2], "empty mean")
	assert.True(t, strings.HasPrefix(lines[3], "all\t2\t"))
	assert.Empty(t, total.Chromosome, "caller value untouched")
}

func TestWritePeaks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePeaks(&buf, []ops.Peak{
		{Chromosome: "chr1", Start: 2, End: 5, Summit: 3, Value: 7},
	}, 100))
	assert.Equal(t, "#Chromosome\tStart\tEnd\tSummit\tValue\nchr1\t200\t500\t300\t7\n", buf.String())
}
