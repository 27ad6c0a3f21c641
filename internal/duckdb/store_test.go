package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-sync/internal/filter"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

const callsVCF = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	mother	child
chr1	100	rs1	A	G	50	PASS	DP=20;SOMATIC	GT:DP	0|1:10	1|1:9
chr1	150	.	A	ATT	12	LowQual	DP=3	GT	0/0	0/1
chr1	300	.	ACG	A,AC	40	PASS	.	GT	1/2	0/0
chr2	10	rs9	C	T	60	PASS	AF=0.5	GT	1/1	./.
`

func writeVCF(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
}

func TestImportFile(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	path := writeVCF(t, "calls.vcf", callsVCF)

	res, err := s.ImportFile(ctx, "", path, false)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Source: "calls.vcf", Records: 4}, res)

	sources, err := s.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, []string{"mother", "child"}, sources[0].SampleNames)
	assert.Equal(t, int64(4), sources[0].Records)

	// Unchanged file is skipped.
	res, err = s.ImportFile(ctx, "", path, false)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 4, res.Records)

	// A modified file is re-imported and replaces the old rows.
	require.NoError(t, os.WriteFile(path, []byte(callsVCF[:len(callsVCF)-len("chr2\t10\trs9\tC\tT\t60\tPASS\tAF=0.5\tGT\t1/1\t./.\n")]), 0o644))
	require.NoError(t, os.Chtimes(path, time.Now(), time.Now().Add(time.Minute)))
	res, err = s.ImportFile(ctx, "", path, false)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 3, res.Records)

	chroms, err := s.Chromosomes(ctx, "calls.vcf")
	require.NoError(t, err)
	assert.Equal(t, []string{"chr1"}, chroms)
}

func TestRetrieve(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	_, err := s.ImportFile(ctx, "calls", writeVCF(t, "calls.vcf", callsVCF), false)
	require.NoError(t, err)

	recs, err := s.Retrieve(ctx, filter.Request{
		Source:     "calls",
		Columns:    []filter.Column{filter.ColumnFilter, filter.ColumnGenotype, filter.ColumnInfo},
		Chromosome: "chr1",
	})
	require.NoError(t, err)
	require.Len(t, recs, 3)

	first := recs[0]
	assert.Equal(t, int64(100), first.Pos)
	assert.Equal(t, "PASS", first.Filter)
	assert.Equal(t, "20", first.Info["DP"])
	assert.Contains(t, first.Info, "SOMATIC")
	assert.Equal(t, "1|1", first.Genotype(1).String())
	assert.Equal(t, "9", first.SampleValue(1, "DP"))
	assert.Equal(t, []string{"mother", "child"}, first.Samples)
	assert.Empty(t, first.ID, "ID not requested")

	// Predicates evaluate on retrieved records.
	spec := filter.Spec{Source: "calls", Column: filter.ColumnGenotype, Values: []string{"HET"}, Genomes: []string{"child"}}
	assert.True(t, filter.Evaluate(spec, recs[1]))
	assert.False(t, filter.Evaluate(spec, recs[0]))
}

func TestRetrieve_RangeAndChromAlias(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	_, err := s.ImportFile(ctx, "calls", writeVCF(t, "calls.vcf", callsVCF), false)
	require.NoError(t, err)

	recs, err := s.Retrieve(ctx, filter.Request{
		Source:     "calls",
		Columns:    []filter.Column{filter.ColumnID, filter.ColumnQual},
		Chromosome: "1",
		Start:      100,
		End:        300,
	})
	require.NoError(t, err)
	require.Len(t, recs, 1, "only the insertion starting at 150")
	assert.Equal(t, int64(150), recs[0].Pos)
	assert.Equal(t, 12.0, recs[0].Qual)

	recs, err = s.Retrieve(ctx, filter.Request{Source: "calls", Columns: []filter.Column{filter.ColumnID}, Chromosome: "chr1", Start: 300})
	require.NoError(t, err)
	require.Len(t, recs, 1, "multi-allelic deletion starts at 300")
	assert.Equal(t, "A,AC", recs[0].Alt)
}

func TestRetrieve_UnknownSource(t *testing.T) {
	s := openInMemory(t)
	_, err := s.Retrieve(context.Background(), filter.Request{Source: "nope", Chromosome: "chr1"})
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestRetrieve_WithEngine(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	_, err := s.ImportFile(ctx, "calls", writeVCF(t, "calls.vcf", callsVCF), false)
	require.NoError(t, err)

	e := filter.NewEngine(s)
	res, err := e.Reevaluate(ctx, filter.Region{Chromosome: "chr1"}, []filter.Spec{
		{Source: "calls", Column: filter.ColumnQual, Min: ptr(20), Required: true},
		{Source: "missing", Column: filter.ColumnID},
	})
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err(), ErrUnknownSource)
	assert.True(t, res.Excluded("child", 150), "QUAL 12 fails the required minimum")
	assert.False(t, res.Excluded("child", 99))
}

func TestDeleteSource(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	_, err := s.ImportFile(ctx, "calls", writeVCF(t, "calls.vcf", callsVCF), false)
	require.NoError(t, err)

	require.NoError(t, s.DeleteSource(ctx, "calls"))
	_, ok, err := s.Source(ctx, "calls")
	require.NoError(t, err)
	assert.False(t, ok)
	chroms, err := s.Chromosomes(ctx, "calls")
	require.NoError(t, err)
	assert.Empty(t, chroms)
}

func TestFileFingerprint(t *testing.T) {
	path := writeVCF(t, "a.vcf", "x")
	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fp.Size)

	assert.True(t, fp.Matches(fp))
	other := fp
	other.ModTime = fp.ModTime.Add(time.Millisecond)
	assert.False(t, fp.Matches(other))
	other = fp
	other.Size++
	assert.False(t, fp.Matches(other))

	_, err = StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func ptr(f float64) *float64 { return &f }
