package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/inodb/vibe-sync/internal/display"
	"github.com/inodb/vibe-sync/internal/filter"
	"github.com/inodb/vibe-sync/internal/ingest"
	"github.com/inodb/vibe-sync/internal/pool"
	"github.com/inodb/vibe-sync/internal/variant"
)

const callsVCF = `##contig=<ID=chr1,length=1000>
##contig=<ID=chr2,length=500>
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	child
chr1	50	.	ACGT	A	40	PASS	.	GT	1|1
chr1	100	.	A	ATTTTT	50	LowQual	.	GT	0|1
chr2	20	rs7	G	C	50	PASS	.	GT	1/1
`

const extraVCF = `#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	child
chr1	10	.	C	CA	30	PASS	.	GT	1|1
chr1	300	.	T	G	30	PASS	.	GT	1|1
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestSession(t *testing.T) (*Session, []*ingest.Calls, string) {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()

	main, err := ingest.Load(ctx, writeFile(t, dir, "calls.vcf", callsVCF), ingest.Options{})
	require.NoError(t, err)
	extra, err := ingest.Load(ctx, writeFile(t, dir, "extra.vcf", extraVCF), ingest.Options{})
	require.NoError(t, err)

	chroms, err := main.ChromosomeSet()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Parallelism = 2
	s, err := New(cfg, chroms, ingest.FileRetriever{Dir: dir}, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return s, []*ingest.Calls{main, extra}, dir
}

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.GreaterOrEqual(t, cfg.Parallelism, 1)
	assert.Equal(t, 16, cfg.Index.MinIncrement)
	assert.True(t, cfg.Display.ShowFiltered)
	assert.Equal(t, filter.FailOpen, cfg.FailurePolicy())
}

func TestConfig_FromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("parallelism", 3)
	v.Set("filters.fail_closed", true)
	v.Set("index.max_increment", 64)

	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Parallelism)
	assert.Equal(t, 64, cfg.Index.MaxIncrement)
	assert.Equal(t, filter.FailClosed, cfg.FailurePolicy())

	v.Set("parallelism", 0)
	_, err = LoadConfig(v)
	assert.Error(t, err)
}

func TestSynchronize(t *testing.T) {
	s, sources, _ := newTestSession(t)

	var states []pool.State
	err := s.Synchronize(context.Background(), "child", sources, pool.WithStateObserver(func(st pool.State) {
		states = append(states, st)
	}))
	require.NoError(t, err)
	assert.Equal(t, []pool.State{pool.Idle, pool.Running, pool.Completed}, states)

	pat, ok := s.Project.Store("child", "chr1", variant.Paternal)
	require.True(t, ok)
	mat, ok := s.Project.Store("child", "chr1", variant.Maternal)
	require.True(t, ok)

	// Sources are merged in start order.
	assert.Equal(t, []int{10, 50, 299}, starts(pat))
	assert.Equal(t, []int{10, 50, 100, 299}, starts(mat))

	// Maternal chr1: +1 at 10, -3 at 50, +5 at 100.
	g, err := s.Computer.ToGenomePosition("child", "chr1", variant.Maternal, 200)
	require.NoError(t, err)
	assert.Equal(t, 203, g)
	r, err := s.Computer.ToReferencePosition("child", "chr1", variant.Maternal, 203)
	require.NoError(t, err)
	assert.Equal(t, 200, r)

	g, err = s.Computer.ToGenomePosition("child", "chr1", variant.Paternal, 200)
	require.NoError(t, err)
	assert.Equal(t, 198, g)

	_, ok = s.Project.Store("child", "chr2", variant.Both)
	assert.True(t, ok)
}

func starts(st interface{ Records() []variant.Record }) []int {
	var out []int
	for _, r := range st.Records() {
		out = append(out, r.Start)
	}
	return out
}

func TestSynchronize_CancelledLeavesGenomeEmpty(t *testing.T) {
	s, sources, _ := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Synchronize(ctx, "child", sources)
	require.ErrorIs(t, err, pool.ErrOperationCancelled)
	_, ok := s.Project.Store("child", "chr1", variant.Paternal)
	assert.False(t, ok)
}

func TestApplyFilters(t *testing.T) {
	s, sources, _ := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Synchronize(ctx, "child", sources))

	specs := []filter.Spec{
		{Source: "calls.vcf", Column: filter.ColumnFilter, Values: []string{"LowQual"}},
		{Source: "gone.vcf", Column: filter.ColumnID, Required: true},
	}
	res, err := s.ApplyFilters(ctx, filter.Region{Chromosome: "chr1"}, specs)
	require.NoError(t, err)
	require.Len(t, res.Failures, 1, "missing source fails open")
	assert.ErrorIs(t, res.Err(), filter.ErrSourceRetrieval)

	assert.Equal(t, display.ShownAsFiltered, s.Policy.PolicyFor("child", variant.Maternal, 100))
	assert.Equal(t, display.Shown, s.Policy.PolicyFor("child", variant.Maternal, 50))
	assert.Equal(t, display.Hidden, s.Policy.PolicyFor("child", variant.Maternal, 75), "reference hidden by default")

	s.Policy.SetShowFiltered(false)
	assert.Equal(t, display.Hidden, s.Policy.PolicyFor("child", variant.Maternal, 100))
}

func TestSetChromosomesKeepsSurvivors(t *testing.T) {
	s, sources, _ := newTestSession(t)
	require.NoError(t, s.Synchronize(context.Background(), "child", sources))

	chroms, err := variant.NewChromosomeSet(variant.Chromosome{Name: "chr2", Length: 500})
	require.NoError(t, err)
	s.SetChromosomes(chroms)

	_, ok := s.Project.Store("child", "chr1", variant.Paternal)
	assert.False(t, ok)
	_, ok = s.Project.Store("child", "chr2", variant.Paternal)
	assert.True(t, ok)
}
