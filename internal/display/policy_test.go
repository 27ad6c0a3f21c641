package display

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-sync/internal/filter"
	"github.com/inodb/vibe-sync/internal/genome"
	"github.com/inodb/vibe-sync/internal/variant"
	"github.com/inodb/vibe-sync/internal/vcf"
)

func testProject(t *testing.T) *genome.Project {
	t.Helper()
	chroms, err := variant.NewChromosomeSet(variant.Chromosome{Name: "chr1", Length: 1000})
	require.NoError(t, err)
	p := genome.NewProject(chroms)
	g, err := p.AddGenome("child")
	require.NoError(t, err)

	s := genome.NewStore("chr1", variant.Paternal)
	require.NoError(t, s.AddVariant(variant.Record{Type: variant.SNP, Start: 9, Length: 1}))
	require.NoError(t, s.AddVariant(variant.Record{Type: variant.Reference, Start: 15, Length: 1}))
	require.NoError(t, s.AddVariant(variant.Record{Type: variant.Insertion, Start: 20, Length: 2}))
	require.NoError(t, s.AddVariant(variant.Record{Type: variant.Deletion, Start: 30, Length: 2}))
	g.SetStore(s)
	return p
}

// lowQual excludes the insertion at 20 through a FILTER predicate.
func lowQual(t *testing.T, fail bool, policy filter.FailurePolicy) *filter.Results {
	t.Helper()
	r := filter.RetrieverFunc(func(ctx context.Context, req filter.Request) ([]filter.Record, error) {
		if fail {
			return nil, errors.New("unreachable")
		}
		return []filter.Record{
			{Variant: &vcf.Variant{Chrom: "chr1", Pos: 10, Ref: "A", Alt: "G", Filter: "PASS"}},
			{Variant: &vcf.Variant{Chrom: "chr1", Pos: 20, Ref: "A", Alt: "ATT", Filter: "LowQual"}},
		}, nil
	})
	e := filter.NewEngine(r, filter.WithFailurePolicy(policy))
	res, err := e.Reevaluate(context.Background(), filter.Region{Chromosome: "chr1"}, []filter.Spec{
		{Source: "calls.vcf", Column: filter.ColumnFilter, Values: []string{"LowQual"}},
	})
	require.NoError(t, err)
	return res
}

func TestPolicy_DefaultShown(t *testing.T) {
	p := NewPolicy(false, false)
	assert.Equal(t, Hidden, p.PolicyFor("child", variant.Paternal, 9), "nothing rebuilt yet")

	e := filter.NewEngine(filter.RetrieverFunc(func(context.Context, filter.Request) ([]filter.Record, error) {
		return nil, nil
	}))
	res, err := e.Reevaluate(context.Background(), filter.Region{Chromosome: "chr1"}, nil)
	require.NoError(t, err)

	p.Rebuild(testProject(t), res)
	assert.Equal(t, Shown, p.PolicyFor("child", variant.Paternal, 9))
	assert.Equal(t, Shown, p.PolicyFor("child", variant.Paternal, 20))
}

func TestPolicy_Rebuild(t *testing.T) {
	project := testProject(t)
	p := NewPolicy(false, false)
	p.Rebuild(project, lowQual(t, false, filter.FailOpen))

	assert.Equal(t, "chr1", p.Chromosome())
	assert.Equal(t, Shown, p.PolicyFor("child", variant.Paternal, 9))
	assert.Equal(t, Hidden, p.PolicyFor("child", variant.Paternal, 20))
	assert.Equal(t, Shown, p.PolicyFor("child", variant.Both, 30), "both falls back to paternal")
	assert.Equal(t, Hidden, p.PolicyFor("child", variant.Paternal, 15), "reference record")
	assert.Equal(t, Hidden, p.PolicyFor("child", variant.Paternal, 500), "no variant")

	p.SetShowFiltered(true)
	assert.Equal(t, ShownAsFiltered, p.PolicyFor("child", variant.Paternal, 20))

	p.SetShowReference(true)
	assert.Equal(t, Shown, p.PolicyFor("child", variant.Paternal, 15))
	assert.Equal(t, Shown, p.PolicyFor("child", variant.Paternal, 500))

	counts := p.Counts("child", variant.Paternal)
	assert.Equal(t, map[Visibility]int{Shown: 2, ShownAsFiltered: 1}, counts)
}

func TestPolicy_RebuildIdempotent(t *testing.T) {
	project := testProject(t)
	res := lowQual(t, false, filter.FailOpen)
	p := NewPolicy(false, true)

	p.Rebuild(project, res)
	first := p.Counts("child", variant.Paternal)
	for range 3 {
		p.Rebuild(project, res)
	}
	assert.Equal(t, first, p.Counts("child", variant.Paternal))
	assert.Equal(t, ShownAsFiltered, p.PolicyFor("child", variant.Paternal, 20))
}

func TestPolicy_FailOpenShowsEverything(t *testing.T) {
	res := lowQual(t, true, filter.FailOpen)
	require.Error(t, res.Err())

	p := NewPolicy(false, false)
	p.Rebuild(testProject(t), res)
	assert.Equal(t, Shown, p.PolicyFor("child", variant.Paternal, 9))
	assert.Equal(t, Shown, p.PolicyFor("child", variant.Paternal, 20))
}

func TestPolicy_FailClosedHidesEverything(t *testing.T) {
	p := NewPolicy(false, false)
	p.Rebuild(testProject(t), lowQual(t, true, filter.FailClosed))
	assert.Equal(t, Hidden, p.PolicyFor("child", variant.Paternal, 9))
	assert.Equal(t, Hidden, p.PolicyFor("child", variant.Paternal, 30))
}

func TestPolicy_ConcurrentReaders(t *testing.T) {
	project := testProject(t)
	res := lowQual(t, false, filter.FailOpen)
	p := NewPolicy(false, false)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				v := p.PolicyFor("child", variant.Paternal, 20)
				assert.Contains(t, []Visibility{Hidden, Shown}, v)
			}
		}()
	}
	for range 50 {
		p.Rebuild(project, res)
	}
	wg.Wait()
	assert.Equal(t, Hidden, p.PolicyFor("child", variant.Paternal, 20))
}
