package filter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-sync/internal/vcf"
)

func ptr(f float64) *float64 { return &f }

func testRecord() Record {
	return Record{
		Variant: &vcf.Variant{
			Chrom:   "chr1",
			Pos:     100,
			ID:      "rs1;COSV9",
			Ref:     "A",
			Alt:     "G,T",
			Qual:    42,
			Filter:  "PASS",
			Info:    map[string]string{"AF": "0.25,0.1", "DB": "", "CSQ": "missense,stop_gained"},
			Format:  []string{"GT"},
			Samples: [][]string{{"0|1"}, {"1/1"}, {"./."}},
		},
		Samples: []string{"mother", "father", "child"},
	}
}

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{"id", Spec{Source: "a.vcf", Column: ColumnID}, false},
		{"missing source", Spec{Column: ColumnID}, true},
		{"qual without bounds", Spec{Source: "a.vcf", Column: ColumnQual}, true},
		{"qual bounds", Spec{Source: "a.vcf", Column: ColumnQual, Min: ptr(10)}, false},
		{"inverted bounds", Spec{Source: "a.vcf", Column: ColumnQual, Min: ptr(10), Max: ptr(1)}, true},
		{"info without key", Spec{Source: "a.vcf", Column: ColumnInfo}, true},
		{"unknown column", Spec{Source: "a.vcf", Column: "POS"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSpec_EqualByValue(t *testing.T) {
	a := Spec{Source: "a.vcf", Column: ColumnAlt, Values: []string{"G", "T"}, Genomes: []string{"x", "y"}}
	b := Spec{Source: "a.vcf", Column: ColumnAlt, Values: []string{"T", "G"}, Genomes: []string{"y", "x"}}
	assert.True(t, a.Equal(b))

	b.Required = true
	assert.False(t, a.Equal(b))

	c := Spec{Source: "a.vcf", Column: ColumnQual, Min: ptr(1)}
	d := Spec{Source: "a.vcf", Column: ColumnQual, Min: ptr(1)}
	assert.True(t, c.Equal(d), "bounds compare by value, not pointer")
}

func TestEvaluate(t *testing.T) {
	rec := testRecord()
	tests := []struct {
		name string
		spec Spec
		want bool
	}{
		{"has id", Spec{Column: ColumnID}, true},
		{"id listed", Spec{Column: ColumnID, Values: []string{"COSV9"}}, true},
		{"id not listed", Spec{Column: ColumnID, Values: []string{"rs2"}}, false},
		{"alt case-insensitive", Spec{Column: ColumnAlt, Values: []string{"t"}}, true},
		{"filter defaults to PASS", Spec{Column: ColumnFilter}, true},
		{"filter other", Spec{Column: ColumnFilter, Values: []string{"LowQual"}}, false},
		{"qual in range", Spec{Column: ColumnQual, Min: ptr(40), Max: ptr(50)}, true},
		{"qual below", Spec{Column: ColumnQual, Min: ptr(50)}, false},
		{"info range uses first value", Spec{Column: ColumnInfo, Key: "AF", Max: ptr(0.3)}, true},
		{"info range miss", Spec{Column: ColumnInfo, Key: "AF", Min: ptr(0.3)}, false},
		{"info values", Spec{Column: ColumnInfo, Key: "CSQ", Values: []string{"stop_gained"}}, true},
		{"info flag", Spec{Column: ColumnInfo, Key: "DB"}, true},
		{"info absent", Spec{Column: ColumnInfo, Key: "SOMATIC"}, false},
		{"gt any sample", Spec{Column: ColumnGenotype, Values: []string{"hom_alt"}}, true},
		{"gt restricted", Spec{Column: ColumnGenotype, Values: []string{"HOM_ALT"}, Genomes: []string{"mother"}}, false},
		{"gt unknown sample", Spec{Column: ColumnGenotype, Values: []string{"HET"}, Genomes: []string{"nobody"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.spec, rec))
		})
	}
}

func TestExcludes_Polarity(t *testing.T) {
	rec := testRecord()
	forbid := Spec{Source: "a", Column: ColumnFilter}
	needed := Spec{Source: "a", Column: ColumnFilter, Values: []string{"LowQual"}, Required: true}

	assert.True(t, Excludes(forbid, rec, "child"))
	assert.True(t, Excludes(needed, rec, "child"), "required spec hides non-matching records")

	scoped := Spec{Source: "a", Column: ColumnFilter, Genomes: []string{"mother"}}
	assert.True(t, Excludes(scoped, rec, "mother"))
	assert.False(t, Excludes(scoped, rec, "father"))
}

func TestIncrementalUpdate(t *testing.T) {
	a := Spec{Source: "a.vcf", Column: ColumnID}
	b := Spec{Source: "b.vcf", Column: ColumnFilter}
	c := Spec{Source: "b.vcf", Column: ColumnQual, Min: ptr(30)}

	got := IncrementalUpdate([]Spec{a, b}, []Spec{b, c}, false)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(c))

	got = IncrementalUpdate([]Spec{a, b}, []Spec{b, c}, true)
	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(b))
	assert.True(t, got[1].Equal(c))

	assert.Empty(t, IncrementalUpdate([]Spec{a}, nil, false))
}

func TestGroupBySource(t *testing.T) {
	specs := []Spec{
		{Source: "b.vcf", Column: ColumnFilter},
		{Source: "a.vcf", Column: ColumnID},
		{Source: "b.vcf", Column: ColumnQual, Min: ptr(1)},
		{Source: "b.vcf", Column: ColumnFilter, Values: []string{"q10"}},
	}
	groups := GroupBySource(specs)
	assert.Equal(t, []string{"a.vcf", "b.vcf"}, Sources(groups))
	require.Len(t, groups["b.vcf"], 3)
	assert.Equal(t, []Column{ColumnFilter, ColumnQual}, RequiredColumns(groups["b.vcf"]))
}

func TestLoadSpecs(t *testing.T) {
	input := `
filters:
  - source: calls.vcf.gz
    column: QUAL
    min: 20
    required: true
  - source: dbsnp.vcf
    column: ID
    genomes: [child]
`
	specs, err := LoadSpecs(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, ColumnQual, specs[0].Column)
	require.NotNil(t, specs[0].Min)
	assert.Equal(t, 20.0, *specs[0].Min)
	assert.True(t, specs[0].Required)
	assert.Equal(t, []string{"child"}, specs[1].Genomes)

	var buf bytes.Buffer
	require.NoError(t, WriteSpecs(&buf, specs))
	again, err := LoadSpecs(&buf)
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.True(t, again[0].Equal(specs[0]))

	empty, err := LoadSpecs(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = LoadSpecs(strings.NewReader("filters:\n  - column: ID\n"))
	assert.Error(t, err, "spec without source is rejected")
}
