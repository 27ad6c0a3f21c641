package vcf

import (
	"testing"

	"github.com/inodb/vibe-sync/internal/variant"
)

func TestVariant_IsSNV(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		alt  string
		want bool
	}{
		{"A to G", "A", "G", true},
		{"deletion", "AT", "A", false},
		{"insertion", "A", "AT", false},
		{"MNV", "AT", "GC", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Variant{Ref: tt.ref, Alt: tt.alt}
			if got := v.IsSNV(); got != tt.want {
				t.Errorf("IsSNV() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		alt     string
		info    map[string]string
		wantTyp variant.Type
		wantLen int
	}{
		{"SNP", "A", "G", nil, variant.SNP, 1},
		{"insertion", "A", "ATTT", nil, variant.Insertion, 3},
		{"deletion", "ACGT", "A", nil, variant.Deletion, 3},
		{"symbolic deletion", "A", "<DEL>", map[string]string{"SVLEN": "-500"}, variant.StructuralVariant, 500},
		{"symbolic without length", "A", "<INV>", nil, variant.StructuralVariant, 0},
		{"spanning deletion", "A", "*", nil, variant.NoCall, 0},
		{"reference", "A", ".", nil, variant.Reference, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, n := Classify(tt.ref, tt.alt, tt.info)
			if typ != tt.wantTyp || n != tt.wantLen {
				t.Errorf("Classify() = %v,%d, want %v,%d", typ, n, tt.wantTyp, tt.wantLen)
			}
		})
	}
}

func TestReferenceStart(t *testing.T) {
	tests := []struct {
		name string
		pos  int64
		ref  string
		alt  string
		want int
	}{
		{"SNP is 0-based", 100, "A", "G", 99},
		{"padded insertion starts after anchor", 100, "A", "ATT", 100},
		{"padded deletion starts after anchor", 50, "ACGT", "A", 50},
		{"unpadded deletion", 50, "CGT", "", 49},
		{"symbolic", 10, "A", "<DEL>", 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReferenceStart(tt.pos, tt.ref, tt.alt); got != tt.want {
				t.Errorf("ReferenceStart() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseGenotype(t *testing.T) {
	tests := []struct {
		gt     string
		class  string
		phased bool
	}{
		{"0/0", "HOM_REF", false},
		{"0|1", "HET", true},
		{"1/2", "HET", false},
		{"1/1", "HOM_ALT", false},
		{"./.", "NO_CALL", false},
		{"1", "HEMI_ALT", false},
		{"", "NO_CALL", false},
	}

	for _, tt := range tests {
		t.Run(tt.gt, func(t *testing.T) {
			g := ParseGenotype(tt.gt)
			if got := g.Class(); got != tt.class {
				t.Errorf("Class() = %s, want %s", got, tt.class)
			}
			if g.Phased != tt.phased {
				t.Errorf("Phased = %v, want %v", g.Phased, tt.phased)
			}
		})
	}

	if got := ParseGenotype("0|1").String(); got != "0|1" {
		t.Errorf("String() = %q, want 0|1", got)
	}
}

func TestVariant_SampleValue(t *testing.T) {
	v := &Variant{
		Format:  []string{"GT", "DP"},
		Samples: [][]string{{"0/1", "12"}, {"1|1"}},
	}
	if got := v.SampleValue(0, "DP"); got != "12" {
		t.Errorf("SampleValue(0, DP) = %q", got)
	}
	if got := v.SampleValue(1, "DP"); got != "" {
		t.Errorf("SampleValue(1, DP) = %q, want empty", got)
	}
	if got := v.Genotype(1).Class(); got != "HOM_ALT" {
		t.Errorf("Genotype(1) = %s", got)
	}
	if got := v.SampleValue(5, "GT"); got != "" {
		t.Errorf("out of range sample = %q", got)
	}
}

func TestFormatInfo(t *testing.T) {
	info := ParseInfo("DP=20;SOMATIC;AF=0.5,0.1")
	if got := FormatInfo(info); got != "AF=0.5,0.1;DP=20;SOMATIC" {
		t.Errorf("FormatInfo() = %q", got)
	}
	if got := FormatInfo(nil); got != "." {
		t.Errorf("FormatInfo(nil) = %q", got)
	}
	if got := ParseInfo("."); len(got) != 0 {
		t.Errorf("ParseInfo(.) = %v", got)
	}
}
