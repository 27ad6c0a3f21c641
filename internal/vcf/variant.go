// Package vcf reads variant calls from VCF files.
package vcf

import (
	"slices"
	"strconv"
	"strings"

	"github.com/inodb/vibe-sync/internal/variant"
)

// Variant represents a single VCF data line.
type Variant struct {
	Chrom   string            // Chromosome name (e.g., "12", "chr12")
	Pos     int64             // 1-based genomic position
	ID      string            // Variant identifier (e.g., rs ID)
	Ref     string            // Reference allele
	Alt     string            // Alternate alleles, comma separated
	Qual    float64           // Quality score; 0 when missing
	Filter  string            // Filter status (PASS or filter names)
	Info    map[string]string // INFO key-value pairs; flags map to ""
	Format  []string          // FORMAT keys
	Samples [][]string        // per-sample values aligned with Format
}

// Alts returns the alternate alleles.
func (v *Variant) Alts() []string {
	if v.Alt == "" || v.Alt == "." {
		return nil
	}
	return strings.Split(v.Alt, ",")
}

// IsSNV returns true if the variant is a single nucleotide variant.
func (v *Variant) IsSNV() bool {
	return len(v.Ref) == 1 && len(v.Alt) == 1
}

// IsInsertion returns true if the variant is an insertion.
func (v *Variant) IsInsertion() bool {
	return len(v.Alt) > len(v.Ref) && !isSymbolic(v.Alt)
}

// IsDeletion returns true if the variant is a deletion.
func (v *Variant) IsDeletion() bool {
	return len(v.Ref) > len(v.Alt) && !isSymbolic(v.Alt)
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (v *Variant) NormalizeChrom() string {
	if len(v.Chrom) > 3 && v.Chrom[:3] == "chr" {
		return v.Chrom[3:]
	}
	return v.Chrom
}

func isSymbolic(alt string) bool {
	return strings.HasPrefix(alt, "<") || strings.ContainsAny(alt, "[]")
}

// Classify returns the record type and reference-coordinate length of one
// alternate allele. ReferenceStart gives the matching start.
func Classify(ref, alt string, info map[string]string) (variant.Type, int) {
	switch {
	case alt == "" || alt == ".":
		return variant.Reference, 0
	case alt == "*":
		return variant.NoCall, 0
	case isSymbolic(alt):
		n := 0
		if svlen, ok := info["SVLEN"]; ok {
			if l, err := strconv.Atoi(strings.Split(svlen, ",")[0]); err == nil {
				n = max(l, -l)
			}
		}
		return variant.StructuralVariant, n
	case len(alt) > len(ref):
		return variant.Insertion, len(alt) - len(ref)
	case len(ref) > len(alt):
		return variant.Deletion, len(ref) - len(alt)
	default:
		return variant.SNP, len(ref)
	}
}

// ReferenceStart returns the 0-based reference position at which alt takes
// effect. For padded indels this is the base after the shared anchor.
func ReferenceStart(pos int64, ref, alt string) int {
	start := int(pos) - 1
	if len(ref) != len(alt) && len(ref) > 0 && len(alt) > 0 && !isSymbolic(alt) && ref[0] == alt[0] {
		start++
	}
	return start
}

// ReferenceStart returns the 0-based start of the first alternate allele.
func (v *Variant) ReferenceStart() int {
	alts := v.Alts()
	if len(alts) == 0 {
		return int(v.Pos) - 1
	}
	return ReferenceStart(v.Pos, v.Ref, alts[0])
}

// SampleValue returns the FORMAT value key of sample i, or "".
func (v *Variant) SampleValue(i int, key string) string {
	if i < 0 || i >= len(v.Samples) {
		return ""
	}
	for k, f := range v.Format {
		if f == key {
			if k < len(v.Samples[i]) {
				return v.Samples[i][k]
			}
			return ""
		}
	}
	return ""
}

// Genotype returns the parsed GT of sample i.
func (v *Variant) Genotype(i int) Genotype {
	return ParseGenotype(v.SampleValue(i, "GT"))
}

// Genotype is a parsed GT value. Alleles holds allele indexes, -1 for ".".
type Genotype struct {
	Alleles []int
	Phased  bool
}

// ParseGenotype parses values such as "0/1", "1|0", "./." or "1".
func ParseGenotype(gt string) Genotype {
	if gt == "" {
		return Genotype{}
	}
	phased := strings.Contains(gt, "|")
	parts := strings.FieldsFunc(gt, func(r rune) bool { return r == '/' || r == '|' })
	g := Genotype{Phased: phased, Alleles: make([]int, len(parts))}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			n = -1
		}
		g.Alleles[i] = n
	}
	return g
}

// Called reports whether every allele is called.
func (g Genotype) Called() bool {
	if len(g.Alleles) == 0 {
		return false
	}
	for _, a := range g.Alleles {
		if a < 0 {
			return false
		}
	}
	return true
}

// Class returns HOM_REF, HET, HOM_ALT, HEMI_REF, HEMI_ALT or NO_CALL.
func (g Genotype) Class() string {
	if !g.Called() {
		return "NO_CALL"
	}
	if len(g.Alleles) == 1 {
		if g.Alleles[0] == 0 {
			return "HEMI_REF"
		}
		return "HEMI_ALT"
	}
	ref, alt := 0, 0
	for _, a := range g.Alleles {
		if a == 0 {
			ref++
		} else {
			alt++
		}
	}
	switch {
	case alt == 0:
		return "HOM_REF"
	case ref == 0 && allSame(g.Alleles):
		return "HOM_ALT"
	default:
		return "HET"
	}
}

func allSame(a []int) bool {
	for _, x := range a[1:] {
		if x != a[0] {
			return false
		}
	}
	return true
}

func (g Genotype) String() string {
	if len(g.Alleles) == 0 {
		return "."
	}
	sep := "/"
	if g.Phased {
		sep = "|"
	}
	parts := make([]string, len(g.Alleles))
	for i, a := range g.Alleles {
		if a < 0 {
			parts[i] = "."
		} else {
			parts[i] = strconv.Itoa(a)
		}
	}
	return strings.Join(parts, sep)
}

// FormatInfo is the inverse of ParseInfo, with keys in sorted order.
func FormatInfo(info map[string]string) string {
	if len(info) == 0 {
		return "."
	}
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		if v := info[k]; v != "" {
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return b.String()
}
