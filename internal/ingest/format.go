package ingest

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/inodb/vibe-sync/internal/maf"
)

// Input formats recognized by DetectFormat.
const (
	FormatVCF = "vcf"
	FormatMAF = "maf"
)

// DetectFormat detects the input file format based on extension or content.
// Unrecognized input defaults to VCF.
func DetectFormat(path string) string {
	lowerPath := strings.TrimSuffix(strings.ToLower(path), ".gz")

	switch {
	case strings.HasSuffix(lowerPath, ".vcf"):
		return FormatVCF
	case strings.HasSuffix(lowerPath, ".maf"):
		return FormatMAF
	}

	// cBioPortal MAF filenames
	baseName := filepath.Base(lowerPath)
	if baseName == "data_mutations.txt" || baseName == "data_mutations_extended.txt" {
		return FormatMAF
	}
	if path == "-" {
		return FormatVCF
	}

	file, err := os.Open(path)
	if err != nil {
		return FormatVCF
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for i := 0; i < 100 && scanner.Scan(); i++ {
		line := scanner.Text()
		if strings.HasPrefix(line, "##fileformat=VCF") || strings.HasPrefix(line, "#CHROM") {
			return FormatVCF
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, maf.ColTumorSeqAllele2) {
			return FormatMAF
		}
		break
	}
	return FormatVCF
}
