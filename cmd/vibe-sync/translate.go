package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-sync/internal/output"
	"github.com/inodb/vibe-sync/internal/variant"
)

func newTranslateCmd() *cobra.Command {
	var (
		calls     callsFlags
		alleleStr string
		reverse   bool
	)
	cmd := &cobra.Command{
		Use:   "translate <genome> <chrom:pos>...",
		Short: "Translate 0-based positions between reference and genome coordinates",
		Long: `Translate 0-based positions from reference to genome coordinates of one
haplotype, or back with --reverse. The variant type at each reference
position is reported as well.`,
		Example: `  vibe-sync translate child chr1:1000 chr1:2000 --vcf child.vcf --allele maternal
  vibe-sync translate child chr1:1003 --vcf child.vcf --allele maternal --reverse`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			allele, err := variant.ParseAllele(alleleStr)
			if err != nil {
				return usageError{err}
			}
			type query struct {
				chrom string
				pos   int
			}
			queries := make([]query, 0, len(args)-1)
			for _, arg := range args[1:] {
				chrom, pos, err := parseLocus(arg)
				if err != nil {
					return usageError{err}
				}
				queries = append(queries, query{chrom, pos})
			}

			s, cleanup, err := openSession(cmd.Context(), args[0], &calls)
			if err != nil {
				return err
			}
			defer cleanup()

			tw := output.NewTabWriter(cmd.OutOrStdout(), "Chromosome", "Allele", "Reference", "Genome", "Type")
			if err := tw.WriteHeader(); err != nil {
				return err
			}
			for _, q := range queries {
				ref, gen := q.pos, q.pos
				if reverse {
					ref, err = s.Computer.ToReferencePosition(args[0], q.chrom, allele, q.pos)
				} else {
					gen, err = s.Computer.ToGenomePosition(args[0], q.chrom, allele, q.pos)
				}
				if err != nil {
					return err
				}
				typ, err := s.Computer.VariantTypeAt(args[0], q.chrom, allele, ref)
				if err != nil {
					return err
				}
				if err := tw.WriteRow(q.chrom, allele.String(),
					strconv.Itoa(ref), strconv.Itoa(gen), typ.String()); err != nil {
					return err
				}
			}
			return tw.Flush()
		},
	}
	calls.register(cmd)
	cmd.Flags().StringVar(&alleleStr, "allele", "both", "Haplotype: paternal, maternal or both")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "Translate genome positions back to the reference")
	return cmd
}

// parseLocus parses "chrom:pos".
func parseLocus(s string) (string, int, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return "", 0, fmt.Errorf("invalid locus %q, want chrom:pos", s)
	}
	pos, err := strconv.Atoi(strings.ReplaceAll(s[i+1:], ",", ""))
	if err != nil || pos < 0 {
		return "", 0, fmt.Errorf("invalid position in %q", s)
	}
	return s[:i], pos, nil
}
