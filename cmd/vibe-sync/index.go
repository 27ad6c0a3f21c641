package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-sync/internal/ingest"
	"github.com/inodb/vibe-sync/internal/output"
)

func newIndexCmd() *cobra.Command {
	var calls callsFlags
	cmd := &cobra.Command{
		Use:   "index <genome>",
		Short: "Index a genome's variants and report the per-chromosome shift",
		Example: `  vibe-sync index child --vcf child.vcf.gz
  vibe-sync index child --vcf snvs.vcf --vcf indels.vcf --progress`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openSession(cmd.Context(), args[0], &calls)
			if err != nil {
				return err
			}
			defer cleanup()

			tw := output.NewTabWriter(cmd.OutOrStdout(), "Chromosome", "Allele", "Variants", "TotalShift")
			if err := tw.WriteHeader(); err != nil {
				return err
			}
			for _, chrom := range s.Project.Chromosomes().Names() {
				for _, allele := range ingest.Haplotypes {
					st, ok := s.Project.Store(args[0], chrom, allele)
					if !ok {
						continue
					}
					if err := tw.WriteRow(chrom, allele.String(),
						strconv.Itoa(st.Len()), strconv.Itoa(st.TotalShift())); err != nil {
						return err
					}
				}
			}
			return tw.Flush()
		},
	}
	calls.register(cmd)
	return cmd
}
