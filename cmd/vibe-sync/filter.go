package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-sync/internal/filter"
	"github.com/inodb/vibe-sync/internal/ingest"
	"github.com/inodb/vibe-sync/internal/output"
)

func newFilterCmd() *cobra.Command {
	var (
		calls      callsFlags
		specsPath  string
		chrom      string
		start, end int
	)
	cmd := &cobra.Command{
		Use:   "filter <genome>",
		Short: "Evaluate filters on one chromosome and report variant visibility",
		Long: `Evaluate the filters of a YAML filter set on one chromosome region and
report how many of the genome's variants are shown, shown as filtered or
hidden on each haplotype. Filter sources are VCF files resolved against
filters.dir, or sources imported into the database named by db.path.

Unavailable sources are listed on stderr. By default their filters are
skipped; with --fail-closed every variant of the chromosome is hidden.`,
		Example: `  vibe-sync filter child --vcf child.vcf --filters filters.yaml --chrom chr1
  vibe-sync filter child --vcf child.vcf --filters filters.yaml --chrom chr1 --start 10000 --end 20000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(specsPath)
			if err != nil {
				return usageError{err}
			}
			specs, err := filter.LoadSpecs(f)
			f.Close()
			if err != nil {
				return usageError{fmt.Errorf("reading %s: %w", specsPath, err)}
			}

			s, cleanup, err := openSession(cmd.Context(), args[0], &calls)
			if err != nil {
				return err
			}
			defer cleanup()

			region := filter.Region{Chromosome: chrom, Start: start, End: end}
			res, err := s.ApplyFilters(cmd.Context(), region, specs)
			if err != nil {
				return err
			}
			if len(res.Failures) > 0 {
				if err := output.WriteFailures(cmd.ErrOrStderr(), res.Failures); err != nil {
					return err
				}
			}

			cw, err := output.NewCountsWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			for _, allele := range ingest.Haplotypes {
				if err := cw.Write(args[0], chrom, allele, s.Policy.Counts(args[0], allele)); err != nil {
					return err
				}
			}
			return cw.Flush()
		},
	}
	calls.register(cmd)
	cmd.Flags().StringVar(&specsPath, "filters", "", "YAML filter set")
	cmd.Flags().StringVar(&chrom, "chrom", "", "Chromosome to evaluate")
	cmd.Flags().IntVar(&start, "start", 0, "0-based region start")
	cmd.Flags().IntVar(&end, "end", 0, "Region end, exclusive (default: whole chromosome)")
	cmd.Flags().Bool("show-filtered", true, "Show filtered variants marked instead of hiding them")
	_ = viper.BindPFlag("display.show_filtered", cmd.Flags().Lookup("show-filtered"))
	_ = cmd.MarkFlagRequired("filters")
	_ = cmd.MarkFlagRequired("chrom")
	return cmd
}
