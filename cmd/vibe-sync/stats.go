package main

import (
	"github.com/spf13/cobra"

	"github.com/inodb/vibe-sync/internal/ops"
	"github.com/inodb/vibe-sync/internal/output"
	"github.com/inodb/vibe-sync/internal/variant"
)

func newStatsCmd() *cobra.Command {
	var (
		calls     callsFlags
		alleleStr string
		bin       int
		peaks     bool
		peakOpts  ops.PeakOptions
	)
	cmd := &cobra.Command{
		Use:   "stats <genome>",
		Short: "Summarize variant density per chromosome and call dense regions",
		Example: `  vibe-sync stats child --vcf child.vcf --bin 10000
  vibe-sync stats child --vcf child.vcf --bin 1000 --peaks --threshold 5 --merge-within 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			allele, err := variant.ParseAllele(alleleStr)
			if err != nil {
				return usageError{err}
			}

			s, cleanup, err := openSession(cmd.Context(), args[0], &calls)
			if err != nil {
				return err
			}
			defer cleanup()

			tracks, err := ops.DensityTracks(cmd.Context(), s.Pool, s.Project, args[0], allele, bin)
			if err != nil {
				return err
			}
			if peaks {
				found, err := ops.FindPeaks(cmd.Context(), s.Pool, tracks, peakOpts)
				if err != nil {
					return err
				}
				return output.WritePeaks(cmd.OutOrStdout(), found, bin)
			}
			perChrom, total, err := ops.Statistics(cmd.Context(), s.Pool, tracks)
			if err != nil {
				return err
			}
			return output.WriteSummaries(cmd.OutOrStdout(), perChrom, total)
		},
	}
	calls.register(cmd)
	cmd.Flags().StringVar(&alleleStr, "allele", "both", "Haplotype: paternal, maternal or both")
	cmd.Flags().IntVar(&bin, "bin", 10000, "Bin width in reference bases")
	cmd.Flags().BoolVar(&peaks, "peaks", false, "Report dense regions instead of summaries")
	cmd.Flags().Float64Var(&peakOpts.Threshold, "threshold", 1, "Minimum variants per bin inside a peak")
	cmd.Flags().IntVar(&peakOpts.MergeWithin, "merge-within", 0, "Merge peaks separated by at most this many bins")
	cmd.Flags().IntVar(&peakOpts.MinWidth, "min-width", 1, "Drop peaks narrower than this many bins")
	return cmd
}
