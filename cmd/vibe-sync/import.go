package main

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-sync/internal/duckdb"
	"github.com/inodb/vibe-sync/internal/output"
)

func newImportCmd() *cobra.Command {
	var (
		name  string
		force bool
		list  bool
	)
	cmd := &cobra.Command{
		Use:   "import <vcf>...",
		Short: "Import filter source VCFs into the database",
		Long: `Import VCFs into the DuckDB database named by db.path (or --db) so the
filter command can query them by region. Files unchanged since their last
import are skipped unless --force is given.`,
		Example: `  vibe-sync import --db sources.duckdb dbsnp.vcf.gz calls.vcf
  vibe-sync import --db sources.duckdb --name dbsnp dbsnp_v2.vcf.gz
  vibe-sync import --db sources.duckdb --list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return usageError{err}
			}
			if cfg.DB.Path == "" {
				return usageError{errors.New("no database configured, use --db or db.path")}
			}
			if name != "" && len(args) > 1 {
				return usageError{errors.New("--name applies to a single file")}
			}
			if !list && len(args) == 0 {
				return usageError{errors.New("at least one VCF required")}
			}

			store, err := duckdb.Open(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer store.Close()
			store.SetLogger(logger)

			if list {
				return listSources(cmd, store)
			}

			tw := output.NewTabWriter(cmd.OutOrStdout(), "Source", "Records", "Skipped")
			if err := tw.WriteHeader(); err != nil {
				return err
			}
			for _, path := range args {
				res, err := store.ImportFile(cmd.Context(), name, path, force)
				if err != nil {
					return err
				}
				if err := tw.WriteRow(res.Source, strconv.Itoa(res.Records), strconv.FormatBool(res.Skipped)); err != nil {
					return err
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Source name (default: file name)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-import unchanged files")
	cmd.Flags().BoolVar(&list, "list", false, "List imported sources")
	return cmd
}

func listSources(cmd *cobra.Command, store *duckdb.Store) error {
	sources, err := store.Sources(cmd.Context())
	if err != nil {
		return err
	}
	tw := output.NewTabWriter(cmd.OutOrStdout(), "Source", "Path", "Records", "Samples")
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, src := range sources {
		if err := tw.WriteRow(src.Name, src.Fingerprint.Path,
			strconv.FormatInt(src.Records, 10), strings.Join(src.SampleNames, ",")); err != nil {
			return err
		}
	}
	return tw.Flush()
}
