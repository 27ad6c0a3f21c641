// Package main provides the vibe-sync command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-sync/internal/session"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile string
	verbose bool
	logger  = zap.NewNop()
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var usage usageError
		if errors.As(err, &usage) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

// usageError marks errors caused by invalid arguments.
type usageError struct{ error }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vibe-sync",
		Short: "Personal genome coordinate index and variant filter",
		Long: `vibe-sync indexes the variants of individual genomes against a reference,
translates positions between reference and per-haplotype genome coordinates,
and evaluates variant filters over VCF sources.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			return initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default ~/.vibe-sync.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Development logging at debug level")
	pf.Int("parallelism", 0, "Concurrent chromosome tasks (default: number of CPUs)")
	pf.Bool("fail-closed", false, "Hide variants of chromosomes whose filter sources fail")
	pf.String("db", "", "DuckDB database holding imported filter sources")
	pf.String("filters-dir", "", "Directory holding filter source VCFs")
	_ = viper.BindPFlag("parallelism", pf.Lookup("parallelism"))
	_ = viper.BindPFlag("filters.fail_closed", pf.Lookup("fail-closed"))
	_ = viper.BindPFlag("db.path", pf.Lookup("db"))
	_ = viper.BindPFlag("filters.dir", pf.Lookup("filters-dir"))

	root.AddCommand(newIndexCmd())
	root.AddCommand(newTranslateCmd())
	root.AddCommand(newFilterCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func initConfig() error {
	session.SetDefaults(viper.GetViper())

	viper.SetEnvPrefix("VIBESYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".vibe-sync")
		viper.SetConfigType("yaml")
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && cfgFile != "" {
			return fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
	}
	return nil
}

func initLogger() error {
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.DisableStacktrace = true
		logger, err = cfg.Build()
	}
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	return nil
}

func loadConfig() (session.Config, error) {
	return session.LoadConfig(viper.GetViper())
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".vibe-sync.yaml"), nil
}
