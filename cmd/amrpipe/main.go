package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pathogenwatch/amrpipe/internal/domain"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "amrpipe",
		Short: "Genome annotation and AMR prediction pipeline",
		Long: `amrpipe orchestrates a bacterial genomics workflow: it normalizes genome
assemblies, drives prokka for gene annotation, builds a sample manifest and
runs abritamr for antimicrobial-resistance prediction, collecting the summary
tables into one results directory.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// A tool that could not be launched at all gets its own exit code so
		// wrappers can tell a broken installation from a failed analysis.
		var launchErr *domain.LaunchError
		if errors.As(err, &launchErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
