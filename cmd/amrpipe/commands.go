package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pathogenwatch/amrpipe/internal/config"
	"github.com/pathogenwatch/amrpipe/internal/console"
	"github.com/pathogenwatch/amrpipe/internal/domain"
	"github.com/pathogenwatch/amrpipe/internal/download"
	"github.com/pathogenwatch/amrpipe/internal/notify"
	"github.com/pathogenwatch/amrpipe/internal/pipeline"
	"github.com/pathogenwatch/amrpipe/internal/runstore"
	"github.com/pathogenwatch/amrpipe/internal/tabular"
	"github.com/pathogenwatch/amrpipe/internal/watch"
)

var (
	inputDir       string
	outputDir      string
	threads        int
	kingdom        string
	species        string
	skipAnnotation bool
	noStore        bool

	downloadInput  string
	downloadOutput string

	extractInput   string
	extractOutput  string
	extractPattern string

	mergeInput  string
	mergeOutput string

	watchCron string

	runsLimit int
)

func init() {
	// run command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the annotation and AMR prediction pipeline",
		RunE:  runPipeline,
	}
	addPipelineFlags(runCmd)
	rootCmd.AddCommand(runCmd)

	// download command
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download genome assemblies from NCBI by accession",
		RunE:  runDownload,
	}
	downloadCmd.Flags().StringVarP(&downloadInput, "input-file", "i", "", "file with one assembly accession per line (required)")
	downloadCmd.Flags().StringVarP(&downloadOutput, "output-dir", "o", "", "directory for downloaded genomes (required)")
	downloadCmd.MarkFlagRequired("input-file")
	downloadCmd.MarkFlagRequired("output-dir")
	rootCmd.AddCommand(downloadCmd)

	// extract command
	extractCmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract resistance columns from an AMR result table",
		RunE:  runExtract,
	}
	extractCmd.Flags().StringVarP(&extractInput, "input", "i", "", "AMR result table, tab-delimited (required)")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output file (required)")
	extractCmd.Flags().StringVar(&extractPattern, "pattern", "quinolone", "column-name pattern to extract, case-insensitive")
	extractCmd.MarkFlagRequired("input")
	extractCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(extractCmd)

	// merge command
	mergeCmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge extracted result tables into one master table",
		RunE:  runMerge,
	}
	mergeCmd.Flags().StringVarP(&mergeInput, "input", "i", "", "directory of .txt result tables (required)")
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "output file (required)")
	mergeCmd.MarkFlagRequired("input")
	mergeCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(mergeCmd)

	// watch command
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the pipeline whenever new genomes appear in the input directory",
		RunE:  runWatch,
	}
	addPipelineFlags(watchCmd)
	watchCmd.Flags().StringVar(&watchCron, "cron", "", "run on this cron schedule instead of file events")
	rootCmd.AddCommand(watchCmd)

	// runs command
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		RunE:  runRuns,
	}
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to show")
	rootCmd.AddCommand(runsCmd)
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&inputDir, "input-dir", "i", "", "directory containing genome files in .fna or .fna.gz format (required)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory where output files will be saved (required)")
	cmd.Flags().IntVarP(&threads, "threads", "t", 4, "number of threads to use")
	cmd.Flags().StringVarP(&kingdom, "kingdom", "k", "Bacteria", "kingdom for annotation")
	cmd.Flags().StringVarP(&species, "species", "s", "", "species for AMR prediction, e.g. Campylobacter (required)")
	cmd.Flags().BoolVar(&skipAnnotation, "skip-annotation", false, "skip the annotation stage")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not record this run in the run database")
	cmd.MarkFlagRequired("input-dir")
	cmd.MarkFlagRequired("output-dir")
	cmd.MarkFlagRequired("species")
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

func pipelineOptions(cmd *cobra.Command, cfg *config.Config) (pipeline.Options, error) {
	// Flags win over the config file; the config file wins over built-in defaults
	if !cmd.Flags().Changed("threads") && cfg.Pipeline.Threads > 0 {
		threads = cfg.Pipeline.Threads
	}
	if !cmd.Flags().Changed("kingdom") && cfg.Pipeline.Kingdom != "" {
		kingdom = cfg.Pipeline.Kingdom
	}

	k := domain.Kingdom(kingdom)
	if !k.Valid() {
		return pipeline.Options{}, fmt.Errorf("invalid kingdom %q (valid: %v)", kingdom, domain.Kingdoms)
	}
	if threads < 1 {
		return pipeline.Options{}, fmt.Errorf("threads must be positive, got %d", threads)
	}
	return pipeline.Options{
		InputDir:              inputDir,
		OutputDir:             outputDir,
		Threads:               threads,
		Kingdom:               k,
		Species:               species,
		Annotate:              !skipAnnotation,
		ContinueOnLaunchError: cfg.Pipeline.ContinueOnLaunchError,
		ProkkaBinary:          cfg.Tools.Prokka,
		AbritamrBinary:        cfg.Tools.Abritamr,
	}, nil
}

func openStore(cfg *config.Config) *runstore.Store {
	if noStore {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.General.DatabasePath), 0755); err != nil {
		console.Warnf("Cannot create database directory: %v", err)
		return nil
	}
	store, err := runstore.New(cfg.General.DatabasePath)
	if err != nil {
		console.Warnf("Run database unavailable: %v", err)
		return nil
	}
	return store
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	return notify.NewMultiNotifier(
		notify.NewDesktopNotifier(cfg.Notifications.Desktop),
		notify.NewSlackNotifier(cfg.Notifications.SlackWebhook),
	)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts, err := pipelineOptions(cmd, cfg)
	if err != nil {
		return err
	}

	store := openStore(cfg)
	if store != nil {
		defer store.Close()
	}

	p := pipeline.New(opts, store, buildNotifier(cfg))
	_, err = p.Run(cmd.Context())
	return err
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	accessions, err := download.ReadAccessions(downloadInput)
	if err != nil {
		return err
	}
	if len(accessions) == 0 {
		return fmt.Errorf("no accessions in %s", downloadInput)
	}

	client := download.NewClient(cfg.Download.Email, cfg.Download.Concurrency)
	report, err := client.FetchAll(cmd.Context(), accessions, downloadOutput)
	if err != nil {
		return err
	}

	console.Infof("Downloaded %d of %d genomes.", report.Total-report.FailureCount(), report.Total)
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	return tabular.Extract(extractInput, extractOutput, extractPattern)
}

func runMerge(cmd *cobra.Command, args []string) error {
	return tabular.Merge(mergeInput, mergeOutput)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts, err := pipelineOptions(cmd, cfg)
	if err != nil {
		return err
	}

	store := openStore(cfg)
	if store != nil {
		defer store.Close()
	}
	notifier := buildNotifier(cfg)

	run := func(ctx context.Context) error {
		p := pipeline.New(opts, store, notifier)
		_, err := p.Run(ctx)
		return err
	}

	cronExpr := watchCron
	if cronExpr == "" {
		cronExpr = cfg.Watch.Cron
	}
	if cronExpr != "" {
		return watch.Schedule(cmd.Context(), cronExpr, run)
	}

	settle := time.Duration(cfg.Watch.SettleSeconds) * time.Second
	return watch.New(inputDir, settle, run).Watch(cmd.Context())
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := runstore.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRecentRuns(runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATUS\tSPECIES\tDURATION\tINPUT")
	for _, run := range runs {
		duration := "-"
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(run.StartedAt), run.Status, run.Species, duration, run.InputDir)
	}
	return w.Flush()
}
