// Package pipeline sequences the genome annotation and AMR prediction stages
// over one input directory.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pathogenwatch/amrpipe/internal/amr"
	"github.com/pathogenwatch/amrpipe/internal/annotate"
	"github.com/pathogenwatch/amrpipe/internal/console"
	"github.com/pathogenwatch/amrpipe/internal/domain"
	"github.com/pathogenwatch/amrpipe/internal/manifest"
	"github.com/pathogenwatch/amrpipe/internal/normalize"
	"github.com/pathogenwatch/amrpipe/internal/notify"
	"github.com/pathogenwatch/amrpipe/internal/runner"
	"github.com/pathogenwatch/amrpipe/internal/runstore"
)

// Options configure one pipeline run
type Options struct {
	InputDir  string
	OutputDir string
	Threads   int
	Kingdom   domain.Kingdom
	Species   string
	Annotate  bool // stage is optional; skipping goes straight to the manifest
	// ContinueOnLaunchError keeps running later stages even when a required
	// external tool could not be started. Off by default: missing tools make
	// the run fail with a distinct exit code.
	ContinueOnLaunchError bool
	ProkkaBinary          string
	AbritamrBinary        string
}

// Pipeline runs the stages in order: normalize, annotate (optional), build
// manifest, predict. Stages run strictly sequentially; per-item failures
// inside a stage are tolerated, a stage counts as completed once it has
// iterated all its items.
type Pipeline struct {
	opts     Options
	runner   *runner.Runner
	store    *runstore.Store // optional
	notifier notify.Notifier // optional
}

// RunResult aggregates the outcome of a full pipeline run
type RunResult struct {
	Run     domain.Run
	Reports []*domain.Report
	Elapsed time.Duration
}

// FailureCount sums item failures over all stages
func (r *RunResult) FailureCount() int {
	n := 0
	for _, report := range r.Reports {
		n += report.FailureCount()
	}
	return n
}

// New creates a Pipeline. Store and notifier may be nil.
func New(opts Options, store *runstore.Store, notifier notify.Notifier) *Pipeline {
	if opts.ProkkaBinary == "" {
		opts.ProkkaBinary = "prokka"
	}
	if opts.AbritamrBinary == "" {
		opts.AbritamrBinary = "abritamr"
	}
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &Pipeline{
		opts:     opts,
		runner:   runner.New(),
		store:    store,
		notifier: notifier,
	}
}

// Run executes the pipeline. The returned error is non-nil only for failures
// that abort the run: an unreadable input directory, or a tool launch failure
// when ContinueOnLaunchError is off. Everything else is recorded in the
// result's stage reports.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()

	run := domain.Run{
		ID:        uuid.NewString(),
		InputDir:  p.opts.InputDir,
		OutputDir: p.opts.OutputDir,
		Species:   p.opts.Species,
		Kingdom:   p.opts.Kingdom,
		Status:    domain.RunRunning,
		StartedAt: start,
	}
	result := &RunResult{Run: run}

	console.Infof("Pipeline started.")
	console.Infof("Input directory: %s", p.opts.InputDir)
	console.Infof("Output directory: %s", p.opts.OutputDir)
	console.Infof("Using %d threads.", p.opts.Threads)
	console.Infof("Kingdom: %s", p.opts.Kingdom)
	console.Infof("Species: %s", p.opts.Species)
	if !domain.IsKnownSpecies(p.opts.Species) {
		console.Warnf("Species %q is not in the known list; point-mutation analysis may be unavailable.", p.opts.Species)
	}

	if err := os.MkdirAll(p.opts.OutputDir, 0755); err != nil {
		return result, fmt.Errorf("creating output directory: %w", err)
	}

	if p.store != nil {
		if err := p.store.SaveRun(&run); err != nil {
			console.Warnf("Failed to record run: %v", err)
		}
	}

	err := p.runStages(ctx, result)

	result.Elapsed = time.Since(start)
	now := time.Now()
	result.Run.FinishedAt = &now

	if err != nil {
		result.Run.Status = domain.RunFailed
	} else {
		result.Run.Status = domain.RunCompleted
	}

	if p.store != nil {
		if storeErr := p.store.FinishRun(run.ID, result.Run.Status, now); storeErr != nil {
			console.Warnf("Failed to record run completion: %v", storeErr)
		}
	}

	p.announce(result, err)

	if err != nil {
		return result, err
	}

	console.Infof("Pipeline completed in %s.", result.Elapsed.Round(time.Millisecond))
	return result, nil
}

func (p *Pipeline) runStages(ctx context.Context, result *RunResult) error {
	// Stage 1: decompress inputs
	report, err := normalize.Run(p.opts.InputDir)
	p.record(result, report)
	if err != nil {
		return err
	}

	// Stage 2: annotation (optional)
	if p.opts.Annotate {
		stage := &annotate.Stage{
			Runner:  p.runner,
			Binary:  p.opts.ProkkaBinary,
			Threads: p.opts.Threads,
			Kingdom: p.opts.Kingdom,
		}
		report = stage.Run(ctx, p.opts.InputDir, p.opts.OutputDir)
		p.record(result, report)
		if err := p.launchFailure(report); err != nil {
			return err
		}
	} else {
		console.Infof("Annotation stage skipped.")
	}

	// Stage 3: sample manifest
	manifestPath, report, err := manifest.Build(p.opts.InputDir, p.opts.OutputDir)
	p.record(result, report)
	if err != nil {
		return err
	}

	// Stage 4: AMR prediction
	amrStage := &amr.Stage{
		Runner:  p.runner,
		Binary:  p.opts.AbritamrBinary,
		Threads: p.opts.Threads,
		Species: p.opts.Species,
	}
	report, err = amrStage.Run(ctx, manifestPath, p.opts.OutputDir)
	p.record(result, report)
	if err != nil {
		var preErr *domain.PreconditionError
		if errors.As(err, &preErr) {
			console.Warnf("Skipping AMR prediction: %v", err)
			return nil
		}
		var launchErr *domain.LaunchError
		if errors.As(err, &launchErr) && p.opts.ContinueOnLaunchError {
			console.Warnf("Continuing despite launch failure: %v", err)
			return nil
		}
		return err
	}

	return nil
}

// launchFailure surfaces a launch failure buried in a stage report, honoring
// the continue-on-launch-error policy.
func (p *Pipeline) launchFailure(report *domain.Report) error {
	for _, f := range report.Failures {
		var launchErr *domain.LaunchError
		if errors.As(f, &launchErr) {
			if p.opts.ContinueOnLaunchError {
				console.Warnf("Continuing despite launch failure: %v", f.Err)
				return nil
			}
			return f.Err
		}
	}
	return nil
}

func (p *Pipeline) record(result *RunResult, report *domain.Report) {
	result.Reports = append(result.Reports, report)
	if p.store != nil {
		if err := p.store.SaveStageResult(result.Run.ID, report); err != nil {
			console.Warnf("Failed to record %s stage result: %v", report.Stage, err)
		}
	}
}

func (p *Pipeline) announce(result *RunResult, runErr error) {
	n := notify.Notification{
		RunID: result.Run.ID,
		Type:  notify.NotifySuccess,
		Title: "AMR pipeline completed",
		Message: fmt.Sprintf("%s finished in %s with %d item failure(s)",
			p.opts.InputDir, result.Elapsed.Round(time.Second), result.FailureCount()),
	}
	if runErr != nil {
		n.Type = notify.NotifyError
		n.Title = "AMR pipeline failed"
		n.Message = runErr.Error()
	} else if result.FailureCount() > 0 {
		n.Type = notify.NotifyWarning
	}

	if err := p.notifier.Send(n); err != nil {
		console.Warnf("Notification failed: %v", err)
	}
}
