// Package amr drives the external AMR-prediction tool (abritamr) against a
// sample manifest and collects the summary tables it produces.
package amr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pathogenwatch/amrpipe/internal/console"
	"github.com/pathogenwatch/amrpipe/internal/domain"
	"github.com/pathogenwatch/amrpipe/internal/manifest"
	"github.com/pathogenwatch/amrpipe/internal/runner"
)

// ResultsDirName is the subdirectory of the output directory that receives
// the summary tables
const ResultsDirName = "abritamr_results"

// ResultFiles are the fixed table names the AMR tool writes into its working
// directory when it succeeds
var ResultFiles = []string{
	"summary_matches.txt",
	"summary_partials.txt",
	"summary_virulence.txt",
	"abritamr.txt",
}

// Stage invokes the AMR tool once per run
type Stage struct {
	Runner  *runner.Runner
	Binary  string // AMR tool binary, normally "abritamr"
	Threads int
	Species string
}

// Run invokes the AMR tool with the manifest and relocates its output. The
// tool writes its tables into the working directory of the invoking process,
// so the invocation is confined to a scratch directory under outputDir and
// each known table is moved from there into outputDir/abritamr_results/.
// The tool also leaves one transient directory per sample behind; those are
// removed by matching directory names against the manifest's sample IDs.
// An empty manifest returns a *domain.PreconditionError before the tool is
// invoked; a tool that cannot be started returns a *domain.LaunchError.
func (s *Stage) Run(ctx context.Context, manifestPath, outputDir string) (*domain.Report, error) {
	report := domain.NewReport(domain.StagePredict)

	entries, err := manifest.Read(manifestPath)
	if err != nil {
		return report, fmt.Errorf("reading sample sheet: %w", err)
	}
	if len(entries) == 0 {
		return report, &domain.PreconditionError{
			Stage: domain.StagePredict,
			Msg:   "sample sheet " + manifestPath + " has no samples",
		}
	}

	console.Infof("Starting AMR prediction...")

	resultsDir := filepath.Join(outputDir, ResultsDirName)
	if err := os.MkdirAll(resultsDir, 0755); err != nil {
		return report, fmt.Errorf("creating results directory: %w", err)
	}

	scratch, err := os.MkdirTemp(outputDir, "abritamr-scratch-")
	if err != nil {
		return report, fmt.Errorf("creating scratch directory: %w", err)
	}

	cmd := runner.Command{
		Name: s.Binary,
		Args: []string{
			"run",
			"-j", strconv.Itoa(s.Threads),
			"--species", s.Species,
			"-c", manifestPath,
		},
		Dir:     scratch,
		LogPath: filepath.Join(outputDir, "abritamr.log"),
	}

	res, err := s.Runner.Run(ctx, cmd)
	if err != nil {
		var launchErr *domain.LaunchError
		if errors.As(err, &launchErr) {
			console.Warnf("Error executing command: %s\n%v", cmd.String(), err)
			os.Remove(scratch)
			return report, err
		}
		return report, err
	}
	if res.Failed {
		console.Warnf("Command failed: %s\n%s", cmd.String(), res.Stderr)
		report.Fail("abritamr", fmt.Errorf("AMR tool exited with status %d", res.ExitCode))
	}

	console.Infof("Moving AMR results to output folder...")
	for _, name := range ResultFiles {
		src := filepath.Join(scratch, name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		report.Item()
		if err := moveFile(src, filepath.Join(resultsDir, name)); err != nil {
			console.Warnf("Failed to move %s: %v", name, err)
			report.Fail(name, err)
		}
	}

	s.cleanup(entries, scratch, report)

	// Only gone if the tool left nothing else behind
	os.Remove(scratch)

	console.Infof("AMR prediction completed.")
	return report, nil
}

// cleanup removes the transient per-sample directories the AMR tool creates
// in its working directory. One directory's failure never stops the rest.
func (s *Stage) cleanup(entries []domain.ManifestEntry, dir string, report *domain.Report) {
	console.Infof("Cleaning up transient sample directories...")

	ids := make(map[string]bool, len(entries))
	for _, e := range entries {
		ids[e.ID] = true
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		console.Warnf("Cannot list %s for cleanup: %v", dir, err)
		report.Warn("cleanup skipped: %v", err)
		return
	}

	for _, entry := range dirEntries {
		if !entry.IsDir() || !ids[entry.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			console.Warnf("Failed to remove %s: %v", entry.Name(), err)
			report.Fail(entry.Name(), err)
			continue
		}
		console.Infof("Removed transient directory: %s", entry.Name())
	}
}

// moveFile relocates a completed result table. Rename keeps the move atomic
// on one filesystem; the copy fallback covers a results directory on another
// device.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
