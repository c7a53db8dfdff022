// Package annotate drives the external gene-annotation tool (prokka) over
// every sequence file in an input directory.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pathogenwatch/amrpipe/internal/console"
	"github.com/pathogenwatch/amrpipe/internal/domain"
	"github.com/pathogenwatch/amrpipe/internal/runner"
)

// ResultsDirName is the subdirectory of the output directory holding one
// annotation directory per sample
const ResultsDirName = "prokka_results"

// Stage invokes the annotation tool once per input sequence file
type Stage struct {
	Runner  *runner.Runner
	Binary  string // annotation tool binary, normally "prokka"
	Threads int
	Kingdom domain.Kingdom
}

// Run annotates every sequence file in inputDir. Artifacts land under
// outputDir/prokka_results/<sample_id>/ and are renamed with the sample ID
// prefix so they can be aggregated later without collisions. A sample whose
// annotation fails is recorded in the report and the remaining samples still
// run. If the tool itself cannot be launched the stage stops early: every
// remaining sample would fail identically.
func (s *Stage) Run(ctx context.Context, inputDir, outputDir string) *domain.Report {
	report := domain.NewReport(domain.StageAnnotate)

	console.Infof("Starting genome annotation...")

	resultsDir := filepath.Join(outputDir, ResultsDirName)
	if err := os.MkdirAll(resultsDir, 0755); err != nil {
		report.Fail(resultsDir, err)
		return report
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		report.Fail(inputDir, err)
		return report
	}

	for _, entry := range entries {
		if entry.IsDir() || !domain.IsSequenceFile(entry.Name()) {
			continue
		}
		report.Item()

		id := domain.SampleIDFromFile(entry.Name())
		if err := s.annotateOne(ctx, filepath.Join(inputDir, entry.Name()), outputDir, id); err != nil {
			console.Warnf("Annotation failed for %s: %v", id, err)
			report.Fail(id, err)

			var launchErr *domain.LaunchError
			if errors.As(err, &launchErr) {
				return report
			}
		}
	}

	console.Infof("Genome annotation completed.")
	return report
}

func (s *Stage) annotateOne(ctx context.Context, genomePath, outputDir, id string) error {
	sampleDir := filepath.Join(outputDir, ResultsDirName, id)

	console.Infof("Annotating %s...", id)

	cmd := runner.Command{
		Name: s.Binary,
		Args: []string{
			"--cpus", strconv.Itoa(s.Threads),
			"--kingdom", string(s.Kingdom),
			"--outdir", sampleDir,
			"--force",
			"--norrna",
			"--notrna",
			genomePath,
		},
		LogPath: filepath.Join(outputDir, id+"_prokka.log"),
	}

	res, err := s.Runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if res.Failed {
		console.Warnf("Command failed: %s\n%s", cmd.String(), res.Stderr)
		return fmt.Errorf("annotation tool exited with status %d", res.ExitCode)
	}

	return prefixArtifacts(sampleDir, id)
}

// prefixArtifacts renames every file in the per-sample directory to carry the
// sample ID prefix. Already-prefixed files are left alone so a forced re-run
// does not stack prefixes.
func prefixArtifacts(sampleDir, id string) error {
	entries, err := os.ReadDir(sampleDir)
	if err != nil {
		return fmt.Errorf("reading annotation output: %w", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), id+"_") {
			continue
		}
		oldPath := filepath.Join(sampleDir, entry.Name())
		newPath := filepath.Join(sampleDir, id+"_"+entry.Name())
		if err := os.Rename(oldPath, newPath); err != nil {
			return fmt.Errorf("renaming %s: %w", entry.Name(), err)
		}
	}
	return nil
}
