package amr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pathogenwatch/amrpipe/internal/domain"
	"github.com/pathogenwatch/amrpipe/internal/runner"
)

// fakeAbritamr writes the summary tables and one directory per manifest
// sample into its working directory, mimicking the real tool's side effects.
const fakeAbritamr = `
sheet=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-c" ]; then sheet="$2"; shift; fi
  shift
done
echo "match" > summary_matches.txt
echo "partial" > summary_partials.txt
while IFS="$(printf '\t')" read -r id path; do
  mkdir -p "$id"
  echo "scratch" > "$id/work.tmp"
done < "$sheet"
`

func writeFakeTool(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "abritamr")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeManifest(t *testing.T, dir string, entries map[string]string) string {
	t.Helper()
	var content string
	for id, p := range entries {
		content += id + "\t" + p + "\n"
	}
	path := filepath.Join(dir, "sample_sheet.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_MovesTablesAndCleansUp(t *testing.T) {
	outputDir := t.TempDir()
	manifestPath := writeManifest(t, t.TempDir(), map[string]string{"A": "/abs/A.fna"})

	s := &Stage{
		Runner:  runner.New(),
		Binary:  writeFakeTool(t, fakeAbritamr),
		Threads: 2,
		Species: "Campylobacter",
	}

	report, err := s.Run(context.Background(), manifestPath, outputDir)
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK() {
		t.Fatalf("unexpected failures: %v", report.Failures)
	}

	resultsDir := filepath.Join(outputDir, ResultsDirName)
	for _, name := range []string{"summary_matches.txt", "summary_partials.txt"} {
		if _, err := os.Stat(filepath.Join(resultsDir, name)); err != nil {
			t.Errorf("%s should have been moved into %s", name, ResultsDirName)
		}
	}

	// No directory anywhere under outputDir may share a name with a sample ID
	err = filepath.WalkDir(outputDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "A" {
			t.Errorf("transient sample directory %s survived cleanup", path)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRun_ToolFailureIsReportedNotFatal(t *testing.T) {
	outputDir := t.TempDir()
	manifestPath := writeManifest(t, t.TempDir(), map[string]string{"A": "/abs/A.fna"})

	s := &Stage{
		Runner:  runner.New(),
		Binary:  writeFakeTool(t, `echo "database error" >&2; exit 1`),
		Threads: 2,
		Species: "Campylobacter",
	}

	report, err := s.Run(context.Background(), manifestPath, outputDir)
	if err != nil {
		t.Fatalf("tool failure should not be a stage error, got %v", err)
	}
	if report.FailureCount() != 1 {
		t.Fatalf("want the tool failure recorded, got %v", report.Failures)
	}
}

func TestRun_MissingToolIsLaunchError(t *testing.T) {
	outputDir := t.TempDir()
	manifestPath := writeManifest(t, t.TempDir(), map[string]string{"A": "/abs/A.fna"})

	s := &Stage{
		Runner:  runner.New(),
		Binary:  filepath.Join(t.TempDir(), "no-such-abritamr"),
		Threads: 2,
		Species: "Campylobacter",
	}

	_, err := s.Run(context.Background(), manifestPath, outputDir)
	var launchErr *domain.LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("want *LaunchError, got %v", err)
	}
}

func TestRun_EmptyManifestIsPreconditionError(t *testing.T) {
	outputDir := t.TempDir()
	manifestPath := writeManifest(t, t.TempDir(), map[string]string{})

	s := &Stage{
		Runner:  runner.New(),
		Binary:  filepath.Join(t.TempDir(), "no-such-abritamr"),
		Threads: 2,
		Species: "Campylobacter",
	}

	_, err := s.Run(context.Background(), manifestPath, outputDir)
	var preErr *domain.PreconditionError
	if !errors.As(err, &preErr) {
		t.Fatalf("want *PreconditionError, got %v", err)
	}

	// The tool was never invoked, so no results directory appears
	if _, err := os.Stat(filepath.Join(outputDir, ResultsDirName)); !os.IsNotExist(err) {
		t.Error("results directory should not be created for an empty manifest")
	}
}

func TestRun_CleanupFailureDoesNotAbort(t *testing.T) {
	outputDir := t.TempDir()
	// Manifest names a sample whose directory the tool never creates; cleanup
	// simply finds nothing to remove and the stage still completes.
	manifestPath := writeManifest(t, t.TempDir(), map[string]string{"GHOST": "/abs/GHOST.fna"})

	s := &Stage{
		Runner:  runner.New(),
		Binary:  writeFakeTool(t, `echo "ok"`),
		Threads: 1,
		Species: "Salmonella",
	}

	report, err := s.Run(context.Background(), manifestPath, outputDir)
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK() {
		t.Fatalf("unexpected failures: %v", report.Failures)
	}
}
