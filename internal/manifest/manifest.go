// Package manifest builds and reads the tab-delimited sample sheet that maps
// sample identifiers to absolute sequence file paths for the AMR tool.
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pathogenwatch/amrpipe/internal/console"
	"github.com/pathogenwatch/amrpipe/internal/domain"
)

// FileName is the manifest file written into the output directory
const FileName = "sample_sheet.txt"

// Build scans inputDir non-recursively and writes one "<id>\t<abspath>" line
// per canonical sequence file to outputDir/sample_sheet.txt. Non-matching
// entries are skipped with a warning. A file whose derived identifier was
// already seen is skipped too, keeping identifiers unique. Zero valid entries
// still produce a well-formed empty manifest plus a warning.
func Build(inputDir, outputDir string) (string, *domain.Report, error) {
	report := domain.NewReport(domain.StageManifest)
	path := filepath.Join(outputDir, FileName)

	console.Infof("Creating sample sheet for AMR prediction...")

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return "", report, fmt.Errorf("reading input directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", report, fmt.Errorf("creating sample sheet: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	seen := make(map[string]string)
	count := 0

	for _, entry := range entries {
		if entry.IsDir() || !domain.IsSequenceFile(entry.Name()) {
			console.Warnf("Skipping %s: not a valid %s file.", entry.Name(), domain.SequenceSuffix)
			report.Warn("skipped %s: not a valid %s file", entry.Name(), domain.SequenceSuffix)
			continue
		}

		id := domain.SampleIDFromFile(entry.Name())
		if prev, dup := seen[id]; dup {
			console.Warnf("Skipping %s: sample ID %q already used by %s.", entry.Name(), id, prev)
			report.Warn("duplicate sample ID %q: %s conflicts with %s", id, entry.Name(), prev)
			continue
		}
		seen[id] = entry.Name()

		absPath, err := filepath.Abs(filepath.Join(inputDir, entry.Name()))
		if err != nil {
			report.Fail(entry.Name(), err)
			continue
		}

		if _, err := fmt.Fprintf(w, "%s\t%s\n", id, absPath); err != nil {
			return "", report, fmt.Errorf("writing sample sheet: %w", err)
		}
		report.Item()
		count++
	}

	if err := w.Flush(); err != nil {
		return "", report, fmt.Errorf("writing sample sheet: %w", err)
	}

	if count == 0 {
		console.Warnf("No valid entries found. Sample sheet is empty.")
		report.Warn("no valid entries found, sample sheet is empty")
	} else {
		console.Infof("Sample sheet created with %d entries at %s.", count, path)
	}

	return path, report, nil
}

// Read parses a manifest file back into its entries
func Read(path string) ([]domain.ManifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sample sheet: %w", err)
	}
	defer f.Close()

	var entries []domain.ManifestEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, p, found := strings.Cut(line, "\t")
		if !found {
			return nil, fmt.Errorf("malformed sample sheet line: %q", line)
		}
		entries = append(entries, domain.ManifestEntry{ID: id, Path: p})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading sample sheet: %w", err)
	}
	return entries, nil
}
