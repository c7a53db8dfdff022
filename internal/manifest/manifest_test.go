package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuild_WritesEntriesInDirectoryOrder(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	for _, name := range []string{"A.fna", "B.fna"} {
		if err := os.WriteFile(filepath.Join(inputDir, name), []byte(">seq\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	path, report, err := Build(inputDir, outputDir)
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 2 {
		t.Errorf("Total = %d, want 2", report.Total)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %q", data)
	}

	absA, _ := filepath.Abs(filepath.Join(inputDir, "A.fna"))
	if lines[0] != "A\t"+absA {
		t.Errorf("line 0 = %q, want %q", lines[0], "A\t"+absA)
	}
	if !strings.HasPrefix(lines[1], "B\t") {
		t.Errorf("line 1 = %q, want B entry", lines[1])
	}
}

func TestBuild_SkipsNonSequenceFiles(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(inputDir, "notes.txt"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	path, report, err := Build(inputDir, outputDir)
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 0 {
		t.Errorf("Total = %d, want 0", report.Total)
	}
	if len(report.Warnings) < 2 {
		t.Errorf("want a skip warning and an empty-manifest warning, got %v", report.Warnings)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("empty manifest should have no content, got %q", data)
	}
}

func TestBuild_DuplicateIDsAreSkipped(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	// Both strip to sample ID "A"
	for _, name := range []string{"A.fna", "A.v2.fna"} {
		if err := os.WriteFile(filepath.Join(inputDir, name), []byte(">seq\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	path, report, err := Build(inputDir, outputDir)
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 1 {
		t.Errorf("Total = %d, want 1", report.Total)
	}

	entries, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	ids := make(map[string]bool)
	for _, e := range entries {
		if ids[e.ID] {
			t.Fatalf("duplicate sample ID %q in manifest", e.ID)
		}
		ids[e.ID] = true
	}
}

func TestRead_RoundTrip(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(inputDir, "C.fna"), []byte(">seq\n"), 0644); err != nil {
		t.Fatal(err)
	}

	path, _, err := Build(inputDir, outputDir)
	if err != nil {
		t.Fatal(err)
	}

	entries, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != "C" {
		t.Fatalf("entries = %+v", entries)
	}
	if !filepath.IsAbs(entries[0].Path) {
		t.Errorf("path %q should be absolute", entries[0].Path)
	}
}

func TestRead_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sheet.txt")
	if err := os.WriteFile(path, []byte("no-tab-here\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Error("want error for malformed line")
	}
}
