package tabular

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTSV(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestExtract_SelectsMatchingColumns(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "results.txt")
	out := filepath.Join(dir, "quinolone.txt")

	writeTSV(t, in,
		"Isolate\tQuinolone resistance\tBeta-lactamase\tOther Quinolone",
		"A\tgyrA_T86I\tblaOXA\tqnrS1",
		"B\t\tblaTEM\t",
	)

	if err := Extract(in, out, "quinolone"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if lines[0] != "Isolate\tQuinolone resistance\tOther Quinolone" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "A\tgyrA_T86I\tqnrS1" {
		t.Errorf("row A = %q", lines[1])
	}
	if lines[2] != "B\t\t" {
		t.Errorf("row B = %q", lines[2])
	}
}

func TestExtract_NoMatchingColumnIsAnError(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "results.txt")
	writeTSV(t, in, "Isolate\tBeta-lactamase", "A\tblaOXA")

	if err := Extract(in, filepath.Join(dir, "out.txt"), "quinolone"); err == nil {
		t.Error("want error when no column matches")
	}
}

func TestExtract_MissingInput(t *testing.T) {
	dir := t.TempDir()
	err := Extract(filepath.Join(dir, "nope.txt"), filepath.Join(dir, "out.txt"), "x")
	if err == nil {
		t.Error("want error for missing input")
	}
}

func TestMerge_UnionOfColumns(t *testing.T) {
	dir := t.TempDir()
	writeTSV(t, filepath.Join(dir, "batch1.txt"),
		"Isolate\tQuinolone",
		"A\tgyrA_T86I",
	)
	writeTSV(t, filepath.Join(dir, "batch2.txt"),
		"Isolate\tMacrolide",
		"B\term(B)",
	)

	out := filepath.Join(t.TempDir(), "master.txt")
	if err := Merge(dir, out); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if lines[0] != "Isolate\tQuinolone\tMacrolide" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 3 {
		t.Fatalf("want 3 lines, got %q", lines)
	}
	if lines[1] != "A\tgyrA_T86I\t" {
		t.Errorf("row A = %q", lines[1])
	}
	if lines[2] != "B\t\term(B)" {
		t.Errorf("row B = %q", lines[2])
	}
}

func TestMerge_EmptyDirIsAnError(t *testing.T) {
	if err := Merge(t.TempDir(), filepath.Join(t.TempDir(), "out.txt")); err == nil {
		t.Error("want error when no tables exist")
	}
}
