// Package tabular filters and merges the tab-delimited result tables the AMR
// tool produces.
package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/pathogenwatch/amrpipe/internal/console"
)

// IsolateColumn is the identifier column every AMR result table carries
const IsolateColumn = "Isolate"

// Extract reads a tab-delimited result table and writes a new table holding
// the Isolate column plus every column whose header contains pattern,
// case-insensitively. Returns an error when no column matches.
func Extract(inputPath, outputPath, pattern string) error {
	console.Infof("Loading data from: %s", inputPath)

	rows, err := readTable(inputPath)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s: empty table", inputPath)
	}

	header := rows[0]
	var keep []int
	for i, col := range header {
		if col == IsolateColumn || strings.Contains(strings.ToLower(col), strings.ToLower(pattern)) {
			keep = append(keep, i)
		}
	}

	matched := false
	for _, i := range keep {
		if header[i] != IsolateColumn {
			matched = true
		}
	}
	if !matched {
		return fmt.Errorf("no columns containing %q found in %s", pattern, inputPath)
	}

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		selected := make([]string, 0, len(keep))
		for _, i := range keep {
			if i < len(row) {
				selected = append(selected, row[i])
			} else {
				selected = append(selected, "")
			}
		}
		out = append(out, selected)
	}

	console.Infof("Saving extracted data to: %s", outputPath)
	return writeTable(outputPath, out)
}

func readTable(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, nil
}

func writeTable(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
