package tabular

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pathogenwatch/amrpipe/internal/console"
)

// Merge concatenates every .txt table in dir into one master table at
// outputPath. The merged header is the union of all input columns in order of
// first appearance; cells absent from an input stay empty. A table that fails
// to parse is skipped with a warning.
func Merge(dir, outputPath string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".txt") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no .txt files found in %s", dir)
	}

	var columns []string
	colIndex := make(map[string]int)
	var records []map[string]string

	for _, file := range files {
		console.Infof("Processing file: %s", file)
		rows, err := readTable(file)
		if err != nil {
			console.Warnf("Error processing file %s: %v", file, err)
			continue
		}
		if len(rows) == 0 {
			continue
		}

		header := rows[0]
		for _, col := range header {
			if _, ok := colIndex[col]; !ok {
				colIndex[col] = len(columns)
				columns = append(columns, col)
			}
		}

		for _, row := range rows[1:] {
			record := make(map[string]string, len(header))
			for i, col := range header {
				if i < len(row) {
					record[col] = row[i]
				}
			}
			records = append(records, record)
		}
	}

	out := make([][]string, 0, len(records)+1)
	out = append(out, columns)
	for _, record := range records {
		row := make([]string, len(columns))
		for col, val := range record {
			row[colIndex[col]] = val
		}
		out = append(out, row)
	}

	console.Infof("Saving merged data to: %s", outputPath)
	return writeTable(outputPath, out)
}
