// Package normalize prepares an input directory for the pipeline by
// decompressing gzip-compressed sequence files in place.
package normalize

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pathogenwatch/amrpipe/internal/console"
	"github.com/pathogenwatch/amrpipe/internal/domain"
)

// GzipSuffix marks files that need decompression
const GzipSuffix = ".gz"

// Run decompresses every *.gz entry in dir to a sibling file with the suffix
// stripped and removes the compressed original. Re-running on a directory with
// no compressed files is a no-op. A failure on one file is recorded in the
// report and does not stop the remaining files.
func Run(dir string) (*domain.Report, error) {
	report := domain.NewReport(domain.StageNormalize)

	console.Infof("Checking for compressed %s files in %s...", GzipSuffix, dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("reading input directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), GzipSuffix) {
			continue
		}
		report.Item()

		src := filepath.Join(dir, entry.Name())
		dst := filepath.Join(dir, strings.TrimSuffix(entry.Name(), GzipSuffix))

		console.Infof("Decompressing %s...", entry.Name())
		if err := decompress(src, dst); err != nil {
			console.Warnf("Failed to decompress %s: %v", entry.Name(), err)
			report.Fail(entry.Name(), err)
			continue
		}
		if err := os.Remove(src); err != nil {
			console.Warnf("Failed to remove %s after decompression: %v", entry.Name(), err)
			report.Fail(entry.Name(), err)
			continue
		}
		console.Infof("Decompressed %s to %s", entry.Name(), dst)
	}

	console.Infof("Decompression completed.")
	return report, nil
}

func decompress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return err
	}
	defer gz.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, gz); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
