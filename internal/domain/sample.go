package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// SequenceSuffix is the canonical nucleotide FASTA suffix the pipeline operates on
const SequenceSuffix = ".fna"

// SampleIDFromFile derives the sample identifier from a sequence file name:
// the portion of the base name before the first dot. Every stage must use this
// so identifiers correlate across annotation, manifest and cleanup.
func SampleIDFromFile(name string) string {
	base := filepath.Base(name)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}

// IsSequenceFile reports whether name looks like a canonical sequence file
func IsSequenceFile(name string) bool {
	return strings.HasSuffix(name, SequenceSuffix)
}

// Sample is the run-scoped record for one input genome
type Sample struct {
	ID            string
	Path          string // absolute path to the canonical .fna file
	AnnotationDir string // set once the annotation stage has run
}

// ManifestEntry is one line of the sample manifest consumed by the AMR tool
type ManifestEntry struct {
	ID   string
	Path string
}

// Run represents a single pipeline execution
type Run struct {
	ID         string
	InputDir   string
	OutputDir  string
	Species    string
	Kingdom    Kingdom
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
}
