// Package console prints the pipeline's operator-facing progress lines.
package console

import (
	"fmt"
	"os"
)

// Infof prints an informational progress line to stdout
func Infof(format string, args ...any) {
	fmt.Printf("[INFO] "+format+"\n", args...)
}

// Warnf prints a warning line to stderr
func Warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[WARNING] "+format+"\n", args...)
}
