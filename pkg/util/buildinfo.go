// Package util holds small helpers shared by the binaries.
package util

import (
	"fmt"
	"io"
)

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

// FprintBuildInfo writes the build metadata injected via -ldflags.
func FprintBuildInfo(w io.Writer, version, date, commit string) {
	fmt.Fprintf(w, "Build version: %s\n", orNA(version))
	fmt.Fprintf(w, "Build date: %s\n", orNA(date))
	fmt.Fprintf(w, "Build commit: %s\n", orNA(commit))
}
