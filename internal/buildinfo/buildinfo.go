// Package buildinfo carries the values stamped in with -ldflags at build
// time, e.g.
//
//	go build -ldflags "-X github.com/dmitrijs2005/instalatrack/internal/buildinfo.Version=1.4.0"
package buildinfo

import (
	"fmt"
	"io"
)

var (
	Version = "N/A"
	Date    = "N/A"
	Commit  = "N/A"
)

// PrintBuildData writes the three values, one per line.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", Version)
	fmt.Fprintf(w, "Build date: %s\n", Date)
	fmt.Fprintf(w, "Build commit: %s\n", Commit)
}

// String is the one line form used by --version.
func String() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
