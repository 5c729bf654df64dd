// Package buildinfo carries version data injected at link time.
//
//	go build -ldflags "-X github.com/dmitrijs2005/healthsync/internal/buildinfo.Version=1.0.0"
package buildinfo

import (
	"fmt"
	"io"
)

var (
	Version   = "N/A"
	Commit    = "N/A"
	BuildTime = "N/A"
)

// PrintBuildData writes the build version, date and commit to w.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", Version)
	fmt.Fprintf(w, "Build date: %s\n", BuildTime)
	fmt.Fprintf(w, "Build commit: %s\n", Commit)
}
