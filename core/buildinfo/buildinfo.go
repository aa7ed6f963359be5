// Package buildinfo reports the version stamped into the binary.
//
// Set the variables with -ldflags:
//
//	-X 'festbot/core/buildinfo.Version=v1.2.3'
//	-X 'festbot/core/buildinfo.Commit=abcdef0'
//	-X 'festbot/core/buildinfo.Date=2025-08-30T12:00:00Z'
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

// Info is a snapshot of the build metadata.
type Info struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
}

// Current returns the stamped values. Unstamped commit and date fall back
// to the VCS settings recorded by the Go toolchain.
func Current() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date, GoVersion: runtime.Version()}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "local":
			info.Commit = shortRevision(s.Value)
		case s.Key == "vcs.time" && info.Date == "":
			info.Date = s.Value
		}
	}
	return info
}

func (i Info) String() string {
	return fmt.Sprintf("%s (%s)", i.Version, i.Commit)
}

func shortRevision(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
