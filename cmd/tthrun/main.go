package main

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/streamingfast/derr"
)

// Commit sha1 value, injected via go build `ldflags` at build time
var commit = ""

// Version value, injected via go build `ldflags` at build time
var version = "dev"

// Date value, injected via go build `ldflags` at build time
var date = ""

func main() {
	info, _ := debug.ReadBuildInfo()
	rootCmd.Version = computeVersionString(version, commit, date, info)
	derr.Check("tthrun", rootCmd.Execute())
}

// computeVersionString labels the version with the commit and build date.
// Values missing from the ldflags are taken from the VCS stamps of the
// binary when present.
func computeVersionString(version, commit, date string, info *debug.BuildInfo) string {
	dirty := false
	if info != nil && commit == "" {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				commit = setting.Value
			case "vcs.time":
				if date == "" {
					date = setting.Value
				}
			case "vcs.modified":
				dirty = setting.Value == "true"
			}
		}
	}

	var labels []string
	if len(commit) >= 7 {
		label := "Commit " + commit[0:7]
		if dirty {
			label += "-dirty"
		}
		labels = append(labels, label)
	}
	if date != "" {
		labels = append(labels, "Built "+date)
	}

	if len(labels) == 0 {
		return version
	}
	return fmt.Sprintf("%s (%s)", version, strings.Join(labels, ", "))
}
