// Package version exposes build metadata injected via -ldflags.
package version

import "runtime"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the machine-readable form printed by `listen version --json`.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

func Current() Info {
	return Info{Version: Version, Commit: Commit, Date: Date, Go: runtime.Version()}
}

func String() string {
	info := Current()
	return "listen " + info.Version + " (commit=" + info.Commit + ", date=" + info.Date + ", go=" + info.Go + ")"
}
