// Package version exposes scout build information.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time via -ldflags, e.g.
// -X github.com/teranos/scout/internal/version.Version=v0.2.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info bundles build metadata for display.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the current build information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders the version line shown by the CLI.
func (i Info) String() string {
	return fmt.Sprintf("scout %s (%s, built %s)", i.Version, i.GitCommit, i.BuildTime)
}
