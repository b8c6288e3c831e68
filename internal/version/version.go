// Package version carries build metadata stamped in with -ldflags, e.g.
//
//	go build -ldflags "-X mask2coco/internal/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import "fmt"

var (
	// Version is the release of the converter.
	Version = "0.1.0"

	// BuildTime is the UTC time when the binary was built.
	BuildTime = "unknown"

	// GitCommit is the short commit hash.
	GitCommit = "unknown"
)

// Info is the JSON shape served by the preview server.
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit}
}

// String formats the metadata for -version output.
func String() string {
	return fmt.Sprintf("mask2coco %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
