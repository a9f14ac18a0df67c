// Package buildinfo reports the agent's version and build metadata.
//
// Release builds inject the values via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/lockscope-go/internal/infra/buildinfo.Version=v1.0.0"
//
// Builds without ldflags fall back to the module's embedded VCS data
// where available.
package buildinfo

import (
	"runtime"
	"runtime/debug"
)

var (
	// Version is the semantic version.
	Version = "dev"

	// Commit is the git commit hash.
	Commit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

func init() {
	if Commit != "unknown" {
		return
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			Commit = s.Value
		case "vcs.time":
			BuildTime = s.Value
		}
	}
}

// Info is the build metadata as it appears in status responses.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the build metadata.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String renders the one-line form used by banners and --version.
func String() string {
	return Version + " (" + Commit + ") built at " + BuildTime
}
