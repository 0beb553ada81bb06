// Package version exposes the broker's build identity, injected at link time:
//
//	go build -ldflags "-X .../internal/version.Version=v1.2.3 ..."
//
// The health endpoint embeds it so operators can tell which build is serving
// a given fleet instance.
package version

import (
	"fmt"
	"runtime"
)

// Set via ldflags; the zero values identify a local, untagged build.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the build identity as reported by /healthz.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String renders the short single-line form used in startup logs.
func (i Info) String() string {
	return fmt.Sprintf("%s (%s)", i.Version, i.Commit)
}
