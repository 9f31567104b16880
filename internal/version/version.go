// Package version reports which build of mediadb is running.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

const unknown = "unknown"

// Build-time overrides, set via -ldflags "-X". When left unset the values
// come from the module build info stamped by the go command.
var (
	Version   = ""
	Commit    = unknown
	BuildTime = unknown
)

// Info describes a build.
type Info struct {
	Version   string
	Commit    string
	BuildTime string
	Modified  bool
}

// Get resolves the running build's info.
func Get() Info {
	bi, _ := debug.ReadBuildInfo()
	return resolve(bi)
}

func resolve(bi *debug.BuildInfo) Info {
	info := Info{Version: Version, Commit: Commit, BuildTime: BuildTime}
	if bi == nil {
		if info.Version == "" {
			info.Version = "dev"
		}
		return info
	}

	if info.Version == "" {
		info.Version = bi.Main.Version
		if info.Version == "" || info.Version == "(devel)" {
			info.Version = "dev"
		}
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == unknown {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == unknown {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// String renders the info on one line.
func (i Info) String() string {
	commit := i.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if i.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("mediadb %s (commit: %s, built: %s)", strings.TrimPrefix(i.Version, "v"), commit, i.BuildTime)
}

// String returns the running build's version line.
func String() string {
	return Get().String()
}
