package version

import (
	"runtime/debug"
	"testing"
)

func TestResolve(t *testing.T) {
	stamped := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/example/mediadb", Version: "v1.2.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	tests := []struct {
		name      string
		version   string
		commit    string
		buildTime string
		bi        *debug.BuildInfo
		want      string
	}{
		{
			name:      "no build info",
			commit:    unknown,
			buildTime: unknown,
			want:      "mediadb dev (commit: unknown, built: unknown)",
		},
		{
			name:      "stamped by the go command",
			commit:    unknown,
			buildTime: unknown,
			bi:        stamped,
			want:      "mediadb 1.2.0 (commit: 0123456789ab-dirty, built: 2026-10-01T12:00:00Z)",
		},
		{
			name:      "ldflags win over build info",
			version:   "v2.0.0",
			commit:    "feedface",
			buildTime: "yesterday",
			bi:        stamped,
			want:      "mediadb 2.0.0 (commit: feedface-dirty, built: yesterday)",
		},
		{
			name:      "devel module",
			commit:    unknown,
			buildTime: unknown,
			bi:        &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			want:      "mediadb dev (commit: unknown, built: unknown)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldVersion, oldCommit, oldTime := Version, Commit, BuildTime
			t.Cleanup(func() { Version, Commit, BuildTime = oldVersion, oldCommit, oldTime })
			Version, Commit, BuildTime = tt.version, tt.commit, tt.buildTime

			if got := resolve(tt.bi).String(); got != tt.want {
				t.Errorf("resolve().String() = %q, want %q", got, tt.want)
			}
		})
	}
}
