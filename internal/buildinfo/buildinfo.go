// Package buildinfo holds build metadata injected with -ldflags, e.g.
//
//	-X github.com/garyellow/campus-assist-go/internal/buildinfo.Version=v1.2.0
package buildinfo

import (
	"runtime/debug"
	"strings"
)

var (
	// Version is the release tag.
	Version = ""
	// Commit is the git SHA.
	Commit = ""
	// BuildDate is an RFC3339 timestamp.
	BuildDate = ""
)

// Info is the build metadata reported by /livez and `campusctl version`.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
}

// Get returns the injected values, falling back to the module version and
// VCS revision recorded by the Go toolchain.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, BuildDate: BuildDate}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			}
		}
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}

// String formats the info for a CLI, e.g. "v1.2.0 (abc1234, 2026-01-02T03:04:05Z)".
func (i Info) String() string {
	var extra []string
	if i.Commit != "" {
		extra = append(extra, shortSHA(i.Commit))
	}
	if i.BuildDate != "" {
		extra = append(extra, i.BuildDate)
	}
	if len(extra) == 0 {
		return i.Version
	}
	return i.Version + " (" + strings.Join(extra, ", ") + ")"
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
