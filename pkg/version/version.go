// Package version reports what build of the carbon service is running.
// Release builds stamp the variables with
//
//	-ldflags "-X github.com/GYB356/climabill-sub002/pkg/version.Version=1.2.0 ..."
//
// and plain `go build` falls back to the VCS data the toolchain embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

const unknown = "unknown"

var (
	Version   = "0.1.0"
	GitCommit = unknown
	BuildDate = unknown
)

type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func GetInfo() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.fillFromSettings(bi.Settings)
	}
	return info
}

// fillFromSettings uses vcs.* build settings for whatever ldflags left unset.
func (i *Info) fillFromSettings(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if i.GitCommit == unknown {
				i.GitCommit = s.Value
			}
		case "vcs.time":
			if i.BuildDate == unknown {
				i.BuildDate = s.Value
			}
		case "vcs.modified":
			i.Modified = s.Value == "true"
		}
	}
}

// Fields is Info as log fields for the startup line.
func (i Info) Fields() logrus.Fields {
	return logrus.Fields{
		"version":    i.Version,
		"git_commit": i.GitCommit,
		"build_date": i.BuildDate,
		"go_version": i.GoVersion,
		"platform":   i.Platform,
	}
}

func (i Info) String() string {
	commit := i.GitCommit
	if i.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("climabill %s (commit %s, built %s, %s %s)", i.Version, commit, i.BuildDate, i.GoVersion, i.Platform)
}
