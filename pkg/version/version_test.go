package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Contains(t, info.String(), "climabill "+Version)
	assert.Equal(t, info.Version, info.Fields()["version"])
}

func TestFillFromSettings(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "abc123"},
		{Key: "vcs.time", Value: "2025-01-02T03:04:05Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	t.Run("fills unset values", func(t *testing.T) {
		info := Info{Version: "1.0.0", GitCommit: unknown, BuildDate: unknown}
		info.fillFromSettings(settings)

		assert.Equal(t, "abc123", info.GitCommit)
		assert.Equal(t, "2025-01-02T03:04:05Z", info.BuildDate)
		assert.True(t, info.Modified)
		assert.Contains(t, info.String(), "commit abc123-dirty")
	})

	t.Run("ldflags win", func(t *testing.T) {
		info := Info{GitCommit: "release-sha", BuildDate: "2025-06-01"}
		info.fillFromSettings(settings)

		assert.Equal(t, "release-sha", info.GitCommit)
		assert.Equal(t, "2025-06-01", info.BuildDate)
	})
}
