package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	origVersion, origCommit, origBuildTime := Version, GitCommit, BuildTime
	defer func() {
		Version, GitCommit, BuildTime = origVersion, origCommit, origBuildTime
	}()

	Version = "1.2.3"
	GitCommit = "abc123def"
	BuildTime = "2026-01-15T10:30:00Z"

	s := String()
	assert.Contains(t, s, "botcore")
	assert.Contains(t, s, "1.2.3")
	assert.Contains(t, s, "abc123def")
	assert.Contains(t, s, "2026-01-15T10:30:00Z")
	assert.Contains(t, s, runtime.Version())
}

func TestInfo(t *testing.T) {
	info := Info()

	assert.Equal(t, Version, info["version"])
	assert.Equal(t, GitCommit, info["commit"])
	assert.Equal(t, BuildTime, info["buildTime"])
	assert.Equal(t, runtime.Version(), info["goVersion"])
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info["platform"])
}

func TestDefaultsNotEmpty(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.NotEmpty(t, GitCommit)
	assert.NotEmpty(t, BuildTime)
}
