package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/satishbabariya/strata/cli/internal/version"
)

func TestShortCommit(t *testing.T) {
	assert.Equal(t, "unknown", version.Info{}.ShortCommit())
	assert.Equal(t, "abc", version.Info{Commit: "abc"}.ShortCommit())
	assert.Equal(t, "0123456789ab", version.Info{Commit: "0123456789abcdef"}.ShortCommit())
}

func TestFullString(t *testing.T) {
	info := version.Info{Version: "1.2.3", Commit: "0123456789abcdef", Dirty: true, Go: "go1.24.1", Platform: "linux/amd64"}

	assert.Equal(t, `strata version 1.2.3
  commit:   0123456789ab-dirty
  built:    unknown
  go:       go1.24.1
  platform: linux/amd64`, info.FullString())
	assert.Equal(t, "strata version 1.2.3 (linux/amd64 go1.24.1)", info.String())
}

func TestGetUsesLinkedVersion(t *testing.T) {
	info := version.Get()
	assert.Equal(t, version.Version, info.Version)
	assert.NotEmpty(t, info.Go)
	assert.NotEmpty(t, info.Platform)
}
