// Package version holds the build information of the strata binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X github.com/satishbabariya/strata/cli/internal/version.Commit=...".
var (
	Version = "0.1.0"
	Commit  = ""
	Date    = ""
)

// Info describes the running binary.
type Info struct {
	Version  string
	Commit   string
	Date     string
	Dirty    bool
	Go       string
	Platform string
}

// Get returns the build information. Commit and date fall back to the
// VCS stamp the go tool embeds when they were not set at link time.
func Get() Info {
	info := Info{
		Version:  Version,
		Commit:   Commit,
		Date:     Date,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.Date == "" {
					info.Date = s.Value
				}
			case "vcs.modified":
				info.Dirty = s.Value == "true"
			}
		}
	}
	return info
}

// ShortCommit is the first 12 characters of the commit, or "unknown".
func (i Info) ShortCommit() string {
	switch {
	case i.Commit == "":
		return "unknown"
	case len(i.Commit) > 12:
		return i.Commit[:12]
	default:
		return i.Commit
	}
}

func (i Info) String() string {
	return fmt.Sprintf("strata version %s (%s %s)", i.Version, i.Platform, i.Go)
}

// FullString lists every field on its own line.
func (i Info) FullString() string {
	commit := i.ShortCommit()
	if i.Dirty {
		commit += "-dirty"
	}
	date := i.Date
	if date == "" {
		date = "unknown"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "strata version %s\n", i.Version)
	fmt.Fprintf(&sb, "  commit:   %s\n", commit)
	fmt.Fprintf(&sb, "  built:    %s\n", date)
	fmt.Fprintf(&sb, "  go:       %s\n", i.Go)
	fmt.Fprintf(&sb, "  platform: %s", i.Platform)
	return sb.String()
}
