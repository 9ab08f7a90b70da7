package version

import (
	"runtime/debug"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Version is the current semantic version of cfmlctx
const Version = "0.3.0"

// Set during build time with -ldflags "-X ..."
var (
	BuildDate = "development"
	GitCommit = "unknown"
)

// Info returns the version string
func Info() string {
	return Version
}

// FullInfo returns the version with commit, build date and build fingerprint
func FullInfo() string {
	return "cfmlctx " + Version + " (commit: " + GitCommit + ", built: " + BuildDate + ", build: " + BuildID() + ")"
}

var buildID = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version + "-" + GitCommit
	}
	return fingerprint(info)
})

// BuildID identifies the running binary. Two binaries built from the same
// module version, toolchain and VCS state share an ID.
func BuildID() string {
	return buildID()
}

func fingerprint(info *debug.BuildInfo) string {
	d := xxhash.New()
	for _, part := range []string{info.GoVersion, info.Main.Path, info.Main.Version, info.Main.Sum} {
		_, _ = d.WriteString(part)
		_, _ = d.WriteString("\x00")
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" || s.Key == "vcs.modified" {
			_, _ = d.WriteString(s.Key + "=" + s.Value + "\x00")
		}
	}
	return strconv.FormatUint(d.Sum64(), 36)
}
