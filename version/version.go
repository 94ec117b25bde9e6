// Package version reports the version of the build.
package version

import "runtime/debug"

// Version can be set at build time:
// go build -ldflags "-X github.com/fmtrack/fmtrack/version.Version=$(git describe --dirty)"
var Version string

// VersionOrHash is Version if set; otherwise the module version when built
// with go install, or the short VCS revision, suffixed with -dirty for
// modified trees.
var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	return fromBuildInfo(info)
}()

func fromBuildInfo(info *debug.BuildInfo) string {
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	var revision string
	modified := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return "devel"
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if modified {
		return revision + "-dirty"
	}
	return revision
}
