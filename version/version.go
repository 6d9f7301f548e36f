// Package version holds build information, overridable at link time with
// -ldflags "-X github.com/TFMV/reconcile/version.Version=...".
package version

var Version = "0.2.0"
var BuildDate = "2026-10-19"

func GetVersion() string {
	return Version
}

func GetBuildDate() string {
	return BuildDate
}
