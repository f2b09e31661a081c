// Package buildinfo carries version details stamped at link time via
// -ldflags "-X staffplan/internal/buildinfo.Version=...".
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

func Info() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
	}
}

// String renders a one-line human readable version.
func String() string {
	s := Version
	if Commit != "" {
		s = fmt.Sprintf("%s (%s)", s, Commit)
	}
	if BuiltAt != "" {
		s = fmt.Sprintf("%s built %s", s, BuiltAt)
	}
	return s
}
