// Package buildinfo carries version stamps injected with -ldflags:
//
//	go build -ldflags "-X github.com/m3rciful/attendobot/core/buildinfo.Version=v0.3.0 \
//	  -X github.com/m3rciful/attendobot/core/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/m3rciful/attendobot/core/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/attendobot
package buildinfo

import "strings"

var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

// String renders the stamps as "version (commit, date)", leaving out empty parts.
func String() string {
	var meta []string
	for _, s := range []string{Commit, Date} {
		if s = strings.TrimSpace(s); s != "" {
			meta = append(meta, s)
		}
	}
	if len(meta) == 0 {
		return Version
	}
	return Version + " (" + strings.Join(meta, ", ") + ")"
}
