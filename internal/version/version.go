// Package version carries build metadata stamped in via ldflags:
//
//	go build -ldflags "-X github.com/mcooley/PlayFabExport/internal/version.Version=1.0.0 \
//	                   -X github.com/mcooley/PlayFabExport/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/mcooley/PlayFabExport/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// Commit is the short git hash.
	Commit = "unknown"

	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// String returns the version line printed by "playfabexport version".
func String() string {
	return "playfabexport " + Version + " (" + Commit + ") built " + BuildTime
}

// UserAgent is sent on every outbound HTTP request.
func UserAgent() string {
	return "playfabexport/" + Version
}
