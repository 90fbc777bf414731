package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// Source returns the tag attached to every submitted vitals report so the
// aggregator can tell which build produced it.
func Source() string {
	return fmt.Sprintf("vitals.report/%s (%s)", Version, GitSHA)
}
