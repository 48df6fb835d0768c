package common

import "fmt"

// Set via -ldflags "-X github.com/ternarybob/annuaire/internal/common.Version=..."
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string
	Build     string
	GitCommit string
}

// CurrentBuild returns the link-time build information.
func CurrentBuild() BuildInfo {
	return BuildInfo{Version: Version, Build: Build, GitCommit: GitCommit}
}

func (b BuildInfo) String() string {
	if b.Build == "unknown" && b.GitCommit == "unknown" {
		return b.Version
	}
	return fmt.Sprintf("%s (build %s, commit %s)", b.Version, b.Build, b.GitCommit)
}
