package version

// Build metadata, replaced through -ldflags "-X" at release time.
var (
	Version      = "0.1.0"                  // Version of the artifact validator
	Toolname     = "artifact-validator-dev" // Name of the tool
	Organization = "unknown"                // Organization that built the tool
	BuildDate    = "unknown"                // Date when the tool was built
	CommitSHA    = "unknown"                // Commit SHA of the tool
)
