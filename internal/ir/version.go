package ir

// Version constants for the unit format and the weaver runtime.
const (
	// FormatVersion is the unit tree schema version.
	FormatVersion = "1"

	// Version is the weaver version, in semver form with the leading "v".
	Version = "v0.1.0"
)
