package version

// Package metadata, replaced during release builds via -ldflags.
var (
	Version   = "0.1.0"
	Toolname  = "arch-bootstrap"
	BuildDate = "unknown"
	CommitSHA = "unknown"
)
