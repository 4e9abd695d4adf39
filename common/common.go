// Package common holds process-wide helpers shared by the binaries: logger
// setup and build metadata.
package common

// PackageName is used as the namespace for exported metrics.
const PackageName = "membership_registry"

// Version is overridden at build time with -ldflags "-X .../common.Version=...".
var Version = "dev"
