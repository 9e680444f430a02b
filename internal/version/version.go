// Package version exposes the build version stamped at link time.
package version

// Version identifies the build in logs, the summary document, and the run
// manifest. Release builds override it:
//
//	-ldflags "-X github.com/gcodelens/gcodelens/internal/version.Version=v1.0.0"
var Version = "dev"
