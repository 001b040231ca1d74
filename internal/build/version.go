// Package build holds build-time metadata injected via ldflags.
package build

// Version is the application version. Overridden at release time with
// -ldflags "-X go.trai.ch/forge/internal/build.Version=...".
var Version = "dev"
