// Package buildinfo reports the version of the stowage binary.
//
// Release builds inject values via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/stowage-go/internal/infra/buildinfo.Version=v1.0.0"
//
// Development builds fall back to the VCS stamp the Go toolchain embeds.
package buildinfo
