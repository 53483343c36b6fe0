// Package buildinfo exposes version data stamped in at link time:
//
//	go build -ldflags "-X github.com/yndnr/authrelay-go/internal/infra/buildinfo.Version=v1.2.0 \
//	  -X github.com/yndnr/authrelay-go/internal/infra/buildinfo.Commit=$(git rev-parse --short HEAD)"
//
// Unstamped builds fall back to the module version and VCS settings that
// the Go toolchain records in the binary.
package buildinfo
