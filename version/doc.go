// Package version reports build metadata for the /info endpoint and the
// startup banner. Values are injected at link time:
//
//	go build -ldflags "-X github.com/kbukum/bucketgate/version.Version=1.2.0"
//
// Anything left unset is filled from the binary's embedded VCS build info.
package version
