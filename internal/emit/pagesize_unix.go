//go:build linux || darwin

package emit

import "golang.org/x/sys/unix"

// hostPageSize backs alignLog2's sanity check: no directive this emitter
// ever produces should ask for an alignment wider than the host's page
// size. Mirrors xyproto-vibe67's filewatcher_unix.go/filewatcher_darwin.go
// per-OS unix.* split.
func hostPageSize() int { return unix.Getpagesize() }
