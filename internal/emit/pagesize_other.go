//go:build !(linux || darwin)

package emit

// hostPageSize falls back to the common 4 KiB page size on platforms
// golang.org/x/sys/unix doesn't cover (this compiler's own two output
// targets, Linux and macOS, are both handled by pagesize_unix.go).
func hostPageSize() int { return 4096 }
