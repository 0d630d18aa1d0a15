// Package runutil resolves run-time knobs that depend on the host.
package runutil

import "runtime"

// Threads returns the worker count for a --threads value: n when positive,
// otherwise every CPU.
func Threads(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU()
}
