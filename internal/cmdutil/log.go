package cmdutil

import (
	"fmt"
	"io"
)

// Warnf prints "rnadiff: warning: ..." on dst unless quiet is set. Warnings
// never change the exit status.
func Warnf(dst io.Writer, quiet bool, format string, a ...any) {
	if quiet {
		return
	}
	_, _ = fmt.Fprintf(dst, "rnadiff: warning: "+format+"\n", a...)
}
