package output

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"rnadiff/internal/results"
	"rnadiff/internal/rnaerr"
)

// ExportFile writes t to path in format. The file appears only once it is
// complete; on any failure nothing is left behind.
func ExportFile(path, format string, t results.Table) error {
	if !HasFormat(format) {
		return rnaerr.Schemaf("unknown export format %q", format)
	}
	return AtomicWrite(path, func(w io.Writer) error { return Write(format, w, t) })
}

// AtomicWrite streams fill into a temporary file next to path and renames it
// into place. The directory must already exist.
func AtomicWrite(path string, fill func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return rnaerr.IO(err, "create %s", path)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriter(f)
	if err = fill(bw); err != nil {
		return rnaerr.IO(err, "write %s", path)
	}
	if err = bw.Flush(); err != nil {
		return rnaerr.IO(err, "write %s", path)
	}
	if err = f.Chmod(0o644); err != nil {
		return rnaerr.IO(err, "chmod %s", path)
	}
	if err = f.Close(); err != nil {
		return rnaerr.IO(err, "close %s", path)
	}
	if err = os.Rename(tmp, path); err != nil {
		return rnaerr.IO(err, "rename into %s", path)
	}
	return nil
}
