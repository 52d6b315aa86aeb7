package launcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrNotFound is the error resulting if a path search failed to find an
// executable file. It matches what execvp(3) reports in the same situation.
var ErrNotFound error = unix.ENOENT

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

// LookPath searches for an executable named file in the directories of the
// colon separated search path. If file contains a slash, it is tried directly
// and the path is not consulted. The result may be an absolute path or a path
// relative to the current directory.
func LookPath(file, path string) (string, error) {
	if strings.Contains(file, "/") {
		err := findExecutable(file)
		if err == nil {
			return file, nil
		}
		return "", err
	}
	if file == "" {
		return "", ErrNotFound
	}

	// A later match wins over a permission error, as in execvp(3), but the
	// permission error is reported if nothing else is found.
	var lastErr error = ErrNotFound
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		err := findExecutable(path)
		if err == nil {
			return path, nil
		}
		if err == fs.ErrPermission {
			lastErr = err
		}
	}
	return "", lastErr
}
