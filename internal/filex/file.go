// Package filex has small filesystem helpers for the vault directory.
package filex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/adrg/xdg"
)

// DirMode is the permission used for directories holding vault files.
const DirMode = 0o700

// EnsureDir creates dir and any missing parents with DirMode and returns dir.
// It fails if dir exists but is not a directory.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// Exists reports whether path exists. Errors other than "not exist" are
// returned to the caller.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// UserDataDir returns the platform's per-user data directory: XDG_DATA_HOME
// or ~/.local/share on Unix, ~/Library/Application Support on macOS and
// LocalAppData on Windows.
func UserDataDir() (string, error) {
	if xdg.DataHome == "" {
		return "", errors.New("could not find data directory")
	}
	return xdg.DataHome, nil
}
