// Package fsutil contains utilities for working with the file system.
package fsutil

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileExists returns whether the file or directory exists or an error if something went wrong in the filesystem.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to FileExists(%q)", path)
}

// ResolvePath expands environment variables ("$HOME", "${DATA}") and a leading "~" or "~user" in path,
// and cleans the result.
func ResolvePath(path string) (string, error) {
	path = os.ExpandEnv(path)
	path, err := ReplaceTilde(path)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", nil
	}
	return filepath.Clean(path), nil
}

// ReplaceTilde by the user's home directory. Returns path if it doesn't start with "~".
//
// It returns an error if `path` has an unknown user (e.g: `~unknown/...`)
func ReplaceTilde(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	userName, rest, _ := strings.Cut(path[1:], "/")
	var (
		usr *user.User
		err error
	)
	if userName == "" {
		usr, err = user.Current()
	} else {
		usr, err = user.Lookup(userName)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to lookup home directory for user in path %q", path)
	}
	return filepath.Join(usr.HomeDir, rest), nil
}
