package taglib

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// canonicalPath validates and cleans a caller-supplied path. Every path
// entering the package goes through here once; the platform specific part
// lives in checkPlatformPath.
func canonicalPath(path string) (string, error) {
	if path == "" {
		return "", errors.Wrap(ErrInvalidPath, "empty path")
	}
	if !utf8.ValidString(path) {
		return "", errors.Wrapf(ErrInvalidPath, "%q is not valid UTF-8", path)
	}
	if strings.ContainsRune(path, 0) {
		return "", errors.Wrapf(ErrInvalidPath, "%q contains a NUL byte", path)
	}
	if err := checkPlatformPath(path); err != nil {
		return "", err
	}
	return filepath.Clean(path), nil
}
