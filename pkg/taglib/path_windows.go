//go:build windows

package taglib

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// checkPlatformPath verifies the path survives conversion to the UTF-16 form
// the wide Win32 file APIs take.
func checkPlatformPath(path string) error {
	wide, err := windows.UTF16FromString(path)
	if err != nil {
		return errors.Wrapf(ErrInvalidPath, "%q: %v", path, err)
	}
	if windows.UTF16ToString(wide) != path {
		return errors.Wrapf(ErrInvalidPath, "%q does not round-trip through UTF-16", path)
	}
	return nil
}
