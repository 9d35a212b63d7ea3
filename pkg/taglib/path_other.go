//go:build !windows

package taglib

// checkPlatformPath has nothing to add on systems whose file APIs take
// UTF-8 bytes directly.
func checkPlatformPath(string) error {
	return nil
}
