package taglib

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shishobooks/mediatag/pkg/mp4"
)

var (
	// ErrInvalid is matched by every error returned from Open.
	ErrInvalid = errors.New("invalid file")

	// ErrInvalidPath is returned for paths that are empty, not valid UTF-8,
	// or contain NUL bytes.
	ErrInvalidPath error = &invalidError{msg: "invalid path"}

	// ErrUnsupportedFormat is returned when the container cannot be detected.
	ErrUnsupportedFormat error = &invalidError{msg: "unsupported format"}

	// ErrNotMP4 is returned by MP4-only operations on other containers.
	ErrNotMP4 = errors.New("file is not an MP4 container")

	// ErrNoPicture is returned by Picture when the file has no embedded picture.
	ErrNoPicture = errors.New("no picture")

	// ErrUnsupportedProperty is returned for complex properties other than PICTURE.
	ErrUnsupportedProperty = errors.New("unsupported complex property")

	// ErrUnsupportedImage is returned when a picture's image type cannot be
	// stored in the container.
	ErrUnsupportedImage = mp4.ErrUnsupportedImage

	// ErrClosed is returned when a closed file is used.
	ErrClosed = errors.New("file already closed")
)

// invalidError is a sentinel that also matches ErrInvalid.
type invalidError struct {
	msg string
}

func (e *invalidError) Error() string {
	return e.msg
}

func (e *invalidError) Is(target error) bool {
	return target == ErrInvalid
}

// OpenError records why a file could not be opened. It matches ErrInvalid
// and unwraps to the underlying cause.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

func (e *OpenError) Is(target error) bool {
	return target == ErrInvalid
}

// FormatError is returned when an operation needs a different container.
type FormatError struct {
	Op     string
	Format Format
	Want   Format
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: needs %s, file is %s", e.Op, e.Want, e.Format)
}

func (e *FormatError) Unwrap() error {
	if e.Want == FormatMP4 {
		return ErrNotMP4
	}
	return ErrUnsupportedFormat
}
