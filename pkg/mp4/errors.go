package mp4

import "errors"

// Errors returned by the mp4 package.
var (
	// ErrNotMP4 is returned when the file is not a valid MP4/M4A/M4B file.
	ErrNotMP4 = errors.New("not a valid MP4 file")

	// ErrInvalidBox is returned when a box structure is invalid.
	ErrInvalidBox = errors.New("invalid box structure")

	// ErrInvalidKey is returned when an item key cannot be encoded as an atom.
	ErrInvalidKey = errors.New("invalid item key")

	// ErrUnsupportedImage is returned for cover art covr cannot label.
	ErrUnsupportedImage = errors.New("unsupported cover image type")

	// ErrOffsetOverflow is returned when shifting a 32-bit chunk offset would overflow.
	ErrOffsetOverflow = errors.New("chunk offset overflow")
)
