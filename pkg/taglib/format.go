package taglib

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

// Format identifies the container of an opened file.
type Format int

const (
	FormatUnknown Format = iota
	FormatMP4
	FormatMP3
	FormatFLAC
)

func (f Format) String() string {
	switch f {
	case FormatMP4:
		return "mp4"
	case FormatMP3:
		return "mp3"
	case FormatFLAC:
		return "flac"
	default:
		return "unknown"
	}
}

// mimeFormats maps detected MIME types to containers. Parents of the
// detected type are consulted as well.
var mimeFormats = map[string]Format{
	"audio/mp4":   FormatMP4,
	"audio/x-m4a": FormatMP4,
	"audio/x-m4b": FormatMP4,
	"video/mp4":   FormatMP4,
	"video/x-m4v": FormatMP4,
	"audio/mpeg":  FormatMP3,
	"audio/flac":  FormatFLAC,
}

var extensionFormats = map[string]Format{
	".m4a":  FormatMP4,
	".m4b":  FormatMP4,
	".m4p":  FormatMP4,
	".m4r":  FormatMP4,
	".m4v":  FormatMP4,
	".mp4":  FormatMP4,
	".mp3":  FormatMP3,
	".flac": FormatFLAC,
}

// detectFormat sniffs the container from the file content, then from an
// ftyp box at the start, then from the extension.
func detectFormat(path string) (Format, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return FormatUnknown, errors.WithStack(err)
	}
	for m := mtype; m != nil; m = m.Parent() {
		for mime, format := range mimeFormats {
			if m.Is(mime) {
				return format, nil
			}
		}
	}

	if ok, err := hasFtyp(path); err != nil {
		return FormatUnknown, err
	} else if ok {
		return FormatMP4, nil
	}

	if format, ok := extensionFormats[strings.ToLower(filepath.Ext(path))]; ok {
		return format, nil
	}

	return FormatUnknown, errors.Wrapf(ErrUnsupportedFormat, "%s (%s)", filepath.Base(path), mtype.String())
}

// hasFtyp reports whether the file starts with an ISO base media ftyp box.
func hasFtyp(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, errors.WithStack(err)
	}
	defer f.Close()

	header := make([]byte, 8)
	if _, err := io.ReadFull(f, header); err != nil {
		return false, nil
	}
	return string(header[4:8]) == "ftyp", nil
}
