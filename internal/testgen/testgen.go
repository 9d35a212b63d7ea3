// Package testgen provides utilities for generating test files (M4A, MP3,
// FLAC) with configurable tags for testing the tag backends.
package testgen

import (
	"os"
	"path/filepath"
	"testing"
)

// M4AOptions configures the generated M4A file.
type M4AOptions struct {
	Title       string
	Artist      string
	Album       string
	Genre       string
	GenreType18 bool // write the genre data box with type 18 instead of UTF-8
	TrackNumber uint16
	TrackTotal  uint16
	Freeform    map[string]string // com.apple.iTunes freeform atoms by name
	Duration    float64           // seconds, defaults to 1
	HasCover    bool
	// CoverMimeType is "image/jpeg" or "image/png", defaults to "image/png"
	CoverMimeType string

	NoMetadata    bool // omit moov/udta entirely
	QuickTimeMeta bool // write meta without version/flags like QuickTime does
	MoovAfterMdat bool
	Co64          bool // use 64-bit chunk offsets

	// Codec selects the sample entry: "aac-lc" (default), "he-aac",
	// "xhe-aac", "mpeg2-aac-lc", "mp3", "alac" or "eac3"
	Codec string
	// BtrtBitrate adds a btrt box with this average bitrate in bps to the
	// sample entry and zeroes the esds average bitrate
	BtrtBitrate uint32
}

func (o M4AOptions) durationMillis() uint32 {
	if o.Duration <= 0 {
		return 1000
	}
	return uint32(o.Duration * 1000)
}

// MP3Options configures the generated MP3 file.
type MP3Options struct {
	Title  string
	Artist string
	// NoTag writes bare MPEG frames without an ID3v2 header
	NoTag bool
}

// FLACOptions configures the generated FLAC file.
type FLACOptions struct {
	// Comments are written as a Vorbis comment block, in order
	Comments   []string // "FIELD=value"
	HasPicture bool
	SampleRate int // defaults to 44100
	Channels   int // defaults to 2
	// FrameData replaces the filler written after the frame sync code
	FrameData []byte
}

// TempDir creates a temporary directory for testing and registers cleanup.
// The directory is automatically removed when the test completes.
func TempDir(t *testing.T, pattern string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}

// WriteFile creates a file with the given content in the specified directory.
// Returns the full path to the created file.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadFile reads and returns the contents of a file.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return data
}
