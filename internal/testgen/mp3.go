package testgen

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// GenerateMP3 creates an MP3 file with an ID3v2.4 tag holding the text
// frames from opts, followed by a handful of silent MPEG-1 Layer III frames.
func GenerateMP3(t *testing.T, dir, filename string, opts MP3Options) string {
	t.Helper()

	path := filepath.Join(dir, filename)

	var buf bytes.Buffer
	if !opts.NoTag {
		var frames bytes.Buffer
		writeID3TextFrame(&frames, "TIT2", opts.Title)
		writeID3TextFrame(&frames, "TPE1", opts.Artist)
		// Padding keeps the tag non-empty when no frames are set
		frames.Write(make([]byte, 32))

		buf.WriteString("ID3")
		buf.Write([]byte{4, 0, 0})
		buf.Write(syncsafe(frames.Len()))
		buf.Write(frames.Bytes())
	}

	// 128 kbps, 44.1 kHz, stereo: 417 bytes per frame
	for i := 0; i < 4; i++ {
		frame := make([]byte, 417)
		copy(frame, []byte{0xFF, 0xFB, 0x90, 0x00})
		buf.Write(frame)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatalf("failed to write MP3 file: %v", err)
	}

	return path
}

// writeID3TextFrame writes a UTF-8 ID3v2.4 text frame when value is set.
func writeID3TextFrame(buf *bytes.Buffer, id, value string) {
	if value == "" {
		return
	}
	body := append([]byte{3}, value...)
	buf.WriteString(id)
	buf.Write(syncsafe(len(body)))
	buf.Write([]byte{0, 0})
	buf.Write(body)
}

// syncsafe encodes n as a 4-byte ID3v2 synchsafe integer.
func syncsafe(n int) []byte {
	return []byte{
		byte(n>>21) & 0x7F,
		byte(n>>14) & 0x7F,
		byte(n>>7) & 0x7F,
		byte(n) & 0x7F,
	}
}
