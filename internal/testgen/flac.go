package testgen

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// FLAC metadata block types.
const (
	flacStreamInfo    = 0
	flacPadding       = 1
	flacVorbisComment = 4
	flacPicture       = 6
)

// GenerateFLAC creates a FLAC file with a STREAMINFO block, optional Vorbis
// comment and picture blocks, padding, and a few bytes of frame data. The
// frames are not decodable; only the metadata is meaningful.
func GenerateFLAC(t *testing.T, dir, filename string, opts FLACOptions) string {
	t.Helper()

	path := filepath.Join(dir, filename)

	type block struct {
		typ  byte
		data []byte
	}
	blocks := []block{{flacStreamInfo, buildStreamInfo(opts)}}
	if len(opts.Comments) > 0 {
		blocks = append(blocks, block{flacVorbisComment, buildVorbisComment("mediatag testgen", opts.Comments)})
	}
	if opts.HasPicture {
		blocks = append(blocks, block{flacPicture, buildFLACPicture(GenerateImage(t, "image/png"))})
	}
	blocks = append(blocks, block{flacPadding, make([]byte, 64)})

	var buf bytes.Buffer
	buf.WriteString("fLaC")
	for i, b := range blocks {
		header := b.typ
		if i == len(blocks)-1 {
			header |= 0x80
		}
		buf.WriteByte(header)
		size := len(b.data)
		buf.Write([]byte{byte(size >> 16), byte(size >> 8), byte(size)})
		buf.Write(b.data)
	}
	buf.Write(FLACFrames(opts))

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatalf("failed to write FLAC file: %v", err)
	}

	return path
}

// FLACFrames returns the audio bytes GenerateFLAC writes after the metadata:
// a frame sync code followed by opts.FrameData, or 32 zero bytes.
func FLACFrames(opts FLACOptions) []byte {
	frames := []byte{0xFF, 0xF8, 0x69, 0x08, 0x00, 0x00}
	if opts.FrameData != nil {
		return append(frames, opts.FrameData...)
	}
	return append(frames, make([]byte, 32)...)
}

// buildStreamInfo creates a STREAMINFO block describing one second of 16-bit
// audio.
func buildStreamInfo(opts FLACOptions) []byte {
	sampleRate := opts.SampleRate
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	channels := opts.Channels
	if channels <= 0 {
		channels = 2
	}
	const bitsPerSample = 16
	totalSamples := uint64(sampleRate)

	info := make([]byte, 34)
	binary.BigEndian.PutUint16(info[0:2], 4096)
	binary.BigEndian.PutUint16(info[2:4], 4096)
	// min/max frame size left at 0 (unknown)

	// 20 bits sample rate, 3 bits channels-1, 5 bits bps-1, 36 bits samples
	packed := uint64(sampleRate)<<44 |
		uint64(channels-1)<<41 |
		uint64(bitsPerSample-1)<<36 |
		totalSamples
	binary.BigEndian.PutUint64(info[10:18], packed)
	// MD5 left zeroed

	return info
}

// buildVorbisComment creates a Vorbis comment block (little-endian lengths).
func buildVorbisComment(vendor string, comments []string) []byte {
	var buf bytes.Buffer
	writeLE := func(n int) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(n)) //nolint:gosec // test data is small
		buf.Write(b[:])
	}
	writeLE(len(vendor))
	buf.WriteString(vendor)
	writeLE(len(comments))
	for _, c := range comments {
		writeLE(len(c))
		buf.WriteString(c)
	}
	return buf.Bytes()
}

// buildFLACPicture creates a front cover PICTURE block (big-endian lengths).
func buildFLACPicture(data []byte) []byte {
	var buf bytes.Buffer
	writeBE := func(n int) {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n)) //nolint:gosec // test data is small
		buf.Write(b[:])
	}
	mime := "image/png"
	desc := "testgen cover"
	writeBE(3) // front cover
	writeBE(len(mime))
	buf.WriteString(mime)
	writeBE(len(desc))
	buf.WriteString(desc)
	writeBE(100) // width
	writeBE(100) // height
	writeBE(24)  // depth
	writeBE(0)   // indexed colors
	writeBE(len(data))
	buf.Write(data)
	return buf.Bytes()
}
