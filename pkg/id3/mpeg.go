package id3

import (
	"bufio"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/tcolgate/mp3"
)

// AudioInfo holds stream properties summed over the MPEG audio frames.
type AudioInfo struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
	Bitrate    int // kbps, averaged over all frames
	Codec      string
}

// readAudioInfo skips the ID3v2 tag and walks every MPEG frame header.
// Sample rate, channels and codec come from the first frame.
func readAudioInfo(path string) (AudioInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return AudioInfo{}, errors.WithStack(err)
	}
	defer f.Close()

	start, err := tagSize(f)
	if err != nil {
		return AudioInfo{}, err
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return AudioInfo{}, errors.WithStack(err)
	}

	var (
		info    AudioInfo
		frame   mp3.Frame
		frames  int
		bitrate int64
	)
	skipped := 0
	dec := mp3.NewDecoder(bufio.NewReader(f))
	for {
		err := dec.Decode(&frame, &skipped)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return AudioInfo{}, errors.Wrap(ErrNotMP3, err.Error())
		}

		if frames == 0 {
			h := frame.Header()
			info.SampleRate = int(h.SampleRate())
			info.Channels = 2
			if h.ChannelMode() == mp3.SingleChannel {
				info.Channels = 1
			}
			info.Codec = codecName(h.Layer())
		}
		frames++
		bitrate += int64(frame.Header().BitRate())
		info.Duration += frame.Duration()
	}

	if frames == 0 {
		return AudioInfo{}, errors.Wrap(ErrNotMP3, "no MPEG frame sync found")
	}
	// Frames share one sample count, so the mean header bitrate is the
	// time-weighted average
	info.Bitrate = int(bitrate / int64(frames) / 1000)

	return info, nil
}

// tagSize returns the size of a leading ID3v2 tag, or 0 when there is none.
func tagSize(r io.Reader) (int64, error) {
	header := make([]byte, 10)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, errors.Wrap(ErrNotMP3, "file too short")
		}
		return 0, errors.WithStack(err)
	}
	if string(header[0:3]) != "ID3" {
		return 0, nil
	}

	size := int64(header[6]&0x7F)<<21 |
		int64(header[7]&0x7F)<<14 |
		int64(header[8]&0x7F)<<7 |
		int64(header[9]&0x7F)
	size += 10
	if header[5]&0x10 != 0 {
		// Footer present
		size += 10
	}
	return size, nil
}

func codecName(layer mp3.FrameLayer) string {
	switch layer {
	case mp3.Layer1:
		return "MP1"
	case mp3.Layer2:
		return "MP2"
	default:
		return "MP3"
	}
}
