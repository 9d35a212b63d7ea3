package mp4

import (
	"bytes"
	"io"
	"os"
	"time"

	gomp4 "github.com/abema/go-mp4"
	"github.com/pkg/errors"
)

// topLevelTypes are the box types accepted as the first box of an MP4 file.
var topLevelTypes = map[string]bool{
	"ftyp": true,
	"moov": true,
	"mdat": true,
	"free": true,
	"skip": true,
	"wide": true,
}

// Read reads the ilst items and audio properties of the MP4 file at path.
func Read(path string) (*Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	return ReadFrom(f)
}

// ReadFrom reads the ilst items and audio properties from an io.ReadSeeker.
func ReadFrom(r io.ReadSeeker) (*Tag, error) {
	if err := checkSignature(r); err != nil {
		return nil, err
	}

	tag := NewTag()
	foundMoov := false

	_, err := gomp4.ReadBoxStructure(r, func(h *gomp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case BoxTypeMoov:
			foundMoov = true
			return h.Expand()

		case BoxTypeMvhd:
			return processMvhd(h, &tag.Audio)

		case BoxTypeTrak, BoxTypeMdia, BoxTypeMinf, BoxTypeStbl, BoxTypeStsd:
			return h.Expand()

		case BoxTypeMp4a, BoxTypeAlac, BoxTypeEc3, BoxTypeAc3:
			if !isSampleEntry(h.Path) {
				return nil, nil
			}
			return processAudioSampleEntry(h, &tag.Audio)

		case BoxTypeEsds, BoxTypeBtrt:
			return processBitrateBox(h, &tag.Audio)

		case BoxTypeUdta, BoxTypeMeta, BoxTypeIlst:
			if isUnderMoovUdta(h.Path) {
				return h.Expand()
			}
			return nil, nil

		default:
			if isIlstItem(h.Path) {
				return processIlstItem(h, tag)
			}
			return nil, nil
		}
	})
	if err != nil {
		return nil, errors.Wrap(ErrNotMP4, err.Error())
	}

	if !foundMoov {
		return nil, errors.Wrap(ErrNotMP4, "moov box not found")
	}

	return tag, nil
}

// checkSignature verifies that the stream starts with a known top-level box
// and rewinds it.
func checkSignature(r io.ReadSeeker) error {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return errors.Wrap(ErrNotMP4, "file too short")
	}
	if !topLevelTypes[string(header[4:8])] {
		return errors.WithStack(ErrNotMP4)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// isUnderMoovUdta reports whether path is moov/udta, moov/udta/meta or
// moov/udta/meta/ilst.
func isUnderMoovUdta(path gomp4.BoxPath) bool {
	want := []gomp4.BoxType{BoxTypeMoov, BoxTypeUdta, BoxTypeMeta, BoxTypeIlst}
	if len(path) < 2 || len(path) > len(want) {
		return false
	}
	for i, t := range path {
		if t != want[i] {
			return false
		}
	}
	return true
}

// isSampleEntry reports whether path ends in a direct child of stsd.
func isSampleEntry(path gomp4.BoxPath) bool {
	return len(path) >= 2 && path[len(path)-2] == BoxTypeStsd
}

// isIlstItem reports whether path is a direct child of moov/udta/meta/ilst.
func isIlstItem(path gomp4.BoxPath) bool {
	return len(path) == 5 && isUnderMoovUdta(path[:4])
}

// processMvhd reads the movie header box to extract duration info.
func processMvhd(h *gomp4.ReadHandle, info *AudioInfo) (interface{}, error) {
	payload, _, err := h.ReadPayload()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	mvhd, ok := payload.(*gomp4.Mvhd)
	if !ok || mvhd.Timescale == 0 {
		return nil, nil
	}

	var duration uint64
	if mvhd.Version == 0 {
		duration = uint64(mvhd.DurationV0)
	} else {
		duration = mvhd.DurationV1
	}

	durationSec := float64(duration) / float64(mvhd.Timescale)
	info.Duration = time.Duration(durationSec * float64(time.Second))

	return nil, nil
}

// processAudioSampleEntry reads channel count and sample rate from the
// first audio sample entry, then descends into its esds and btrt children.
// Sample description boxes that do not decode leave the audio properties
// unset without failing the read.
func processAudioSampleEntry(h *gomp4.ReadHandle, info *AudioInfo) (interface{}, error) {
	payload, _, err := h.ReadPayload()
	if err != nil {
		return nil, nil //nolint:nilerr // tags stay readable
	}

	entry, ok := payload.(*gomp4.AudioSampleEntry)
	if !ok || info.SampleRate != 0 {
		return nil, nil
	}
	info.Channels = int(entry.ChannelCount)
	info.SampleRate = int(entry.SampleRate >> 16)
	if codec, known := sampleEntryCodecs[h.BoxInfo.Type]; known {
		info.Codec = codec
	}

	return h.Expand()
}

// processBitrateBox applies an esds or btrt child of the sample entry.
func processBitrateBox(h *gomp4.ReadHandle, info *AudioInfo) (interface{}, error) {
	payload, _, err := h.ReadPayload()
	if err != nil {
		return nil, nil //nolint:nilerr // tags stay readable
	}

	switch box := payload.(type) {
	case *gomp4.Esds:
		info.applyEsds(box)
	case *gomp4.Btrt:
		info.applyBtrt(box)
	}

	return nil, nil
}

// processIlstItem reads one child of ilst into the tag.
func processIlstItem(h *gomp4.ReadHandle, tag *Tag) (interface{}, error) {
	var buf bytes.Buffer
	if _, err := h.ReadData(&buf); err != nil {
		return nil, errors.WithStack(err)
	}

	var atomType [4]byte
	copy(atomType[:], h.BoxInfo.Type[:])
	tag.items = append(tag.items, parseItem(atomType, buf.Bytes()))

	return nil, nil
}

// parseItem decodes an item atom payload. Regular atoms hold one or more
// data boxes; freeform atoms hold [mean][name][data...]. Anything else is
// kept as a raw atom.
func parseItem(atomType [4]byte, payload []byte) *Item {
	raw := func() *Item {
		return &Item{Key: KeyFromAtom(atomType), raw: buildBoxWithType(atomType, payload)}
	}

	boxes, ok := splitBoxes(payload)
	if !ok {
		return raw()
	}

	var mean, name string
	var data []DataValue
	for _, b := range boxes {
		content := payload[b.offset+b.header : b.offset+b.size]
		switch b.typ {
		case "mean":
			if len(content) >= 4 {
				mean = string(content[4:])
			}
		case "name":
			if len(content) >= 4 {
				name = string(content[4:])
			}
		case "data":
			if dataType, value, ok := parseDataValue(content); ok {
				data = append(data, DataValue{Type: dataType, Value: value})
			}
		}
	}

	if atomType == AtomFreeform {
		if mean == "" || name == "" {
			return raw()
		}
		return &Item{Key: FreeformKey(mean, name), Data: data}
	}

	if len(data) == 0 {
		return raw()
	}

	return &Item{Key: KeyFromAtom(atomType), Data: data}
}
