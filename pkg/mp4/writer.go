package mp4

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"

	gomp4 "github.com/abema/go-mp4"
	"github.com/pkg/errors"
	"github.com/shishobooks/mediatag/pkg/fileutils"
)

// WriteOptions configures the write operation.
type WriteOptions struct {
	// BackupSuffix, when set, copies the original file to path+BackupSuffix
	// before it is modified.
	BackupSuffix string
}

// Write replaces the ilst of the MP4 file at path with the items in tag.
// Missing udta, meta and ilst boxes are created. Chunk offsets are shifted
// when the moov box sits in front of the media data.
func Write(path string, tag *Tag, opts WriteOptions) error {
	ilst, err := tag.buildIlst()
	if err != nil {
		return err
	}

	input, err := os.ReadFile(path)
	if err != nil {
		return errors.WithStack(err)
	}

	output, err := rewriteMetadata(input, func(moov []byte) ([]byte, bool) {
		return setIlst(moov, ilst), true
	})
	if err != nil {
		return err
	}

	return commit(path, output, opts)
}

// Strip removes the iTunes metadata box from the MP4 file at path. It reports
// whether anything was removed; the file is left untouched when there was no
// metadata to strip.
func Strip(path string, opts WriteOptions) (bool, error) {
	input, err := os.ReadFile(path)
	if err != nil {
		return false, errors.WithStack(err)
	}

	removed := false
	output, err := rewriteMetadata(input, func(moov []byte) ([]byte, bool) {
		var content []byte
		content, removed = removeMeta(moov)
		return content, removed
	})
	if err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}

	if err := commit(path, output, opts); err != nil {
		return false, err
	}
	return true, nil
}

// commit writes output over path, optionally backing up the original first.
func commit(path string, output []byte, opts WriteOptions) error {
	if err := fileutils.CreateBackup(path, opts.BackupSuffix); err != nil {
		return errors.WithStack(err)
	}
	if err := fileutils.WriteFileAtomic(path, output); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// rewriteMetadata copies every top-level box of input and passes the moov
// content through edit. When edit reports a change, the moov box is rebuilt
// and chunk offsets pointing past it are adjusted.
func rewriteMetadata(input []byte, edit func(moov []byte) ([]byte, bool)) ([]byte, error) {
	r := bytes.NewReader(input)
	if err := checkSignature(r); err != nil {
		return nil, err
	}

	var output bytes.Buffer
	output.Grow(len(input))
	moovWritten := false

	_, err := gomp4.ReadBoxStructure(r, func(h *gomp4.ReadHandle) (interface{}, error) {
		start := h.BoxInfo.Offset
		end := start + h.BoxInfo.Size
		if end > uint64(len(input)) {
			return nil, errors.Wrapf(ErrInvalidBox, "box %s extends past end of file", h.BoxInfo.Type)
		}

		if h.BoxInfo.Type != BoxTypeMoov || moovWritten {
			output.Write(input[start:end])
			return nil, nil
		}
		moovWritten = true

		content, changed := edit(input[start+h.BoxInfo.HeaderSize : end])
		if !changed {
			output.Write(input[start:end])
			return nil, nil
		}

		moov := buildBox("moov", content)
		// #nosec G115 -- box sizes come from a file held in memory
		delta := int64(len(moov)) - int64(h.BoxInfo.Size)
		if delta != 0 {
			if err := patchChunkOffsets(moov[8:], end, delta); err != nil {
				return nil, err
			}
		}
		output.Write(moov)
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, ErrOffsetOverflow) || errors.Is(err, ErrInvalidBox) {
			return nil, err
		}
		return nil, errors.Wrap(ErrNotMP4, err.Error())
	}

	if !moovWritten {
		return nil, errors.Wrap(ErrNotMP4, "moov box not found")
	}

	return output.Bytes(), nil
}

// setIlst returns moov content with moov/udta/meta/ilst replaced by ilst,
// creating the intermediate boxes as needed.
func setIlst(moov, ilst []byte) []byte {
	boxes, ok := splitBoxes(moov)
	if !ok {
		return append(append([]byte{}, moov...), buildBox("udta", buildMeta(ilst))...)
	}

	var out bytes.Buffer
	found := false
	for _, b := range boxes {
		if b.typ == "udta" && !found {
			out.Write(buildBox("udta", setMeta(b.content(moov), ilst)))
			found = true
			continue
		}
		out.Write(b.bytes(moov))
	}
	if !found {
		out.Write(buildBox("udta", buildMeta(ilst)))
	}
	return out.Bytes()
}

// setMeta returns udta content with its meta box holding ilst.
func setMeta(udta, ilst []byte) []byte {
	boxes, ok := splitBoxes(udta)
	if !ok {
		return buildMeta(ilst)
	}

	var out bytes.Buffer
	found := false
	for _, b := range boxes {
		if b.typ == "meta" && !found {
			out.Write(rebuildMeta(b.content(udta), ilst))
			found = true
			continue
		}
		out.Write(b.bytes(udta))
	}
	if !found {
		out.Write(buildMeta(ilst))
	}
	return out.Bytes()
}

// rebuildMeta replaces or appends the ilst inside an existing meta box. Meta
// is a full box in ISO files but QuickTime writes it without version/flags;
// that is detected by a hdlr box starting right after the header.
func rebuildMeta(meta, ilst []byte) []byte {
	var prefix, content []byte
	if len(meta) >= 8 && string(meta[4:8]) == "hdlr" {
		content = meta
	} else if len(meta) >= 4 {
		prefix, content = meta[:4], meta[4:]
	} else {
		return buildMeta(ilst)
	}

	boxes, ok := splitBoxes(content)
	if !ok {
		return buildMeta(ilst)
	}

	var out bytes.Buffer
	out.Write(prefix)
	hasHdlr := false
	found := false
	for _, b := range boxes {
		switch {
		case b.typ == "hdlr":
			hasHdlr = true
			out.Write(b.bytes(content))
		case b.typ == "ilst" && !found:
			out.Write(ilst)
			found = true
		default:
			out.Write(b.bytes(content))
		}
	}
	if !found {
		out.Write(ilst)
	}
	if !hasHdlr {
		// Readers reject a meta box without a handler
		return buildMeta(ilst)
	}

	return buildBox("meta", out.Bytes())
}

// buildMeta builds a new iTunes meta box: [version/flags][hdlr mdir][ilst].
func buildMeta(ilst []byte) []byte {
	hdlr := make([]byte, 21)
	copy(hdlr[4:8], "mdir")
	copy(hdlr[8:12], "appl")

	var content bytes.Buffer
	content.Write(buildFullBox("hdlr", hdlr))
	content.Write(ilst)
	return buildFullBox("meta", content.Bytes())
}

// removeMeta returns moov content without moov/udta/meta. An udta left empty
// is dropped as well.
func removeMeta(moov []byte) ([]byte, bool) {
	boxes, ok := splitBoxes(moov)
	if !ok {
		return moov, false
	}

	var out bytes.Buffer
	removed := false
	for _, b := range boxes {
		if b.typ != "udta" {
			out.Write(b.bytes(moov))
			continue
		}

		udta := b.content(moov)
		children, ok := splitBoxes(udta)
		if !ok {
			out.Write(b.bytes(moov))
			continue
		}

		var kept bytes.Buffer
		for _, c := range children {
			if c.typ == "meta" {
				removed = true
				continue
			}
			kept.Write(c.bytes(udta))
		}
		if kept.Len() > 0 {
			out.Write(buildBox("udta", kept.Bytes()))
		}
	}

	if !removed {
		return moov, false
	}
	return out.Bytes(), true
}

// patchChunkOffsets adds delta to every stco/co64 entry that points at or
// past oldMoovEnd. The moov content is modified in place.
func patchChunkOffsets(moov []byte, oldMoovEnd uint64, delta int64) error {
	return walkBoxes(moov, []string{"trak", "mdia", "minf", "stbl"}, func(typ string, content []byte) error {
		switch typ {
		case "stco":
			return patchStco(content, oldMoovEnd, delta)
		case "co64":
			return patchCo64(content, oldMoovEnd, delta)
		}
		return nil
	})
}

// walkBoxes descends through the containers in path and calls fn for every
// box found at the end of it.
func walkBoxes(data []byte, path []string, fn func(typ string, content []byte) error) error {
	boxes, ok := splitBoxes(data)
	if !ok {
		return errors.WithStack(ErrInvalidBox)
	}
	for _, b := range boxes {
		content := b.content(data)
		if len(path) == 0 {
			if err := fn(b.typ, content); err != nil {
				return err
			}
			continue
		}
		if b.typ == path[0] {
			if err := walkBoxes(content, path[1:], fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// patchStco shifts 32-bit chunk offsets.
// Layout: [version/flags 4][entry count 4][offset 4]...
func patchStco(content []byte, oldMoovEnd uint64, delta int64) error {
	if len(content) < 8 {
		return errors.Wrap(ErrInvalidBox, "stco too short")
	}
	count := int(binary.BigEndian.Uint32(content[4:8]))
	if len(content) < 8+count*4 {
		return errors.Wrap(ErrInvalidBox, "stco entry count exceeds box size")
	}
	for i := 0; i < count; i++ {
		pos := 8 + i*4
		offset := uint64(binary.BigEndian.Uint32(content[pos:]))
		if offset < oldMoovEnd {
			continue
		}
		// #nosec G115 -- offsets are bounded by the file size
		shifted := int64(offset) + delta
		if shifted < 0 || shifted > math.MaxUint32 {
			return errors.WithStack(ErrOffsetOverflow)
		}
		binary.BigEndian.PutUint32(content[pos:], uint32(shifted))
	}
	return nil
}

// patchCo64 shifts 64-bit chunk offsets.
func patchCo64(content []byte, oldMoovEnd uint64, delta int64) error {
	if len(content) < 8 {
		return errors.Wrap(ErrInvalidBox, "co64 too short")
	}
	count := int(binary.BigEndian.Uint32(content[4:8]))
	if len(content) < 8+count*8 {
		return errors.Wrap(ErrInvalidBox, "co64 entry count exceeds box size")
	}
	for i := 0; i < count; i++ {
		pos := 8 + i*8
		offset := binary.BigEndian.Uint64(content[pos:])
		if offset < oldMoovEnd {
			continue
		}
		// #nosec G115 -- offsets are bounded by the file size
		binary.BigEndian.PutUint64(content[pos:], uint64(int64(offset)+delta))
	}
	return nil
}

// boxSpan locates a box inside a byte slice.
type boxSpan struct {
	typ    string
	offset int
	header int
	size   int
}

func (b boxSpan) bytes(data []byte) []byte {
	return data[b.offset : b.offset+b.size]
}

func (b boxSpan) content(data []byte) []byte {
	return data[b.offset+b.header : b.offset+b.size]
}

// splitBoxes splits data into consecutive boxes. It returns false when the
// data is not a well-formed box sequence.
func splitBoxes(data []byte) ([]boxSpan, bool) {
	var boxes []boxSpan
	offset := 0
	for offset < len(data) {
		if len(data)-offset < 8 {
			return nil, false
		}
		header := 8
		size := int(binary.BigEndian.Uint32(data[offset:]))
		switch size {
		case 0:
			// Box extends to the end of the data
			size = len(data) - offset
		case 1:
			if len(data)-offset < 16 {
				return nil, false
			}
			large := binary.BigEndian.Uint64(data[offset+8:])
			if large > uint64(len(data)-offset) {
				return nil, false
			}
			header = 16
			size = int(large)
		}
		if size < header || offset+size > len(data) {
			return nil, false
		}
		boxes = append(boxes, boxSpan{
			typ:    string(data[offset+4 : offset+8]),
			offset: offset,
			header: header,
			size:   size,
		})
		offset += size
	}
	return boxes, true
}
