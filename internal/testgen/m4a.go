package testgen

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// M4AChunk is the media payload stored in the mdat box of generated M4A
// files. The single stco/co64 entry points at its first byte.
var M4AChunk = []byte("mediatag synthetic audio chunk")

// GenerateM4A creates a minimal M4A file with an audio sample entry chosen
// by opts.Codec and an iTunes ilst built from opts. The file does not contain playable audio but has the
// box structure readers and writers care about.
//
// Layout: ftyp, moov(mvhd, trak(tkhd, mdia(mdhd, hdlr, minf(smhd, dinf,
// stbl(stsd(mp4a(esds[, btrt])), stts, stsc, stsz, stco)))), udta(meta(hdlr, ilst))),
// mdat. MoovAfterMdat moves moov to the end.
func GenerateM4A(t *testing.T, dir, filename string, opts M4AOptions) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	ftyp := buildBox("ftyp", []byte("M4A \x00\x00\x02\x00M4A mp42isom"))
	mdatHeader := 8

	// The chunk offset depends on where mdat lands, so moov is built twice
	// when it precedes mdat: once to learn its size, once with the offset.
	var chunkOffset uint64
	if opts.MoovAfterMdat {
		chunkOffset = uint64(len(ftyp) + mdatHeader)
	} else {
		sized := buildMoov(t, opts, 0)
		chunkOffset = uint64(len(ftyp) + len(sized) + mdatHeader)
	}
	moov := buildMoov(t, opts, chunkOffset)
	mdat := buildBox("mdat", M4AChunk)

	var data []byte
	data = append(data, ftyp...)
	if opts.MoovAfterMdat {
		data = append(data, mdat...)
		data = append(data, moov...)
	} else {
		data = append(data, moov...)
		data = append(data, mdat...)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("failed to write M4A file: %v", err)
	}

	return path
}

// buildMoov creates the moov box for opts.
func buildMoov(t *testing.T, opts M4AOptions, chunkOffset uint64) []byte {
	var content []byte
	content = append(content, buildFullBox("mvhd", 0, 0, buildMvhdContent(opts.durationMillis()))...)
	content = append(content, buildBox("trak", buildTrakContent(opts, chunkOffset))...)
	if udta := buildUdta(t, opts); udta != nil {
		content = append(content, udta...)
	}
	return buildBox("moov", content)
}

// buildMvhdContent creates movie header content (version 0) with a 1000 Hz
// timescale.
func buildMvhdContent(durationMillis uint32) []byte {
	content := make([]byte, 96)
	binary.BigEndian.PutUint32(content[8:12], 1000)
	binary.BigEndian.PutUint32(content[12:16], durationMillis)
	binary.BigEndian.PutUint32(content[16:20], 0x00010000)
	binary.BigEndian.PutUint16(content[20:22], 0x0100)
	// identity matrix
	binary.BigEndian.PutUint32(content[32:36], 0x00010000)
	binary.BigEndian.PutUint32(content[48:52], 0x00010000)
	binary.BigEndian.PutUint32(content[64:68], 0x40000000)
	binary.BigEndian.PutUint32(content[92:96], 2) // next_track_ID
	return content
}

func buildTrakContent(opts M4AOptions, chunkOffset uint64) []byte {
	tkhd := make([]byte, 80)
	binary.BigEndian.PutUint32(tkhd[8:12], 1) // track_ID
	binary.BigEndian.PutUint16(tkhd[32:34], 0x0100)

	mdhd := make([]byte, 20)
	binary.BigEndian.PutUint32(mdhd[8:12], 44100)
	binary.BigEndian.PutUint16(mdhd[16:18], 0x55C4) // "und"

	var minf []byte
	minf = append(minf, buildFullBox("smhd", 0, 0, make([]byte, 4))...)
	drefContent := make([]byte, 4)
	binary.BigEndian.PutUint32(drefContent, 1)
	drefContent = append(drefContent, buildFullBox("url ", 0, 1, nil)...)
	minf = append(minf, buildBox("dinf", buildFullBox("dref", 0, 0, drefContent))...)
	minf = append(minf, buildBox("stbl", buildStblContent(opts, chunkOffset))...)

	var mdia []byte
	mdia = append(mdia, buildFullBox("mdhd", 0, 0, mdhd)...)
	mdia = append(mdia, buildFullBox("hdlr", 0, 0, buildHdlrContent("soun", "SoundHandler"))...)
	mdia = append(mdia, buildBox("minf", minf)...)

	var content []byte
	content = append(content, buildFullBox("tkhd", 0, 3, tkhd)...)
	content = append(content, buildBox("mdia", mdia)...)
	return content
}

func buildStblContent(opts M4AOptions, chunkOffset uint64) []byte {
	stsd := make([]byte, 4)
	binary.BigEndian.PutUint32(stsd, 1)
	stsd = append(stsd, buildSampleEntry(opts)...)

	stsc := make([]byte, 16)
	binary.BigEndian.PutUint32(stsc[0:4], 1)
	binary.BigEndian.PutUint32(stsc[4:8], 1)   // first_chunk
	binary.BigEndian.PutUint32(stsc[8:12], 1)  // samples_per_chunk
	binary.BigEndian.PutUint32(stsc[12:16], 1) // sample_description_index

	stsz := make([]byte, 12)
	binary.BigEndian.PutUint32(stsz[4:8], 1)
	binary.BigEndian.PutUint32(stsz[8:12], uint32(len(M4AChunk))) //nolint:gosec // constant size

	var content []byte
	content = append(content, buildFullBox("stsd", 0, 0, stsd)...)
	content = append(content, buildFullBox("stts", 0, 0, make([]byte, 4))...)
	content = append(content, buildFullBox("stsc", 0, 0, stsc)...)
	content = append(content, buildFullBox("stsz", 0, 0, stsz)...)

	if opts.Co64 {
		co64 := make([]byte, 12)
		binary.BigEndian.PutUint32(co64[0:4], 1)
		binary.BigEndian.PutUint64(co64[4:12], chunkOffset)
		content = append(content, buildFullBox("co64", 0, 0, co64)...)
	} else {
		stco := make([]byte, 8)
		binary.BigEndian.PutUint32(stco[0:4], 1)
		binary.BigEndian.PutUint32(stco[4:8], uint32(chunkOffset)) //nolint:gosec // test files are small
		content = append(content, buildFullBox("stco", 0, 0, stco)...)
	}

	return content
}

// buildSampleEntry creates the single stsd entry for opts.Codec. AAC and
// MP3 entries are mp4a with an esds advertising 128 kbps.
func buildSampleEntry(opts M4AOptions) []byte {
	boxType, channels, sampleRate := "mp4a", uint16(2), uint32(44100)
	var children []byte

	avgBitrate := uint32(128000)
	if opts.BtrtBitrate > 0 {
		avgBitrate = 0
	}

	switch opts.Codec {
	case "", "aac-lc":
		children = buildEsds(0x40, avgBitrate, []byte{0x12, 0x10})
	case "he-aac":
		children = buildEsds(0x40, avgBitrate, []byte{0x2B, 0x92, 0x08, 0x00})
	case "xhe-aac":
		// audioObjectType 31 escapes to 32 + 10
		children = buildEsds(0x40, avgBitrate, []byte{0xF9, 0x40, 0x00})
	case "mpeg2-aac-lc":
		children = buildEsds(0x67, avgBitrate, nil)
	case "mp3":
		children = buildEsds(0x6B, avgBitrate, nil)
	case "alac":
		boxType = "alac"
		config := make([]byte, 24)
		binary.BigEndian.PutUint32(config[0:4], 4096) // frameLength
		config[5] = 16                                // bitDepth
		config[9] = 2                                 // numChannels
		binary.BigEndian.PutUint32(config[20:24], sampleRate)
		children = buildFullBox("alac", 0, 0, config)
	case "eac3":
		boxType, channels, sampleRate = "ec-3", 6, 48000
		children = buildBox("dec3", make([]byte, 3))
	default:
		panic("testgen: unknown M4A codec " + opts.Codec)
	}

	if opts.BtrtBitrate > 0 {
		btrt := make([]byte, 12)
		binary.BigEndian.PutUint32(btrt[0:4], 4096)
		binary.BigEndian.PutUint32(btrt[4:8], opts.BtrtBitrate)
		binary.BigEndian.PutUint32(btrt[8:12], opts.BtrtBitrate)
		children = append(children, buildBox("btrt", btrt)...)
	}

	entry := make([]byte, 28)
	binary.BigEndian.PutUint16(entry[6:8], 1)
	binary.BigEndian.PutUint16(entry[16:18], channels)
	binary.BigEndian.PutUint16(entry[18:20], 16)
	binary.BigEndian.PutUint32(entry[24:28], sampleRate<<16)

	return buildBox(boxType, append(entry, children...))
}

// buildEsds creates an esds box: ES_Descriptor, DecoderConfigDescriptor
// with an optional DecoderSpecificInfo, then SLConfigDescriptor.
func buildEsds(objectType byte, avgBitrate uint32, asc []byte) []byte {
	config := []byte{objectType, 0x15, 0x00, 0x00, 0x00}
	config = binary.BigEndian.AppendUint32(config, 128000)
	config = binary.BigEndian.AppendUint32(config, avgBitrate)
	if len(asc) > 0 {
		config = append(config, descriptor(0x05, asc)...)
	}

	es := []byte{0x00, 0x01, 0x00} // ES_ID, flags
	es = append(es, descriptor(0x04, config)...)
	es = append(es, descriptor(0x06, []byte{0x02})...)

	return buildFullBox("esds", 0, 0, descriptor(0x03, es))
}

// descriptor creates an MPEG-4 descriptor with a single-byte size.
func descriptor(tag byte, content []byte) []byte {
	return append([]byte{tag, byte(len(content))}, content...)
}

func buildHdlrContent(handlerType, name string) []byte {
	content := make([]byte, 20+len(name)+1)
	copy(content[4:8], handlerType)
	copy(content[20:], name)
	return content
}

// buildUdta creates moov/udta/meta/ilst for opts, or nil when NoMetadata is set.
func buildUdta(t *testing.T, opts M4AOptions) []byte {
	if opts.NoMetadata {
		return nil
	}

	var ilst []byte
	text := func(atom, value string) {
		if value != "" {
			ilst = append(ilst, buildBox(atom, buildDataBox(1, []byte(value)))...)
		}
	}
	text("\xa9nam", opts.Title)
	text("\xa9ART", opts.Artist)
	text("\xa9alb", opts.Album)
	if opts.Genre != "" {
		genreType := uint32(1)
		if opts.GenreType18 {
			genreType = 18
		}
		ilst = append(ilst, buildBox("\xa9gen", buildDataBox(genreType, []byte(opts.Genre)))...)
	}
	if opts.TrackNumber > 0 {
		trkn := make([]byte, 8)
		binary.BigEndian.PutUint16(trkn[2:4], opts.TrackNumber)
		binary.BigEndian.PutUint16(trkn[4:6], opts.TrackTotal)
		ilst = append(ilst, buildBox("trkn", buildDataBox(0, trkn))...)
	}

	names := make([]string, 0, len(opts.Freeform))
	for name := range opts.Freeform {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ilst = append(ilst, buildFreeformAtom("com.apple.iTunes", name, opts.Freeform[name])...)
	}

	if opts.HasCover {
		mimeType := opts.CoverMimeType
		if mimeType == "" {
			mimeType = "image/png"
		}
		dataType := uint32(14)
		if mimeType == "image/jpeg" {
			dataType = 13
		}
		ilst = append(ilst, buildBox("covr", buildDataBox(dataType, GenerateImage(t, mimeType)))...)
	}

	hdlr := buildFullBox("hdlr", 0, 0, buildHdlrContent("mdir", ""))
	var metaContent []byte
	metaContent = append(metaContent, hdlr...)
	metaContent = append(metaContent, buildBox("ilst", ilst)...)

	var meta []byte
	if opts.QuickTimeMeta {
		meta = buildBox("meta", metaContent)
	} else {
		meta = buildFullBox("meta", 0, 0, metaContent)
	}

	return buildBox("udta", meta)
}

func buildFreeformAtom(mean, name, value string) []byte {
	var content []byte
	content = append(content, buildFullBox("mean", 0, 0, []byte(mean))...)
	content = append(content, buildFullBox("name", 0, 0, []byte(name))...)
	content = append(content, buildDataBox(1, []byte(value))...)
	return buildBox("----", content)
}

// buildBox creates an MP4 box with the given type and content.
func buildBox(boxType string, content []byte) []byte {
	size := 8 + len(content)
	box := make([]byte, size)
	binary.BigEndian.PutUint32(box[0:4], uint32(size)) //nolint:gosec // size is always small for test files
	copy(box[4:8], boxType)
	copy(box[8:], content)
	return box
}

// buildFullBox creates an MP4 full box with version and flags.
func buildFullBox(boxType string, _ uint8, flags uint32, content []byte) []byte {
	fullContent := make([]byte, 4+len(content))
	fullContent[1] = byte((flags >> 16) & 0xff)
	fullContent[2] = byte((flags >> 8) & 0xff)
	fullContent[3] = byte(flags & 0xff)
	copy(fullContent[4:], content)
	return buildBox(boxType, fullContent)
}

// buildDataBox creates a data box: [version(1)][type(3)][locale(4)][data...].
func buildDataBox(dataType uint32, content []byte) []byte {
	dataContent := make([]byte, 8+len(content))
	dataContent[1] = byte((dataType >> 16) & 0xff)
	dataContent[2] = byte((dataType >> 8) & 0xff)
	dataContent[3] = byte(dataType & 0xff)
	copy(dataContent[8:], content)
	return buildBox("data", dataContent)
}
