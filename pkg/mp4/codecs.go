package mp4

import (
	gomp4 "github.com/abema/go-mp4"
)

// go-mp4 only knows mp4a and ac-3 as audio sample entries. alac and ec-3
// share the same header layout.
func init() {
	gomp4.AddAnyTypeBoxDef(&gomp4.AudioSampleEntry{}, BoxTypeAlac)
	gomp4.AddAnyTypeBoxDef(&gomp4.AudioSampleEntry{}, BoxTypeEc3)
}

// sampleEntryCodecs names the codecs whose sample entry type alone
// identifies them. mp4a is resolved through its esds.
var sampleEntryCodecs = map[gomp4.BoxType]string{
	BoxTypeAlac: "ALAC",
	BoxTypeEc3:  "EAC3",
	BoxTypeAc3:  "AC3",
}

// objectTypeCodecs maps ISO 14496-1 objectTypeIndication values other than
// MPEG-4 Audio.
var objectTypeCodecs = map[byte]string{
	0x66: "MPEG-2 AAC Main",
	0x67: "MPEG-2 AAC-LC",
	0x68: "MPEG-2 AAC SSR",
	0x69: "MP3",
	0x6B: "MP3",
	0xA5: "AC3",
	0xA6: "EAC3",
	0xAD: "Opus",
}

// audioObjectTypeCodecs maps ISO 14496-3 audio object types.
var audioObjectTypeCodecs = map[int]string{
	1:  "AAC Main",
	2:  "AAC-LC",
	3:  "AAC SSR",
	4:  "AAC LTP",
	5:  "HE-AAC",
	6:  "AAC Scalable",
	29: "HE-AACv2",
	42: "xHE-AAC",
}

const objectTypeMPEG4Audio = 0x40

// applyEsds fills the codec and bitrate from the esds descriptors. The
// DecoderConfigDescriptor carries the object type and average bitrate; for
// MPEG-4 Audio the DecoderSpecificInfo that follows it holds the
// AudioSpecificConfig naming the profile.
func (info *AudioInfo) applyEsds(esds *gomp4.Esds) {
	var (
		config *gomp4.DecoderConfigDescriptor
		asc    []byte
	)
	for i := range esds.Descriptors {
		d := &esds.Descriptors[i]
		switch d.Tag {
		case gomp4.DecoderConfigDescrTag:
			config = d.DecoderConfigDescriptor
		case gomp4.DecSpecificInfoTag:
			if config != nil && asc == nil {
				asc = d.Data
			}
		}
	}
	if config == nil {
		return
	}

	if config.AvgBitrate > 0 {
		info.Bitrate = int(config.AvgBitrate / 1000)
	}

	switch oti := config.ObjectTypeIndication; {
	case oti == objectTypeMPEG4Audio:
		info.Codec = "AAC"
		if aot, ok := audioObjectType(asc); ok {
			if name, known := audioObjectTypeCodecs[aot]; known {
				info.Codec = name
			}
		}
	case objectTypeCodecs[oti] != "":
		info.Codec = objectTypeCodecs[oti]
	case oti != 0:
		info.Codec = "Unknown"
	}
}

// applyBtrt uses the btrt average bitrate when the esds gave none.
func (info *AudioInfo) applyBtrt(btrt *gomp4.Btrt) {
	if info.Bitrate == 0 && btrt.AvgBitrate > 0 {
		info.Bitrate = int(btrt.AvgBitrate / 1000)
	}
}

// audioObjectType reads the leading audioObjectType of an
// AudioSpecificConfig: five bits, with 31 escaping to 32 plus the next six.
func audioObjectType(asc []byte) (int, bool) {
	if len(asc) == 0 {
		return 0, false
	}
	aot := int(asc[0] >> 3)
	if aot != 31 {
		return aot, true
	}
	if len(asc) < 2 {
		return 0, false
	}
	return 32 + (int(asc[0]&0x07)<<3 | int(asc[1]>>5)), true
}
