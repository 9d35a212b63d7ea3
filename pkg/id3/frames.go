package id3

// ID3v2.4 separates multiple values of a text frame with NUL.
const valueSeparator = "\x00"

const (
	frameUserText = "TXXX"
	frameComment  = "COMM"
	frameLyrics   = "USLT"
	framePicture  = "APIC"
)

// propertyFrames maps property names to text frames, following TagLib's
// ID3v2 property map.
var propertyFrames = map[string]string{
	"TITLE":           "TIT2",
	"SUBTITLE":        "TIT3",
	"WORK":            "TIT1",
	"ARTIST":          "TPE1",
	"ALBUMARTIST":     "TPE2",
	"CONDUCTOR":       "TPE3",
	"REMIXER":         "TPE4",
	"ALBUM":           "TALB",
	"COMPOSER":        "TCOM",
	"LYRICIST":        "TEXT",
	"GENRE":           "TCON",
	"DATE":            "TDRC",
	"ORIGINALDATE":    "TDOR",
	"TRACKNUMBER":     "TRCK",
	"DISCNUMBER":      "TPOS",
	"BPM":             "TBPM",
	"INITIALKEY":      "TKEY",
	"LANGUAGE":        "TLAN",
	"MOOD":            "TMOO",
	"MEDIA":           "TMED",
	"LABEL":           "TPUB",
	"ISRC":            "TSRC",
	"COPYRIGHT":       "TCOP",
	"ENCODEDBY":       "TENC",
	"ENCODING":        "TSSE",
	"COMPILATION":     "TCMP",
	"TITLESORT":       "TSOT",
	"ARTISTSORT":      "TSOP",
	"ALBUMSORT":       "TSOA",
	"ALBUMARTISTSORT": "TSO2",
	"COMPOSERSORT":    "TSOC",
}

var frameProperties = func() map[string]string {
	m := make(map[string]string, len(propertyFrames))
	for name, id := range propertyFrames {
		m[id] = name
	}
	return m
}()
