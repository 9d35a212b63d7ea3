package mp4

import (
	"encoding/binary"
	"strings"

	gomp4 "github.com/abema/go-mp4"
	"github.com/pkg/errors"
)

// MP4 data types used in iTunes metadata atoms.
const (
	DataTypeImplicit = 0  // Binary data whose layout is implied by the atom (trkn, disk)
	DataTypeUTF8     = 1  // UTF-8 text (most common)
	DataTypeUTF16BE  = 2  // UTF-16 big-endian text
	DataTypeJPEG     = 13 // JPEG image data
	DataTypePNG      = 14 // PNG image data
	DataTypeGenre    = 18 // Genre (written as text by some taggers)
	DataTypeInteger  = 21 // Signed big-endian integer (1, 2, 3, 4, or 8 bytes)
	DataTypeBMP      = 27 // BMP image data
)

// FreeformPrefix is the item key prefix used for iTunes freeform (----) atoms
// in the com.apple.iTunes namespace.
const FreeformPrefix = "----:com.apple.iTunes:"

// iTunes atom type names (4-byte codes).
// Note: © symbol is encoded as 0xA9 in MacRoman.
var (
	AtomTitle       = [4]byte{0xA9, 'n', 'a', 'm'} // ©nam
	AtomArtist      = [4]byte{0xA9, 'A', 'R', 'T'} // ©ART
	AtomAlbum       = [4]byte{0xA9, 'a', 'l', 'b'} // ©alb
	AtomAlbumArtist = [4]byte{'a', 'A', 'R', 'T'}  // aART
	AtomComposer    = [4]byte{0xA9, 'w', 'r', 't'} // ©wrt
	AtomGenre       = [4]byte{0xA9, 'g', 'e', 'n'} // ©gen
	AtomComment     = [4]byte{0xA9, 'c', 'm', 't'} // ©cmt
	AtomYear        = [4]byte{0xA9, 'd', 'a', 'y'} // ©day
	AtomGrouping    = [4]byte{0xA9, 'g', 'r', 'p'} // ©grp
	AtomEncoder     = [4]byte{0xA9, 't', 'o', 'o'} // ©too
	AtomLyrics      = [4]byte{0xA9, 'l', 'y', 'r'} // ©lyr
	AtomCopyright   = [4]byte{'c', 'p', 'r', 't'}  // cprt
	AtomDescription = [4]byte{'d', 'e', 's', 'c'}  // desc
	AtomTrackNumber = [4]byte{'t', 'r', 'k', 'n'}  // trkn
	AtomDiscNumber  = [4]byte{'d', 'i', 's', 'k'}  // disk
	AtomTempo       = [4]byte{'t', 'm', 'p', 'o'}  // tmpo
	AtomCompilation = [4]byte{'c', 'p', 'i', 'l'}  // cpil
	AtomCover       = [4]byte{'c', 'o', 'v', 'r'}  // covr
	AtomGenreID     = [4]byte{'g', 'n', 'r', 'e'}  // gnre
	AtomFreeform    = [4]byte{'-', '-', '-', '-'}  // ----
)

// Box types for navigation.
var (
	BoxTypeMoov = gomp4.BoxTypeMoov()
	BoxTypeMvhd = gomp4.BoxTypeMvhd()
	BoxTypeTrak = gomp4.BoxTypeTrak()
	BoxTypeMdia = gomp4.BoxTypeMdia()
	BoxTypeMinf = gomp4.BoxTypeMinf()
	BoxTypeStbl = gomp4.BoxTypeStbl()
	BoxTypeStsd = gomp4.BoxTypeStsd()
	BoxTypeMp4a = gomp4.BoxTypeMp4a()
	BoxTypeEsds = gomp4.BoxTypeEsds()
	BoxTypeBtrt = gomp4.BoxTypeBtrt()
	BoxTypeAlac = gomp4.StrToBoxType("alac")
	BoxTypeEc3  = gomp4.StrToBoxType("ec-3")
	BoxTypeAc3  = gomp4.StrToBoxType("ac-3")
	BoxTypeUdta = gomp4.BoxTypeUdta()
	BoxTypeMeta = gomp4.BoxTypeMeta()
	BoxTypeIlst = gomp4.BoxTypeIlst()
)

// KeyFromAtom converts a 4-byte atom type to an item key. Atom names are
// Latin-1, so 0xA9 becomes "©".
func KeyFromAtom(atomType [4]byte) string {
	runes := make([]rune, 4)
	for i, b := range atomType {
		runes[i] = rune(b)
	}
	return string(runes)
}

// AtomFromKey converts an item key back to a 4-byte atom type. It fails for
// keys that are not exactly four Latin-1 characters.
func AtomFromKey(key string) ([4]byte, error) {
	var atomType [4]byte
	i := 0
	for _, r := range key {
		if i >= 4 || r > 0xFF {
			return atomType, errors.Wrapf(ErrInvalidKey, "%q", key)
		}
		atomType[i] = byte(r)
		i++
	}
	if i != 4 {
		return atomType, errors.Wrapf(ErrInvalidKey, "%q", key)
	}
	return atomType, nil
}

// FreeformKey builds the item key for a freeform atom.
func FreeformKey(mean, name string) string {
	return "----:" + mean + ":" + name
}

// splitFreeformKey splits "----:mean:name" into its parts.
func splitFreeformKey(key string) (mean, name string, ok bool) {
	const prefix = "----:"
	if !strings.HasPrefix(key, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(key, prefix)
	idx := strings.IndexByte(rest, ':')
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

// parseDataValue extracts the value from a data atom based on its type.
// The data format is: [1 byte version][3 bytes type][4 bytes locale][...data...].
func parseDataValue(data []byte) (dataType int, value []byte, ok bool) {
	if len(data) < 8 {
		return 0, nil, false
	}

	dataType = int(data[1])<<16 | int(data[2])<<8 | int(data[3])
	value = data[8:]

	return dataType, value, true
}

// decodeText converts a data value to a string, handling the text data types.
func decodeText(dataType int, value []byte) string {
	if dataType == DataTypeUTF16BE {
		return decodeUTF16BE(value)
	}
	return string(value)
}

// decodeInteger reads a big-endian integer data value.
func decodeInteger(value []byte) (int64, bool) {
	switch len(value) {
	case 1:
		return int64(int8(value[0])), true
	case 2:
		return int64(int16(binary.BigEndian.Uint16(value))), true
	case 4:
		return int64(int32(binary.BigEndian.Uint32(value))), true
	case 8:
		v := binary.BigEndian.Uint64(value)
		if v > 1<<63-1 {
			return 0, false
		}
		return int64(v), true
	default:
		return 0, false
	}
}

// imageDataType returns the covr data type for a MIME type. covr can only
// label JPEG, PNG and BMP data.
func imageDataType(mimeType string) (int, bool) {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return DataTypeJPEG, true
	case "image/png":
		return DataTypePNG, true
	case "image/bmp", "image/x-ms-bmp":
		return DataTypeBMP, true
	default:
		return 0, false
	}
}

// imageMIMEType returns the MIME type for a covr data value.
func imageMIMEType(dataType int, value []byte) string {
	switch dataType {
	case DataTypeJPEG:
		return "image/jpeg"
	case DataTypePNG:
		return "image/png"
	case DataTypeBMP:
		return "image/bmp"
	}
	return detectImageType(value)
}

// detectImageType attempts to determine image type from magic bytes.
func detectImageType(data []byte) string {
	if len(data) < 4 {
		return ""
	}

	// JPEG magic bytes: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}

	// PNG magic bytes: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 'P' && data[2] == 'N' && data[3] == 'G' {
		return "image/png"
	}

	// BMP magic bytes: 42 4D
	if data[0] == 'B' && data[1] == 'M' {
		return "image/bmp"
	}

	return ""
}

// decodeUTF16BE decodes UTF-16 big-endian bytes to a string.
func decodeUTF16BE(data []byte) string {
	if len(data) < 2 {
		return ""
	}

	start := 0
	if data[0] == 0xFE && data[1] == 0xFF {
		start = 2 // Skip BOM
	}

	runes := make([]rune, 0, (len(data)-start)/2)
	for i := start; i+1 < len(data); i += 2 {
		r := rune(binary.BigEndian.Uint16(data[i : i+2]))
		if r == 0 {
			break
		}
		runes = append(runes, r)
	}

	return string(runes)
}

// buildDataBox builds a data box: [version 1 byte][type 3 bytes][locale 4 bytes][value].
func buildDataBox(dataType int, value []byte) []byte {
	content := make([]byte, 8+len(value))
	content[1] = byte((dataType >> 16) & 0xFF)
	content[2] = byte((dataType >> 8) & 0xFF)
	content[3] = byte(dataType & 0xFF)
	copy(content[8:], value)
	return buildBox("data", content)
}

// buildBox builds a box with standard 4-byte type.
func buildBox(boxType string, content []byte) []byte {
	var t [4]byte
	copy(t[:], boxType)
	return buildBoxWithType(t, content)
}

// buildBoxWithType builds a box with a 4-byte array type.
func buildBoxWithType(boxType [4]byte, content []byte) []byte {
	contentLen := len(content)
	// Clamp to max safe size to avoid overflow (box size uses uint32).
	const maxSize = 1<<31 - 9
	if contentLen > maxSize {
		contentLen = maxSize
	}
	// #nosec G115 -- contentLen is clamped above to prevent overflow
	size := uint32(8 + contentLen)

	buf := make([]byte, 8+len(content))
	binary.BigEndian.PutUint32(buf[0:4], size)
	copy(buf[4:8], boxType[:])
	copy(buf[8:], content)
	return buf
}

// buildFullBox builds a box whose content starts with 4 bytes of version/flags.
func buildFullBox(boxType string, content []byte) []byte {
	return buildBox(boxType, append(make([]byte, 4), content...))
}
