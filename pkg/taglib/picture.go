package taglib

import (
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
)

// Picture is an embedded image as exposed by the PICTURE complex property.
type Picture struct {
	Data        []byte
	Description string
	MIMEType    string
	// PictureType is a TagLib picture type name such as "Front Cover".
	PictureType string
}

// Size returns the length of the image data.
func (p *Picture) Size() int {
	return len(p.Data)
}

// Picture type names in ID3v2 APIC / FLAC PICTURE code order.
var pictureTypeNames = []string{
	"Other",
	"File Icon",
	"Other File Icon",
	"Front Cover",
	"Back Cover",
	"Leaflet Page",
	"Media",
	"Lead Artist",
	"Artist",
	"Conductor",
	"Band",
	"Composer",
	"Lyricist",
	"Recording Location",
	"During Recording",
	"During Performance",
	"Movie Screen Capture",
	"Colored Fish",
	"Illustration",
	"Band Logo",
	"Publisher Logo",
}

// Short names callers commonly use for the picture types.
var pictureTypeAliases = map[string]string{
	"front":   "Front Cover",
	"cover":   "Front Cover",
	"back":    "Back Cover",
	"icon":    "File Icon",
	"leaflet": "Leaflet Page",
	"logo":    "Band Logo",
}

// DefaultPictureType is used when a picture has no type.
const DefaultPictureType = "Front Cover"

// ParsePictureType resolves a picture type name. Matching ignores case,
// spaces, dashes and underscores. An empty name yields DefaultPictureType;
// unknown names yield "Other".
func ParsePictureType(name string) string {
	key := normalizeTypeName(name)
	if key == "" {
		return DefaultPictureType
	}
	for _, n := range pictureTypeNames {
		if normalizeTypeName(n) == key {
			return n
		}
	}
	if alias, ok := pictureTypeAliases[key]; ok {
		return alias
	}
	return pictureTypeNames[0]
}

func normalizeTypeName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, name)
}

// pictureTypeCode returns the numeric code for a picture type name.
func pictureTypeCode(name string) int {
	name = ParsePictureType(name)
	for i, n := range pictureTypeNames {
		if n == name {
			return i
		}
	}
	return 0
}

// pictureTypeName returns the name for a numeric code.
func pictureTypeName(code int) string {
	if code < 0 || code >= len(pictureTypeNames) {
		return pictureTypeNames[0]
	}
	return pictureTypeNames[code]
}

// normalizePicture fills in a missing MIME type from the image bytes and
// canonicalizes the picture type name.
func normalizePicture(p Picture) Picture {
	if p.MIMEType == "" && len(p.Data) > 0 {
		p.MIMEType = mimetype.Detect(p.Data).String()
	}
	p.PictureType = ParsePictureType(p.PictureType)
	return p
}

// pictureToProperty converts a picture to a PICTURE complex property value.
func pictureToProperty(p Picture) map[string]any {
	return map[string]any{
		"data":        p.Data,
		"description": p.Description,
		"mimeType":    p.MIMEType,
		"pictureType": p.PictureType,
	}
}

// pictureFromProperty converts a PICTURE complex property value. Missing or
// mistyped fields are left empty.
func pictureFromProperty(v map[string]any) Picture {
	var p Picture
	switch data := v["data"].(type) {
	case []byte:
		p.Data = data
	case string:
		p.Data = []byte(data)
	}
	p.Description, _ = v["description"].(string)
	p.MIMEType, _ = v["mimeType"].(string)
	p.PictureType, _ = v["pictureType"].(string)
	return p
}
