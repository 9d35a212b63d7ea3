// Package tagmap maps track and release fields to tag properties per
// container and applies them to an opened file.
package tagmap

import (
	"slices"
	"sort"

	"github.com/pkg/errors"
	"github.com/shishobooks/mediatag/pkg/taglib"
)

// RawSuffix marks an m4a property that is written as an iTunes freeform
// item instead of through the property map.
const RawSuffix = "_raw"

// ErrInvalidMapping is returned by Validate.
var ErrInvalidMapping = errors.New("invalid tag mapping")

// Mappings holds field → property maps keyed by container ("flac", "m4a",
// "mp3").
type Mappings map[string]map[string]string

// Formats are the container keys accepted in Mappings.
var Formats = []string{"flac", "m4a", "mp3"}

// Fields are the field names a mapping may use.
var Fields = []string{
	"track_id",
	"track_url",
	"track_name",
	"track_artists",
	"track_remixers",
	"track_artists_limited",
	"track_remixers_limited",
	"track_number",
	"track_number_with_padding",
	"track_number_with_total",
	"track_genre",
	"track_subgenre",
	"track_genre_with_subgenre",
	"track_subgenre_or_genre",
	"track_key",
	"track_bpm",
	"track_isrc",

	"release_id",
	"release_url",
	"release_name",
	"release_artists",
	"release_remixers",
	"release_artists_limited",
	"release_remixers_limited",
	"release_date",
	"release_year",
	"release_track_count",
	"release_track_count_with_padding",
	"release_catalog_number",
	"release_upc",
	"release_label",
	"release_label_url",
}

// Defaults returns the default mappings. The result is a fresh copy.
func Defaults() Mappings {
	common := map[string]string{
		"track_name":    "TITLE",
		"track_artists": "ARTIST",
		"track_number":  "TRACKNUMBER",
		"track_key":     "KEY",
		"track_bpm":     "BPM",
		"track_isrc":    "ISRC",

		"release_name":           "ALBUM",
		"release_artists":        "ALBUMARTIST",
		"release_date":           "DATE",
		"release_track_count":    "TOTALTRACKS",
		"release_catalog_number": "CATALOGNUMBER",
		"release_label":          "LABEL",
	}

	with := func(field, property string) map[string]string {
		m := make(map[string]string, len(common)+1)
		for k, v := range common {
			m[k] = v
		}
		m[field] = property
		return m
	}

	return Mappings{
		"flac": with("track_subgenre_or_genre", "GENRE"),
		"m4a":  with("track_genre", "GENRE"),
		"mp3":  with("track_genre", "GENRE"),
	}
}

// Validate checks that every container and field in m is known.
func Validate(m Mappings) error {
	for _, format := range sortedKeys(m) {
		if !slices.Contains(Formats, format) {
			return errors.Wrapf(ErrInvalidMapping, "unknown format %q", format)
		}
		for _, field := range sortedKeys(m[format]) {
			if !slices.Contains(Fields, field) {
				return errors.Wrapf(ErrInvalidMapping, "unknown field %q for %s", field, format)
			}
		}
	}
	return nil
}

// FormatKey returns the Mappings key used for a container.
func FormatKey(format taglib.Format) string {
	switch format {
	case taglib.FormatMP4:
		return "m4a"
	case taglib.FormatMP3:
		return "mp3"
	case taglib.FormatFLAC:
		return "flac"
	default:
		return ""
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
