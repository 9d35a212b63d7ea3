package tagmap

import (
	"fmt"
	"strconv"
	"strings"
)

// Track is the input record for a retag. Its JSON form is what the retag
// command reads.
type Track struct {
	ID       int64    `json:"id"`
	URL      string   `json:"url"`
	Name     string   `json:"name"`
	MixName  string   `json:"mix_name"`
	Artists  []string `json:"artists"`
	Remixers []string `json:"remixers"`
	Number   int      `json:"number"`
	Genre    string   `json:"genre"`
	Subgenre string   `json:"subgenre"`
	Key      string   `json:"key"`
	BPM      int      `json:"bpm"`
	ISRC     string   `json:"isrc"`
	Release  Release  `json:"release"`
}

// Release describes the release a Track belongs to.
type Release struct {
	ID            int64    `json:"id"`
	URL           string   `json:"url"`
	Name          string   `json:"name"`
	Artists       []string `json:"artists"`
	Remixers      []string `json:"remixers"`
	Date          string   `json:"date"`
	TrackCount    int      `json:"track_count"`
	CatalogNumber string   `json:"catalog_number"`
	UPC           string   `json:"upc"`
	Label         string   `json:"label"`
	LabelURL      string   `json:"label_url"`
}

// ValueOptions controls how derived fields are rendered.
type ValueOptions struct {
	// ArtistsLimit and ArtistsShortForm drive the *_limited fields: lists
	// longer than the limit render as the short form.
	ArtistsLimit     int
	ArtistsShortForm string
	// NumberPadding is the zero padding width for *_with_padding fields.
	// Zero pads to the width of the track count.
	NumberPadding int
}

// Values renders every field of t. Fields without data are empty strings.
func (t Track) Values(opts ValueOptions) map[string]string {
	subgenreOrGenre := t.Genre
	genreWithSubgenre := t.Genre
	if t.Subgenre != "" {
		subgenreOrGenre = t.Subgenre
		genreWithSubgenre = t.Genre + " | " + t.Subgenre
	}

	name := t.Name
	if t.MixName != "" {
		name = fmt.Sprintf("%s (%s)", t.Name, t.MixName)
	}

	r := t.Release
	return map[string]string{
		"track_id":                  formatID(t.ID),
		"track_url":                 t.URL,
		"track_name":                name,
		"track_artists":             joinArtists(t.Artists, 0, ""),
		"track_remixers":            joinArtists(t.Remixers, 0, ""),
		"track_artists_limited":     joinArtists(t.Artists, opts.ArtistsLimit, opts.ArtistsShortForm),
		"track_remixers_limited":    joinArtists(t.Remixers, opts.ArtistsLimit, opts.ArtistsShortForm),
		"track_number":              formatNumber(t.Number),
		"track_number_with_padding": numberWithPadding(t.Number, r.TrackCount, opts.NumberPadding),
		"track_number_with_total":   numberWithTotal(t.Number, r.TrackCount),
		"track_genre":               t.Genre,
		"track_subgenre":            t.Subgenre,
		"track_genre_with_subgenre": genreWithSubgenre,
		"track_subgenre_or_genre":   subgenreOrGenre,
		"track_key":                 t.Key,
		"track_bpm":                 formatNumber(t.BPM),
		"track_isrc":                t.ISRC,

		"release_id":                       formatID(r.ID),
		"release_url":                      r.URL,
		"release_name":                     r.Name,
		"release_artists":                  joinArtists(r.Artists, 0, ""),
		"release_remixers":                 joinArtists(r.Remixers, 0, ""),
		"release_artists_limited":          joinArtists(r.Artists, opts.ArtistsLimit, opts.ArtistsShortForm),
		"release_remixers_limited":         joinArtists(r.Remixers, opts.ArtistsLimit, opts.ArtistsShortForm),
		"release_date":                     r.Date,
		"release_year":                     releaseYear(r.Date),
		"release_track_count":              formatNumber(r.TrackCount),
		"release_track_count_with_padding": numberWithPadding(r.TrackCount, r.TrackCount, opts.NumberPadding),
		"release_catalog_number":           r.CatalogNumber,
		"release_upc":                      r.UPC,
		"release_label":                    r.Label,
		"release_label_url":                r.LabelURL,
	}
}

func joinArtists(artists []string, limit int, shortForm string) string {
	if shortForm != "" && len(artists) > limit {
		return shortForm
	}
	return strings.Join(artists, ", ")
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func formatNumber(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func numberWithTotal(n, total int) string {
	if n == 0 {
		return ""
	}
	if total == 0 {
		return strconv.Itoa(n)
	}
	return fmt.Sprintf("%d/%d", n, total)
}

func numberWithPadding(n, total, padding int) string {
	if n == 0 {
		return ""
	}
	if padding == 0 {
		padding = len(strconv.Itoa(total))
	}
	return fmt.Sprintf("%0*d", padding, n)
}

// releaseYear takes the year from a YYYY-MM-DD date.
func releaseYear(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}
