package mp4

import "strings"

// propertyAtoms maps property names to item keys. Property names follow the
// TagLib property map so the same names work across containers.
var propertyAtoms = map[string]string{
	"TITLE":           KeyFromAtom(AtomTitle),
	"ARTIST":          KeyFromAtom(AtomArtist),
	"ALBUM":           KeyFromAtom(AtomAlbum),
	"ALBUMARTIST":     KeyFromAtom(AtomAlbumArtist),
	"COMPOSER":        KeyFromAtom(AtomComposer),
	"GENRE":           KeyFromAtom(AtomGenre),
	"DATE":            KeyFromAtom(AtomYear),
	"COMMENT":         KeyFromAtom(AtomComment),
	"GROUPING":        KeyFromAtom(AtomGrouping),
	"ENCODEDBY":       KeyFromAtom(AtomEncoder),
	"LYRICS":          KeyFromAtom(AtomLyrics),
	"COPYRIGHT":       KeyFromAtom(AtomCopyright),
	"DESCRIPTION":     KeyFromAtom(AtomDescription),
	"TRACKNUMBER":     KeyFromAtom(AtomTrackNumber),
	"DISCNUMBER":      KeyFromAtom(AtomDiscNumber),
	"BPM":             KeyFromAtom(AtomTempo),
	"COMPILATION":     KeyFromAtom(AtomCompilation),
	"TITLESORT":       "sonm",
	"ARTISTSORT":      "soar",
	"ALBUMSORT":       "soal",
	"ALBUMARTISTSORT": "soaa",
	"COMPOSERSORT":    "soco",
}

var atomProperties = func() map[string]string {
	m := make(map[string]string, len(propertyAtoms))
	for prop, key := range propertyAtoms {
		m[key] = prop
	}
	return m
}()

// PropertyKey returns the item key a property is stored under. Properties
// without a dedicated atom are stored as com.apple.iTunes freeform items.
func PropertyKey(name string) string {
	name = strings.ToUpper(name)
	if key, ok := propertyAtoms[name]; ok {
		return key
	}
	return FreeformPrefix + name
}

// Properties returns the tag as a property map. Items with no property
// mapping (cover art, unknown atoms, other freeform namespaces) are left out.
func (t *Tag) Properties() map[string][]string {
	props := make(map[string][]string)
	for _, item := range t.items {
		name, ok := propertyName(item.Key)
		if !ok {
			continue
		}
		values := item.Strings()
		if len(values) == 0 {
			continue
		}
		props[name] = append(props[name], values...)
	}
	return props
}

// PropertyKeys returns the property names present in the tag, sorted.
func (t *Tag) PropertyKeys() []string {
	return sortedKeys(t.Properties())
}

// SetProperty stores values under a property name. No values removes the
// property. Setting GENRE also drops a numeric gnre atom.
func (t *Tag) SetProperty(name string, values ...string) error {
	key := PropertyKey(name)
	if key == KeyFromAtom(AtomGenre) {
		t.Remove(KeyFromAtom(AtomGenreID))
	}
	return t.Set(key, values...)
}

// ClearProperties removes every item that surfaces as a property, matching
// freeform names in any case. Cover art and items without a property name
// are kept.
func (t *Tag) ClearProperties() {
	kept := t.items[:0]
	for _, item := range t.items {
		if _, ok := propertyName(item.Key); !ok {
			kept = append(kept, item)
		}
	}
	t.items = kept
}

// propertyName maps an item key to its property name.
func propertyName(key string) (string, bool) {
	if name, ok := atomProperties[key]; ok {
		return name, true
	}
	if key == KeyFromAtom(AtomGenreID) {
		return "GENRE", true
	}
	if strings.HasPrefix(key, FreeformPrefix) {
		return strings.ToUpper(strings.TrimPrefix(key, FreeformPrefix)), true
	}
	return "", false
}
