package mp4

import (
	"bytes"
	"encoding/binary"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DataValue is the payload of a single data box inside an item atom.
type DataValue struct {
	Type  int
	Value []byte
}

// Item is one child atom of moov/udta/meta/ilst. Key is the atom name as a
// Latin-1 string ("©nam", "trkn") or "----:mean:name" for freeform atoms.
type Item struct {
	Key  string
	Data []DataValue

	// raw holds the complete atom for items that carry no data boxes, so
	// they are written back untouched.
	raw []byte
}

// Cover is an embedded covr image.
type Cover struct {
	MIMEType string
	Data     []byte
}

// AudioInfo holds technical properties read from the movie and sample
// description boxes.
type AudioInfo struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
	Bitrate    int // kbps
	Codec      string
}

// Tag is the in-memory ilst of an MP4 file. Items keep their on-disk order;
// new items are appended.
type Tag struct {
	items []*Item
	Audio AudioInfo
}

// NewTag returns an empty tag.
func NewTag() *Tag {
	return &Tag{}
}

// Items returns the items in file order.
func (t *Tag) Items() []*Item {
	return t.items
}

// IsEmpty reports whether the tag has no items.
func (t *Tag) IsEmpty() bool {
	return len(t.items) == 0
}

// Clear removes every item.
func (t *Tag) Clear() {
	t.items = nil
}

// Keys returns the item keys in file order.
func (t *Tag) Keys() []string {
	keys := make([]string, 0, len(t.items))
	for _, item := range t.items {
		keys = append(keys, item.Key)
	}
	return keys
}

// Item returns the item with the given key, or nil.
func (t *Tag) Item(key string) *Item {
	for _, item := range t.items {
		if item.Key == key {
			return item
		}
	}
	return nil
}

// Get returns the string values of an item. It returns nil when the item is
// missing or holds no text.
func (t *Tag) Get(key string) []string {
	item := t.Item(key)
	if item == nil {
		return nil
	}
	return item.Strings()
}

// SetItem stores item, replacing an existing item with the same key in place.
func (t *Tag) SetItem(item *Item) {
	for i, existing := range t.items {
		if existing.Key == item.Key {
			t.items[i] = item
			return
		}
	}
	t.items = append(t.items, item)
}

// Set stores values under key, encoding them the way the atom expects:
// trkn/disk as number pairs, tmpo/cpil as integers, everything else as UTF-8
// text with one data box per value. An empty values list removes the item.
func (t *Tag) Set(key string, values ...string) error {
	if len(values) == 0 {
		t.Remove(key)
		return nil
	}
	if _, _, ok := splitFreeformKey(key); !ok {
		if _, err := AtomFromKey(key); err != nil {
			return err
		}
	}
	t.SetItem(&Item{Key: key, Data: encodeValues(key, values)})
	return nil
}

// Remove deletes the item with the given key and reports whether it existed.
func (t *Tag) Remove(key string) bool {
	for i, item := range t.items {
		if item.Key == key {
			t.items = append(t.items[:i], t.items[i+1:]...)
			return true
		}
	}
	return false
}

// Covers returns the images stored in the covr item.
func (t *Tag) Covers() []Cover {
	item := t.Item(KeyFromAtom(AtomCover))
	if item == nil {
		return nil
	}
	covers := make([]Cover, 0, len(item.Data))
	for _, d := range item.Data {
		if len(d.Value) == 0 {
			continue
		}
		covers = append(covers, Cover{MIMEType: imageMIMEType(d.Type, d.Value), Data: d.Value})
	}
	return covers
}

// SetCovers replaces the covr item. An empty list removes it. Images that
// are not JPEG, PNG or BMP return ErrUnsupportedImage and leave the tag
// unchanged.
func (t *Tag) SetCovers(covers []Cover) error {
	key := KeyFromAtom(AtomCover)
	if len(covers) == 0 {
		t.Remove(key)
		return nil
	}
	item := &Item{Key: key}
	for _, c := range covers {
		dataType, ok := imageDataType(c.MIMEType)
		if !ok {
			return errors.Wrapf(ErrUnsupportedImage, "%q", c.MIMEType)
		}
		item.Data = append(item.Data, DataValue{Type: dataType, Value: c.Data})
	}
	t.SetItem(item)
	return nil
}

// Strings decodes the item's data values as text.
func (i *Item) Strings() []string {
	var values []string
	for _, d := range i.Data {
		switch d.Type {
		case DataTypeUTF8, DataTypeGenre:
			values = append(values, string(d.Value))
		case DataTypeUTF16BE:
			values = append(values, decodeText(d.Type, d.Value))
		case DataTypeInteger:
			if n, ok := decodeInteger(d.Value); ok {
				values = append(values, strconv.FormatInt(n, 10))
			}
		case DataTypeImplicit:
			if s, ok := decodeImplicit(i.Key, d.Value); ok {
				values = append(values, s)
			}
		}
	}
	return values
}

// decodeImplicit renders the binary layouts used by trkn, disk and gnre.
func decodeImplicit(key string, value []byte) (string, bool) {
	switch key {
	case KeyFromAtom(AtomTrackNumber), KeyFromAtom(AtomDiscNumber):
		if len(value) < 6 {
			return "", false
		}
		n := binary.BigEndian.Uint16(value[2:4])
		total := binary.BigEndian.Uint16(value[4:6])
		if total == 0 {
			return strconv.Itoa(int(n)), true
		}
		return strconv.Itoa(int(n)) + "/" + strconv.Itoa(int(total)), true
	case KeyFromAtom(AtomGenreID):
		if len(value) < 2 {
			return "", false
		}
		return gnreName(binary.BigEndian.Uint16(value))
	}
	return "", false
}

// encodeValues converts string values to data boxes for the given key.
func encodeValues(key string, values []string) []DataValue {
	switch key {
	case KeyFromAtom(AtomTrackNumber):
		n, total := parsePair(values[0])
		buf := make([]byte, 8)
		binary.BigEndian.PutUint16(buf[2:4], n)
		binary.BigEndian.PutUint16(buf[4:6], total)
		return []DataValue{{Type: DataTypeImplicit, Value: buf}}
	case KeyFromAtom(AtomDiscNumber):
		n, total := parsePair(values[0])
		buf := make([]byte, 6)
		binary.BigEndian.PutUint16(buf[2:4], n)
		binary.BigEndian.PutUint16(buf[4:6], total)
		return []DataValue{{Type: DataTypeImplicit, Value: buf}}
	case KeyFromAtom(AtomTempo):
		n, _ := strconv.Atoi(strings.TrimSpace(values[0]))
		buf := make([]byte, 2)
		// #nosec G115 -- tempo is truncated to 16 bits like other taggers do
		binary.BigEndian.PutUint16(buf, uint16(n))
		return []DataValue{{Type: DataTypeInteger, Value: buf}}
	case KeyFromAtom(AtomCompilation):
		v := byte(0)
		if s := strings.TrimSpace(values[0]); s == "1" || strings.EqualFold(s, "true") {
			v = 1
		}
		return []DataValue{{Type: DataTypeInteger, Value: []byte{v}}}
	}

	data := make([]DataValue, 0, len(values))
	for _, v := range values {
		data = append(data, DataValue{Type: DataTypeUTF8, Value: []byte(v)})
	}
	return data
}

// parsePair parses "n" or "n/total".
func parsePair(s string) (n, total uint16) {
	parts := strings.SplitN(strings.TrimSpace(s), "/", 2)
	if v, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 16); err == nil {
		n = uint16(v)
	}
	if len(parts) == 2 {
		if v, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 16); err == nil {
			total = uint16(v)
		}
	}
	return n, total
}

// buildIlst serializes the tag to an ilst box.
func (t *Tag) buildIlst() ([]byte, error) {
	var content bytes.Buffer
	for _, item := range t.items {
		atom, err := buildItemAtom(item)
		if err != nil {
			return nil, err
		}
		content.Write(atom)
	}
	return buildBox("ilst", content.Bytes()), nil
}

// buildItemAtom serializes one item.
func buildItemAtom(item *Item) ([]byte, error) {
	if item.raw != nil {
		return item.raw, nil
	}

	var content bytes.Buffer
	if mean, name, ok := splitFreeformKey(item.Key); ok {
		content.Write(buildFullBox("mean", []byte(mean)))
		content.Write(buildFullBox("name", []byte(name)))
		for _, d := range item.Data {
			content.Write(buildDataBox(d.Type, d.Value))
		}
		return buildBoxWithType(AtomFreeform, content.Bytes()), nil
	}

	atomType, err := AtomFromKey(item.Key)
	if err != nil {
		return nil, err
	}
	for _, d := range item.Data {
		content.Write(buildDataBox(d.Type, d.Value))
	}
	return buildBoxWithType(atomType, content.Bytes()), nil
}

// sortedKeys returns map keys in lexical order.
func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
