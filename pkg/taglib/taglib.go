// Package taglib is a file-handle API for reading and editing audio tags.
// It opens MP4, MP3 and FLAC files behind one File type, exposes their tags
// as TagLib-style properties and a PICTURE complex property, and adds a few
// MP4-only operations for iTunes freeform items and stripping metadata.
//
// A File is not safe for concurrent use.
package taglib

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shishobooks/mediatag/pkg/flac"
	"github.com/shishobooks/mediatag/pkg/id3"
	"github.com/shishobooks/mediatag/pkg/mp4"
)

// Result reports whether a mutating call changed anything.
type Result int

const (
	// ResultSkipped means the call was a no-op because an input was absent.
	ResultSkipped Result = iota
	// ResultApplied means the change was made.
	ResultApplied
)

func (r Result) String() string {
	if r == ResultApplied {
		return "applied"
	}
	return "skipped"
}

// PictureProperty is the name of the complex property holding pictures.
const PictureProperty = "PICTURE"

// File is an opened media file.
type File struct {
	path    string
	format  Format
	backend backend
	closed  bool
}

// Open opens the file at path. The path may contain any Unicode characters.
// Every error returned matches ErrInvalid.
func Open(path string) (*File, error) {
	clean, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}

	format, err := detectFormat(clean)
	if err != nil {
		return nil, &OpenError{Path: clean, Err: err}
	}

	var b backend
	switch format {
	case FormatMP4:
		b, err = openMP4(clean)
	case FormatMP3:
		var f *id3.File
		if f, err = id3.Open(clean); err == nil {
			b = &id3Backend{file: f}
		}
	case FormatFLAC:
		var f *flac.File
		if f, err = flac.Open(clean); err == nil {
			b = &flacBackend{file: f}
		}
	}
	if err != nil {
		return nil, &OpenError{Path: clean, Err: err}
	}

	return &File{path: clean, format: format, backend: b}, nil
}

// Path returns the cleaned path the file was opened from.
func (f *File) Path() string {
	return f.path
}

// Format returns the detected container.
func (f *File) Format() Format {
	return f.format
}

// Close releases the file. Closing a nil or closed file is a no-op.
func (f *File) Close() error {
	if f == nil || f.closed {
		return nil
	}
	f.closed = true
	return f.backend.close()
}

// SaveOption configures Save.
type SaveOption func(*saveOptions)

type saveOptions struct {
	backupSuffix string
}

// WithBackup copies the original file to path+suffix before it is
// overwritten. An empty suffix disables the backup.
func WithBackup(suffix string) SaveOption {
	return func(o *saveOptions) {
		o.backupSuffix = suffix
	}
}

// Save writes pending tag changes to disk.
func (f *File) Save(opts ...SaveOption) error {
	if err := f.usable(); err != nil {
		return err
	}
	var o saveOptions
	for _, opt := range opts {
		opt(&o)
	}
	return f.backend.save(o)
}

// Properties returns all tag properties keyed by upper-case names.
func (f *File) Properties() map[string][]string {
	if f.usable() != nil {
		return map[string][]string{}
	}
	return f.backend.properties()
}

// Property returns the first value of a property, or "" when it is unset.
func (f *File) Property(key string) string {
	values := f.Properties()[strings.ToUpper(key)]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// PropertyKeys returns the names of the properties present, sorted.
func (f *File) PropertyKeys() []string {
	if f.usable() != nil {
		return nil
	}
	return f.backend.propertyKeys()
}

// SetProperty replaces a property's values. Calling it without values
// removes the property. An empty key is skipped.
func (f *File) SetProperty(key string, values ...string) (Result, error) {
	if f == nil || key == "" {
		return ResultSkipped, nil
	}
	if err := f.usable(); err != nil {
		return ResultSkipped, err
	}
	if err := f.backend.setProperty(strings.ToUpper(key), values...); err != nil {
		return ResultSkipped, err
	}
	return ResultApplied, nil
}

// ClearProperties removes every property. Pictures are kept.
func (f *File) ClearProperties() error {
	if err := f.usable(); err != nil {
		return err
	}
	return f.backend.clearProperties()
}

// ComplexPropertyKeys returns the complex properties present. PICTURE is the
// only one supported.
func (f *File) ComplexPropertyKeys() []string {
	if f.usable() != nil || len(f.backend.pictures()) == 0 {
		return nil
	}
	return []string{PictureProperty}
}

// ComplexProperty returns the values of a complex property. Unsupported
// names return ErrUnsupportedProperty.
func (f *File) ComplexProperty(name string) ([]map[string]any, error) {
	if err := f.usable(); err != nil {
		return nil, err
	}
	if !strings.EqualFold(name, PictureProperty) {
		return nil, errors.Wrapf(ErrUnsupportedProperty, "%q", name)
	}
	pictures := f.backend.pictures()
	values := make([]map[string]any, 0, len(pictures))
	for _, p := range pictures {
		values = append(values, pictureToProperty(p))
	}
	return values, nil
}

// SetComplexProperty replaces a complex property. For PICTURE each value is
// a map with "data", "description", "mimeType" and "pictureType"; an empty
// list removes every picture. MP4 files only hold JPEG, PNG and BMP
// pictures; other images return ErrUnsupportedImage.
func (f *File) SetComplexProperty(name string, values []map[string]any) error {
	if err := f.usable(); err != nil {
		return err
	}
	if !strings.EqualFold(name, PictureProperty) {
		return errors.Wrapf(ErrUnsupportedProperty, "%q", name)
	}
	pictures := make([]Picture, 0, len(values))
	for _, v := range values {
		pictures = append(pictures, normalizePicture(pictureFromProperty(v)))
	}
	return f.backend.setPictures(pictures)
}

// SetPicture replaces the embedded pictures with p. A nil picture is
// skipped. Empty MIME types are detected from the data and picture type
// names are resolved with ParsePictureType.
func (f *File) SetPicture(p *Picture) (Result, error) {
	if f == nil || p == nil {
		return ResultSkipped, nil
	}
	if err := f.SetComplexProperty(PictureProperty, []map[string]any{pictureToProperty(*p)}); err != nil {
		return ResultSkipped, err
	}
	return ResultApplied, nil
}

// Picture returns the front cover, or the first picture when there is no
// front cover.
func (f *File) Picture() (*Picture, error) {
	if err := f.usable(); err != nil {
		return nil, err
	}
	pictures := f.backend.pictures()
	if len(pictures) == 0 {
		return nil, errors.WithStack(ErrNoPicture)
	}
	for i := range pictures {
		if pictures[i].PictureType == DefaultPictureType {
			return &pictures[i], nil
		}
	}
	return &pictures[0], nil
}

// AudioProperties returns the stream properties read when the file was opened.
func (f *File) AudioProperties() AudioProperties {
	if f.usable() != nil {
		return AudioProperties{}
	}
	return f.backend.audio()
}

// SampleRate returns the sample rate in Hz, or 0 when unknown.
func (f *File) SampleRate() int {
	return f.AudioProperties().SampleRate
}

// SetItemMP4 sets the iTunes freeform item "----:com.apple.iTunes:<key>" to
// the single value. Empty keys or values are skipped, so an empty value
// cannot be stored. Files that are not MP4 return ErrNotMP4.
func (f *File) SetItemMP4(key, value string) (Result, error) {
	if f == nil || key == "" || value == "" {
		return ResultSkipped, nil
	}
	b, err := f.mp4("SetItemMP4")
	if err != nil {
		return ResultSkipped, err
	}
	if err := b.setItem(mp4.FreeformPrefix+key, value); err != nil {
		return ResultSkipped, err
	}
	return ResultApplied, nil
}

// ItemsMP4 returns every ilst item with a text representation keyed by its
// atom name.
func (f *File) ItemsMP4() (map[string][]string, error) {
	b, err := f.mp4("ItemsMP4")
	if err != nil {
		return nil, err
	}
	return b.items(), nil
}

// ItemKeysMP4 returns the ilst item keys, sorted.
func (f *File) ItemKeysMP4() ([]string, error) {
	items, err := f.ItemsMP4()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// StripMP4 removes all iTunes metadata from the file on disk right away and
// discards pending tag edits.
func (f *File) StripMP4() (Result, error) {
	if f == nil {
		return ResultSkipped, nil
	}
	b, err := f.mp4("StripMP4")
	if err != nil {
		return ResultSkipped, err
	}
	if err := b.strip(); err != nil {
		return ResultSkipped, err
	}
	return ResultApplied, nil
}

// mp4 returns the MP4 backend or a FormatError naming op.
func (f *File) mp4(op string) (*mp4Backend, error) {
	if err := f.usable(); err != nil {
		return nil, err
	}
	b, ok := f.backend.(*mp4Backend)
	if !ok {
		return nil, &FormatError{Op: op, Format: f.format, Want: FormatMP4}
	}
	return b, nil
}

func (f *File) usable() error {
	if f == nil {
		return errors.WithStack(ErrInvalid)
	}
	if f.closed {
		return errors.WithStack(ErrClosed)
	}
	return nil
}
