// Package flac edits Vorbis comments and PICTURE blocks of FLAC files. The
// stream is parsed and written with github.com/go-flac/go-flac; comments
// and pictures are (un)marshaled with github.com/go-flac/flacvorbis and
// github.com/go-flac/flacpicture.
package flac

import (
	"bufio"
	"io"
	"os"
	"sort"
	"time"

	"github.com/go-flac/flacpicture/v2"
	goflac "github.com/go-flac/go-flac/v2"
	"github.com/pkg/errors"
	"github.com/shishobooks/mediatag/pkg/fileutils"
)

// Errors returned by the flac package.
var (
	// ErrNotFLAC is returned when the file is not a valid FLAC stream.
	ErrNotFLAC = errors.New("not a valid FLAC file")

	// ErrInvalidComment is returned when a Vorbis comment block is malformed.
	ErrInvalidComment = errors.New("invalid vorbis comment block")
)

// Picture is a PICTURE metadata block.
type Picture struct {
	MIMEType    string
	Description string
	Type        uint32
	Width       uint32
	Height      uint32
	Data        []byte
}

// AudioInfo holds properties from the STREAMINFO block.
type AudioInfo struct {
	Duration      time.Duration
	SampleRate    int
	Channels      int
	BitsPerSample int
	Bitrate       int // kbps, averaged over the whole file
}

// File is a FLAC file opened for tag editing. Only the metadata blocks are
// held in memory; audio frames are streamed from disk on Save.
type File struct {
	path     string
	meta     []*goflac.MetaDataBlock
	comments *comments
	pictures []Picture
	audio    AudioInfo
}

// Open parses the metadata blocks of the FLAC file at path.
func Open(path string) (*File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()

	stream, err := goflac.ParseMetadata(bufio.NewReader(r))
	if err != nil {
		return nil, errors.Wrap(ErrNotFLAC, err.Error())
	}
	if len(stream.Meta) == 0 {
		return nil, errors.Wrap(ErrNotFLAC, "no metadata blocks")
	}

	f := &File{path: path, meta: stream.Meta, comments: newComments()}

	for _, block := range stream.Meta {
		switch block.Type {
		case goflac.VorbisComment:
			c, err := parseComments(*block)
			if err != nil {
				return nil, err
			}
			f.comments = c
		case goflac.Picture:
			pic, err := flacpicture.ParseFromMetaDataBlock(*block)
			if err != nil {
				return nil, errors.Wrap(ErrNotFLAC, err.Error())
			}
			f.pictures = append(f.pictures, Picture{
				MIMEType:    pic.MIME,
				Description: pic.Description,
				Type:        uint32(pic.PictureType),
				Width:       pic.Width,
				Height:      pic.Height,
				Data:        pic.ImageData,
			})
		}
	}

	info, err := stream.GetStreamInfo()
	if err != nil {
		return nil, errors.Wrap(ErrNotFLAC, err.Error())
	}
	f.audio = AudioInfo{
		SampleRate:    info.SampleRate,
		Channels:      info.ChannelCount,
		BitsPerSample: info.BitDepth,
	}
	if info.SampleRate > 0 && info.SampleCount > 0 {
		f.audio.Duration = time.Duration(info.SampleCount) * time.Second / time.Duration(info.SampleRate)

		stat, err := r.Stat()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if frames := stat.Size() - metadataLength(stream.Meta); frames > 0 {
			seconds := float64(info.SampleCount) / float64(info.SampleRate)
			f.audio.Bitrate = int(float64(frames) * 8 / seconds / 1000)
		}
	}

	return f, nil
}

// metadataLength is the size of the "fLaC" marker plus every block with its
// 4-byte header.
func metadataLength(blocks []*goflac.MetaDataBlock) int64 {
	n := int64(4)
	for _, b := range blocks {
		n += 4 + int64(len(b.Data))
	}
	return n
}

// Path returns the path the file was opened from.
func (f *File) Path() string {
	return f.path
}

// AudioInfo returns the STREAMINFO properties.
func (f *File) AudioInfo() AudioInfo {
	return f.audio
}

// Vendor returns the vendor string of the comment block.
func (f *File) Vendor() string {
	return f.comments.vendor()
}

// Properties returns the comment fields as a property map.
func (f *File) Properties() map[string][]string {
	return f.comments.properties()
}

// Property returns the values of one field.
func (f *File) Property(name string) []string {
	return f.comments.get(name)
}

// PropertyKeys returns the field names present, sorted.
func (f *File) PropertyKeys() []string {
	props := f.comments.properties()
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetProperty replaces a field. No values removes it. Field names outside
// printable ASCII or containing '=' return ErrInvalidComment.
func (f *File) SetProperty(name string, values ...string) error {
	return f.comments.set(name, values...)
}

// ClearProperties removes every comment field. The vendor string is kept.
func (f *File) ClearProperties() {
	f.comments.clear()
}

// Pictures returns the PICTURE blocks in file order.
func (f *File) Pictures() []Picture {
	return append([]Picture(nil), f.pictures...)
}

// SetPictures replaces all PICTURE blocks.
func (f *File) SetPictures(pictures []Picture) {
	f.pictures = append([]Picture(nil), pictures...)
}

// Save rebuilds the metadata blocks and rewrites the file through a temp
// file. Comment and picture blocks are written right after STREAMINFO;
// other blocks keep their relative order. Audio frames are copied from the
// current file unchanged.
func (f *File) Save() error {
	var blocks []*goflac.MetaDataBlock
	var rest []*goflac.MetaDataBlock
	for _, block := range f.meta {
		switch block.Type {
		case goflac.StreamInfo:
			blocks = append(blocks, block)
		case goflac.VorbisComment, goflac.Picture:
		default:
			rest = append(rest, block)
		}
	}

	vorbis := f.comments.marshal()
	blocks = append(blocks, &vorbis)
	for _, p := range f.pictures {
		block := marshalPicture(p)
		blocks = append(blocks, &block)
	}
	blocks = append(blocks, rest...)

	stream, err := goflac.ParseFile(f.path)
	if err != nil {
		return errors.Wrap(ErrNotFLAC, err.Error())
	}
	defer stream.Close()
	stream.Meta = blocks

	err = fileutils.WriteAtomic(f.path, func(w io.Writer) error {
		_, err := stream.WriteTo(w)
		return errors.WithStack(err)
	})
	if err != nil {
		return err
	}

	f.meta = blocks
	return nil
}

// Close is a no-op; Open does not keep the file open.
func (f *File) Close() error {
	return nil
}

// marshalPicture encodes a picture block. Dimensions are decoded from the
// image when the library understands its format.
func marshalPicture(p Picture) goflac.MetaDataBlock {
	pictureType := flacpicture.PictureType(p.Type)
	if pic, err := flacpicture.NewFromImageData(pictureType, p.Description, p.Data, p.MIMEType); err == nil {
		return pic.Marshal()
	}

	pic := &flacpicture.MetadataBlockPicture{
		PictureType: pictureType,
		MIME:        p.MIMEType,
		Description: p.Description,
		Width:       p.Width,
		Height:      p.Height,
		ImageData:   p.Data,
	}
	return pic.Marshal()
}
