// Package id3 reads and writes ID3v2 tags of MP3 files through
// github.com/bogem/id3v2 and exposes them as a TagLib-style property map.
package id3

import (
	"os"
	"sort"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/pkg/errors"
)

// ErrNotMP3 is returned when the file cannot be parsed as an MP3 with an
// optional ID3v2 tag.
var ErrNotMP3 = errors.New("not a valid MP3 file")

// Picture is an attached picture (APIC) frame.
type Picture struct {
	MIMEType    string
	Description string
	Type        byte
	Data        []byte
}

// File is an MP3 file opened for tag editing.
type File struct {
	path  string
	tag   *id3v2.Tag
	audio AudioInfo
}

// Open parses the ID3v2 tag of the file at path. Files without a tag open
// with an empty one that is written as ID3v2.4 on save.
func Open(path string) (*File, error) {
	audio, err := readAudioInfo(path)
	if err != nil {
		return nil, err
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, errors.Wrap(ErrNotMP3, err.Error())
	}
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetVersion(4)

	return &File{path: path, tag: tag, audio: audio}, nil
}

// Path returns the path the file was opened from.
func (f *File) Path() string {
	return f.path
}

// AudioInfo returns the stream properties read from the MPEG frames.
func (f *File) AudioInfo() AudioInfo {
	return f.audio
}

// Properties returns the tag as a property map.
func (f *File) Properties() map[string][]string {
	props := make(map[string][]string)

	for id, frames := range f.tag.AllFrames() {
		switch id {
		case frameUserText:
			for _, fr := range frames {
				if udtf, ok := fr.(id3v2.UserDefinedTextFrame); ok && udtf.Value != "" {
					name := strings.ToUpper(udtf.Description)
					props[name] = append(props[name], splitValues(udtf.Value)...)
				}
			}
		case frameComment:
			for _, fr := range frames {
				if cf, ok := fr.(id3v2.CommentFrame); ok && cf.Description == "" && cf.Text != "" {
					props["COMMENT"] = append(props["COMMENT"], cf.Text)
				}
			}
		case frameLyrics:
			for _, fr := range frames {
				if uslt, ok := fr.(id3v2.UnsynchronisedLyricsFrame); ok && uslt.Lyrics != "" {
					props["LYRICS"] = append(props["LYRICS"], uslt.Lyrics)
				}
			}
		default:
			name, ok := frameProperties[id]
			if !ok {
				continue
			}
			for _, fr := range frames {
				if tf, ok := fr.(id3v2.TextFrame); ok {
					if values := splitValues(tf.Text); len(values) > 0 {
						props[name] = append(props[name], values...)
					}
				}
			}
		}
	}

	return props
}

// PropertyKeys returns the property names present in the tag, sorted.
func (f *File) PropertyKeys() []string {
	props := f.Properties()
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetProperty replaces the frames backing a property. No values removes it.
func (f *File) SetProperty(name string, values ...string) {
	name = strings.ToUpper(name)
	values = compact(values)

	switch name {
	case "COMMENT":
		f.deleteComments()
		for _, v := range values {
			f.tag.AddCommentFrame(id3v2.CommentFrame{
				Encoding: id3v2.EncodingUTF8,
				Language: "eng",
				Text:     v,
			})
		}
		return
	case "LYRICS":
		f.tag.DeleteFrames(frameLyrics)
		for _, v := range values {
			f.tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
				Encoding: id3v2.EncodingUTF8,
				Language: "eng",
				Lyrics:   v,
			})
		}
		return
	}

	if id, ok := propertyFrames[name]; ok {
		f.tag.DeleteFrames(id)
		if len(values) > 0 {
			f.tag.AddTextFrame(id, id3v2.EncodingUTF8, strings.Join(values, valueSeparator))
		}
		return
	}

	f.deleteUserText(name)
	if len(values) > 0 {
		f.tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: name,
			Value:       strings.Join(values, valueSeparator),
		})
	}
}

// ClearProperties removes every frame that maps to a property. Pictures and
// frames without a property mapping are kept.
func (f *File) ClearProperties() {
	for id := range frameProperties {
		f.tag.DeleteFrames(id)
	}
	f.tag.DeleteFrames(frameUserText)
	f.tag.DeleteFrames(frameLyrics)
	f.deleteComments()
}

// Pictures returns the attached pictures in tag order.
func (f *File) Pictures() []Picture {
	frames := f.tag.GetFrames(framePicture)
	pictures := make([]Picture, 0, len(frames))
	for _, fr := range frames {
		pf, ok := fr.(id3v2.PictureFrame)
		if !ok {
			continue
		}
		pictures = append(pictures, Picture{
			MIMEType:    pf.MimeType,
			Description: pf.Description,
			Type:        pf.PictureType,
			Data:        pf.Picture,
		})
	}
	return pictures
}

// SetPictures replaces all attached pictures.
func (f *File) SetPictures(pictures []Picture) {
	f.tag.DeleteFrames(framePicture)
	for _, p := range pictures {
		f.tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    p.MIMEType,
			PictureType: p.Type,
			Description: p.Description,
			Picture:     p.Data,
		})
	}
}

// Save writes the tag back to the file.
func (f *File) Save() error {
	if err := f.tag.Save(); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Close releases the underlying file.
func (f *File) Close() error {
	if err := f.tag.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return errors.WithStack(err)
	}
	return nil
}

// deleteComments removes comment frames without a description. Described
// comments (iTunNORM and friends) are left alone.
func (f *File) deleteComments() {
	frames := f.tag.GetFrames(frameComment)
	f.tag.DeleteFrames(frameComment)
	for _, fr := range frames {
		if cf, ok := fr.(id3v2.CommentFrame); ok && cf.Description != "" {
			f.tag.AddCommentFrame(cf)
		}
	}
}

// deleteUserText removes the TXXX frames whose description matches name.
func (f *File) deleteUserText(name string) {
	frames := f.tag.GetFrames(frameUserText)
	f.tag.DeleteFrames(frameUserText)
	for _, fr := range frames {
		if udtf, ok := fr.(id3v2.UserDefinedTextFrame); ok && !strings.EqualFold(udtf.Description, name) {
			f.tag.AddUserDefinedTextFrame(udtf)
		}
	}
}

// splitValues splits an ID3v2.4 multi-value text on NUL separators.
func splitValues(text string) []string {
	return compact(strings.Split(text, valueSeparator))
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
