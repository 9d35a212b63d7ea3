package taglib

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/mediatag/pkg/fileutils"
	"github.com/shishobooks/mediatag/pkg/flac"
	"github.com/shishobooks/mediatag/pkg/id3"
	"github.com/shishobooks/mediatag/pkg/mp4"
)

// AudioProperties are the technical stream properties a backend knows.
type AudioProperties struct {
	Length     time.Duration
	SampleRate int
	Channels   int
	Bitrate    int // kbps
	Codec      string
}

// backend is the per-container tag implementation behind a File.
type backend interface {
	properties() map[string][]string
	propertyKeys() []string
	setProperty(name string, values ...string) error
	clearProperties() error
	pictures() []Picture
	setPictures(pictures []Picture) error
	audio() AudioProperties
	save(opts saveOptions) error
	close() error
}

type mp4Backend struct {
	path  string
	tag   *mp4.Tag
	dirty bool
}

func openMP4(path string) (*mp4Backend, error) {
	tag, err := mp4.Read(path)
	if err != nil {
		return nil, err
	}
	return &mp4Backend{path: path, tag: tag}, nil
}

func (b *mp4Backend) properties() map[string][]string { return b.tag.Properties() }
func (b *mp4Backend) propertyKeys() []string { return b.tag.PropertyKeys() }

func (b *mp4Backend) setProperty(name string, values ...string) error {
	if err := b.tag.SetProperty(name, values...); err != nil {
		return err
	}
	b.dirty = true
	return nil
}

func (b *mp4Backend) clearProperties() error {
	b.tag.ClearProperties()
	b.dirty = true
	return nil
}

// pictures maps covr images. The atom stores no description or type, so
// every cover reads back as a front cover.
func (b *mp4Backend) pictures() []Picture {
	covers := b.tag.Covers()
	pictures := make([]Picture, 0, len(covers))
	for _, c := range covers {
		pictures = append(pictures, Picture{
			Data:        c.Data,
			MIMEType:    c.MIMEType,
			PictureType: DefaultPictureType,
		})
	}
	return pictures
}

func (b *mp4Backend) setPictures(pictures []Picture) error {
	covers := make([]mp4.Cover, 0, len(pictures))
	for _, p := range pictures {
		covers = append(covers, mp4.Cover{MIMEType: p.MIMEType, Data: p.Data})
	}
	if err := b.tag.SetCovers(covers); err != nil {
		return err
	}
	b.dirty = true
	return nil
}

func (b *mp4Backend) audio() AudioProperties {
	a := b.tag.Audio
	return AudioProperties{
		Length:     a.Duration,
		SampleRate: a.SampleRate,
		Channels:   a.Channels,
		Bitrate:    a.Bitrate,
		Codec:      a.Codec,
	}
}

func (b *mp4Backend) save(opts saveOptions) error {
	if !b.dirty {
		return nil
	}
	if err := mp4.Write(b.path, b.tag, mp4.WriteOptions{BackupSuffix: opts.backupSuffix}); err != nil {
		return err
	}
	b.dirty = false
	return nil
}

// strip removes the metadata box on disk and forgets pending edits.
func (b *mp4Backend) strip() error {
	if _, err := mp4.Strip(b.path, mp4.WriteOptions{}); err != nil {
		return err
	}
	b.tag.Clear()
	b.dirty = false
	return nil
}

// setItem stores a single-value item under key.
func (b *mp4Backend) setItem(key, value string) error {
	if err := b.tag.Set(key, value); err != nil {
		return err
	}
	b.dirty = true
	return nil
}

func (b *mp4Backend) items() map[string][]string {
	items := make(map[string][]string)
	for _, item := range b.tag.Items() {
		if values := item.Strings(); len(values) > 0 {
			items[item.Key] = values
		}
	}
	return items
}

func (b *mp4Backend) close() error { return nil }

type id3Backend struct {
	file *id3.File
}

func (b *id3Backend) properties() map[string][]string { return b.file.Properties() }
func (b *id3Backend) propertyKeys() []string { return b.file.PropertyKeys() }

func (b *id3Backend) setProperty(name string, values ...string) error {
	b.file.SetProperty(name, values...)
	return nil
}

func (b *id3Backend) clearProperties() error {
	b.file.ClearProperties()
	return nil
}

func (b *id3Backend) pictures() []Picture {
	frames := b.file.Pictures()
	pictures := make([]Picture, 0, len(frames))
	for _, p := range frames {
		pictures = append(pictures, Picture{
			Data:        p.Data,
			Description: p.Description,
			MIMEType:    p.MIMEType,
			PictureType: pictureTypeName(int(p.Type)),
		})
	}
	return pictures
}

func (b *id3Backend) setPictures(pictures []Picture) error {
	frames := make([]id3.Picture, 0, len(pictures))
	for _, p := range pictures {
		frames = append(frames, id3.Picture{
			MIMEType:    p.MIMEType,
			Description: p.Description,
			Type:        byte(pictureTypeCode(p.PictureType)),
			Data:        p.Data,
		})
	}
	b.file.SetPictures(frames)
	return nil
}

func (b *id3Backend) audio() AudioProperties {
	a := b.file.AudioInfo()
	return AudioProperties{
		Length:     a.Duration,
		SampleRate: a.SampleRate,
		Channels:   a.Channels,
		Bitrate:    a.Bitrate,
		Codec:      a.Codec,
	}
}

func (b *id3Backend) save(opts saveOptions) error {
	if err := fileutils.CreateBackup(b.file.Path(), opts.backupSuffix); err != nil {
		return errors.WithStack(err)
	}
	return b.file.Save()
}

func (b *id3Backend) close() error { return b.file.Close() }

type flacBackend struct {
	file *flac.File
}

func (b *flacBackend) properties() map[string][]string { return b.file.Properties() }
func (b *flacBackend) propertyKeys() []string { return b.file.PropertyKeys() }

func (b *flacBackend) setProperty(name string, values ...string) error {
	return b.file.SetProperty(name, values...)
}

func (b *flacBackend) clearProperties() error {
	b.file.ClearProperties()
	return nil
}

func (b *flacBackend) pictures() []Picture {
	blocks := b.file.Pictures()
	pictures := make([]Picture, 0, len(blocks))
	for _, p := range blocks {
		pictures = append(pictures, Picture{
			Data:        p.Data,
			Description: p.Description,
			MIMEType:    p.MIMEType,
			PictureType: pictureTypeName(int(p.Type)),
		})
	}
	return pictures
}

func (b *flacBackend) setPictures(pictures []Picture) error {
	blocks := make([]flac.Picture, 0, len(pictures))
	for _, p := range pictures {
		blocks = append(blocks, flac.Picture{
			MIMEType:    p.MIMEType,
			Description: p.Description,
			Type:        uint32(pictureTypeCode(p.PictureType)), //nolint:gosec // codes are 0..20
			Data:        p.Data,
		})
	}
	b.file.SetPictures(blocks)
	return nil
}

func (b *flacBackend) audio() AudioProperties {
	a := b.file.AudioInfo()
	return AudioProperties{
		Length:     a.Duration,
		SampleRate: a.SampleRate,
		Channels:   a.Channels,
		Bitrate:    a.Bitrate,
		Codec:      "FLAC",
	}
}

func (b *flacBackend) save(opts saveOptions) error {
	if err := fileutils.CreateBackup(b.file.Path(), opts.backupSuffix); err != nil {
		return errors.WithStack(err)
	}
	return b.file.Save()
}

func (b *flacBackend) close() error { return b.file.Close() }
