package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/mediatag/pkg/config"
	"github.com/shishobooks/mediatag/pkg/cover"
	"github.com/shishobooks/mediatag/pkg/taglib"
	"github.com/shishobooks/mediatag/pkg/tagmap"
	"github.com/shishobooks/mediatag/pkg/version"
	"github.com/urfave/cli/v2"
)

// fileInfo is the JSON document printed by show.
type fileInfo struct {
	Path       string              `json:"path"`
	Format     string              `json:"format"`
	Audio      audioInfo           `json:"audio"`
	Properties map[string][]string `json:"properties"`
	Items      map[string][]string `json:"items,omitempty"`
	Pictures   []pictureInfo       `json:"pictures"`
}

type audioInfo struct {
	LengthMillis int64  `json:"length_ms"`
	SampleRate   int    `json:"sample_rate"`
	Channels     int    `json:"channels"`
	Bitrate      int    `json:"bitrate_kbps"`
	Codec        string `json:"codec,omitempty"`
}

type pictureInfo struct {
	MIMEType    string `json:"mime_type"`
	PictureType string `json:"picture_type"`
	Description string `json:"description"`
	Size        int    `json:"size"`
}

func newApp(cfg *config.Config) *cli.App {
	return &cli.App{
		Name:        "mediatag",
		Usage:       "read and edit audio file tags",
		Description: "Reads and edits MP4, MP3 and FLAC tags, iTunes freeform items and embedded pictures",
		Version:     version.Version,
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "print tags, items, audio properties and pictures as JSON",
				ArgsUsage: "<file>",
				Action: func(c *cli.Context) error {
					return withFile(c, 1, func(f *taglib.File) error {
						return show(c, f)
					})
				},
			},
			{
				Name:      "set-item",
				Usage:     "set an iTunes freeform item (MP4 only)",
				ArgsUsage: "<file> <key> <value>",
				Action: func(c *cli.Context) error {
					return withFile(c, 3, func(f *taglib.File) error {
						result, err := f.SetItemMP4(c.Args().Get(1), c.Args().Get(2))
						if err != nil {
							return err
						}
						return save(c, cfg, f, "set-item", result)
					})
				},
			},
			{
				Name:      "set-property",
				Usage:     "replace a property; no values removes it",
				ArgsUsage: "<file> <key> [value...]",
				Action: func(c *cli.Context) error {
					return withFile(c, 2, func(f *taglib.File) error {
						result, err := f.SetProperty(c.Args().Get(1), c.Args().Slice()[2:]...)
						if err != nil {
							return err
						}
						return save(c, cfg, f, "set-property", result)
					})
				},
			},
			{
				Name:      "strip",
				Usage:     "remove all iTunes metadata (MP4 only)",
				ArgsUsage: "<file>",
				Action: func(c *cli.Context) error {
					return withFile(c, 1, func(f *taglib.File) error {
						result, err := f.StripMP4()
						if err != nil {
							return err
						}
						report(c, "strip", f, result)
						return nil
					})
				},
			},
			{
				Name:      "set-picture",
				Usage:     "embed an image as the picture",
				ArgsUsage: "<file> <image>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Value: cfg.CoverDescription, Usage: "picture description"},
					&cli.StringFlag{Name: "type", Value: cfg.CoverPictureType, Usage: "picture type, e.g. \"Front Cover\""},
					&cli.IntFlag{Name: "max-size", Value: cfg.CoverMaxSize, Usage: "downscale images larger than this (0 keeps the original)"},
				},
				Action: func(c *cli.Context) error {
					return withFile(c, 2, func(f *taglib.File) error {
						img, err := cover.Load(c.Args().Get(1), c.Int("max-size"))
						if err != nil {
							return err
						}
						result, err := f.SetPicture(img.Picture(c.String("description"), c.String("type")))
						if err != nil {
							return err
						}
						return save(c, cfg, f, "set-picture", result)
					})
				},
			},
			{
				Name:      "export-picture",
				Usage:     "write the front cover (or first picture) to a file",
				ArgsUsage: "<file> <output>",
				Action: func(c *cli.Context) error {
					return withFile(c, 2, func(f *taglib.File) error {
						picture, err := f.Picture()
						if err != nil {
							return err
						}
						output := c.Args().Get(1)
						if err := os.WriteFile(output, picture.Data, 0644); err != nil { //nolint:gosec
							return errors.WithStack(err)
						}
						fmt.Fprintf(c.App.Writer, "wrote %s (%s, %d bytes)\n", output, picture.MIMEType, picture.Size())
						return nil
					})
				},
			},
			{
				Name:      "retag",
				Usage:     "replace tags from a track JSON document using the configured tag mappings",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "track", Required: true, Usage: "path to the track JSON document"},
					&cli.StringFlag{Name: "cover", Usage: "image to embed as the front cover"},
				},
				Action: func(c *cli.Context) error {
					return withFile(c, 1, func(f *taglib.File) error {
						return retag(c, cfg, f)
					})
				},
			},
		},
	}
}

// withFile checks the argument count, opens the first argument and closes
// it after fn returns.
func withFile(c *cli.Context, minArgs int, fn func(f *taglib.File) error) error {
	if c.NArg() < minArgs {
		return errors.Errorf("%s needs %d argument(s): %s", c.Command.Name, minArgs, c.Command.ArgsUsage)
	}

	f, err := taglib.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()

	return fn(f)
}

func save(c *cli.Context, cfg *config.Config, f *taglib.File, op string, result taglib.Result) error {
	if result == taglib.ResultApplied {
		if err := f.Save(taglib.WithBackup(cfg.BackupSuffix)); err != nil {
			return err
		}
	}
	report(c, op, f, result)
	return nil
}

func report(c *cli.Context, op string, f *taglib.File, result taglib.Result) {
	logger.FromContext(c.Context).Info(op, logger.Data{"path": f.Path(), "result": result.String()})
	fmt.Fprintf(c.App.Writer, "%s: %s\n", op, result)
}

func show(c *cli.Context, f *taglib.File) error {
	audio := f.AudioProperties()
	info := fileInfo{
		Path:   f.Path(),
		Format: f.Format().String(),
		Audio: audioInfo{
			LengthMillis: audio.Length.Milliseconds(),
			SampleRate:   audio.SampleRate,
			Channels:     audio.Channels,
			Bitrate:      audio.Bitrate,
			Codec:        audio.Codec,
		},
		Properties: f.Properties(),
		Pictures:   []pictureInfo{},
	}

	if f.Format() == taglib.FormatMP4 {
		items, err := f.ItemsMP4()
		if err != nil {
			return err
		}
		info.Items = items
	}

	values, err := f.ComplexProperty(taglib.PictureProperty)
	if err != nil {
		return err
	}
	for _, v := range values {
		data, _ := v["data"].([]byte)
		mimeType, _ := v["mimeType"].(string)
		pictureType, _ := v["pictureType"].(string)
		description, _ := v["description"].(string)
		info.Pictures = append(info.Pictures, pictureInfo{
			MIMEType:    mimeType,
			PictureType: pictureType,
			Description: description,
			Size:        len(data),
		})
	}

	out, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	fmt.Fprintln(c.App.Writer, string(out))
	return nil
}

func retag(c *cli.Context, cfg *config.Config, f *taglib.File) error {
	data, err := os.ReadFile(c.String("track"))
	if err != nil {
		return errors.WithStack(err)
	}
	var track tagmap.Track
	if err := json.Unmarshal(data, &track); err != nil {
		return errors.Wrap(err, "invalid track document")
	}

	opts := tagmap.ApplyOptions{}
	if path := c.String("cover"); path != "" {
		img, err := cover.Load(path, cfg.CoverMaxSize)
		if err != nil {
			return err
		}
		opts.Picture = img.Picture(cfg.CoverDescription, cfg.CoverPictureType)
	}

	values := track.Values(tagmap.ValueOptions{
		ArtistsLimit:     cfg.ArtistsLimit,
		ArtistsShortForm: cfg.ArtistsShortForm,
		NumberPadding:    cfg.TrackNumberPadding,
	})
	summary, err := tagmap.Apply(c.Context, f, cfg.TagMappings, values, opts)
	if err != nil {
		return err
	}
	if err := f.Save(taglib.WithBackup(cfg.BackupSuffix)); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "retag: %d properties, %d items, %d skipped\n", summary.Applied, summary.Raw, summary.Skipped)
	return nil
}
