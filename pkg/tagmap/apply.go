package tagmap

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/mediatag/pkg/taglib"
)

// Summary counts what Apply did.
type Summary struct {
	// Applied is the number of properties set.
	Applied int
	// Raw is the number of freeform MP4 items set.
	Raw int
	// Skipped is the number of mapped fields with no value.
	Skipped int
	// Picture reports whether a cover picture was embedded.
	Picture bool
}

// ApplyOptions configures Apply.
type ApplyOptions struct {
	// Picture, when set, replaces the embedded pictures.
	Picture *taglib.Picture
}

// Apply replaces the properties of f with the mapped field values. Existing
// properties are cleared first and only fields with a non-empty value are
// written. On MP4 files a property ending in RawSuffix is written with
// SetItemMP4 under the trimmed name; other containers store it as a regular
// property. Changes stay in memory until f is saved.
func Apply(ctx context.Context, f *taglib.File, m Mappings, values map[string]string, opts ApplyOptions) (*Summary, error) {
	log := logger.FromContext(ctx)

	formatKey := FormatKey(f.Format())
	mapping, ok := m[formatKey]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidMapping, "no mapping for %s", f.Format())
	}

	if err := f.ClearProperties(); err != nil {
		return nil, err
	}

	summary := &Summary{}
	raw := make(map[string]string)
	for _, field := range sortedKeys(mapping) {
		property := mapping[field]
		value := values[field]
		if value == "" {
			summary.Skipped++
			log.Debug("skipping empty field", logger.Data{"field": field, "property": property})
			continue
		}

		if strings.HasSuffix(property, RawSuffix) {
			name := strings.TrimSuffix(property, RawSuffix)
			if f.Format() == taglib.FormatMP4 {
				raw[name] = value
				continue
			}
			property = name
		}

		if _, err := f.SetProperty(property, value); err != nil {
			return nil, errors.Wrapf(err, "set %s", property)
		}
		summary.Applied++
	}

	// Freeform items go in after the property map so they win over a
	// property with the same name.
	for _, name := range sortedKeys(raw) {
		result, err := f.SetItemMP4(name, raw[name])
		if err != nil {
			return nil, errors.Wrapf(err, "set item %s", name)
		}
		if result == taglib.ResultApplied {
			summary.Raw++
		}
	}

	if opts.Picture != nil {
		result, err := f.SetPicture(opts.Picture)
		if err != nil {
			return nil, errors.Wrap(err, "set picture")
		}
		summary.Picture = result == taglib.ResultApplied
	}

	log.Info("applied tag mapping", logger.Data{
		"path":    f.Path(),
		"format":  formatKey,
		"applied": summary.Applied,
		"raw":     summary.Raw,
		"skipped": summary.Skipped,
		"picture": summary.Picture,
	})

	return summary, nil
}
