package flac

import (
	"strings"

	"github.com/go-flac/flacvorbis/v2"
	goflac "github.com/go-flac/go-flac/v2"
	"github.com/pkg/errors"
)

// defaultVendor is written when a file had no comment block to take the
// vendor string from.
const defaultVendor = "mediatag"

// comments is a property view over a Vorbis comment block. Field names are
// compared case-insensitively and stored upper-case.
type comments struct {
	block *flacvorbis.MetaDataBlockVorbisComment
}

func newComments() *comments {
	block := flacvorbis.New()
	block.Vendor = defaultVendor
	return &comments{block: block}
}

// parseComments decodes a VORBIS_COMMENT block. Fields without a name are
// not addressable and are dropped.
func parseComments(block goflac.MetaDataBlock) (*comments, error) {
	parsed, err := flacvorbis.ParseFromMetaDataBlock(block)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidComment, err.Error())
	}

	fields := make([]string, 0, len(parsed.Comments))
	for _, raw := range parsed.Comments {
		name, value, ok := strings.Cut(raw, "=")
		if !ok || name == "" {
			continue
		}
		fields = append(fields, strings.ToUpper(name)+"="+value)
	}
	parsed.Comments = fields

	return &comments{block: parsed}, nil
}

func (c *comments) vendor() string {
	return c.block.Vendor
}

func (c *comments) marshal() goflac.MetaDataBlock {
	return c.block.Marshal()
}

// get returns the values of field in order.
func (c *comments) get(field string) []string {
	values, err := c.block.Get(field)
	if err != nil || len(values) == 0 {
		return nil
	}
	return values
}

// set replaces every occurrence of field. The first new value takes the
// position of the first old one so field order survives edits. Empty
// values are dropped.
func (c *comments) set(field string, values ...string) error {
	field = strings.ToUpper(field)

	next := &flacvorbis.MetaDataBlockVorbisComment{
		Vendor:   c.block.Vendor,
		Comments: make([]string, 0, len(c.block.Comments)+len(values)),
	}
	add := func() error {
		for _, v := range values {
			if v == "" {
				continue
			}
			if err := next.Add(field, v); err != nil {
				return errors.Wrapf(ErrInvalidComment, "field %q: %s", field, err)
			}
		}
		return nil
	}

	replaced := false
	for _, raw := range c.block.Comments {
		name, _, _ := strings.Cut(raw, "=")
		if name != field {
			next.Comments = append(next.Comments, raw)
			continue
		}
		if !replaced {
			if err := add(); err != nil {
				return err
			}
			replaced = true
		}
	}
	if !replaced {
		if err := add(); err != nil {
			return err
		}
	}

	c.block = next
	return nil
}

// clear removes every field. The vendor string is kept.
func (c *comments) clear() {
	c.block.Comments = []string{}
}

// properties groups the fields into a property map.
func (c *comments) properties() map[string][]string {
	props := make(map[string][]string)
	for _, raw := range c.block.Comments {
		name, value, _ := strings.Cut(raw, "=")
		props[name] = append(props[name], value)
	}
	return props
}
