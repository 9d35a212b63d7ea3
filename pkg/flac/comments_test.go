package flac

import (
	"testing"

	"github.com/go-flac/flacvorbis/v2"
	goflac "github.com/go-flac/go-flac/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComments_MarshalParse(t *testing.T) {
	t.Parallel()

	c := newComments()
	c.block.Vendor = "reference libFLAC 1.4.3"
	require.NoError(t, c.set("title", "Song"))
	require.NoError(t, c.set("ARTIST", "One", "Two"))

	parsed, err := parseComments(c.marshal())
	require.NoError(t, err)
	assert.Equal(t, "reference libFLAC 1.4.3", parsed.vendor())
	assert.Equal(t, []string{"TITLE=Song", "ARTIST=One", "ARTIST=Two"}, parsed.block.Comments)
}

func TestComments_SetKeepsPosition(t *testing.T) {
	t.Parallel()

	c := &comments{block: &flacvorbis.MetaDataBlockVorbisComment{
		Comments: []string{"TITLE=a", "GENRE=x", "GENRE=y", "DATE=2020"},
	}}

	require.NoError(t, c.set("genre", "z"))
	assert.Equal(t, []string{"TITLE=a", "GENRE=z", "DATE=2020"}, c.block.Comments)

	require.NoError(t, c.set("GENRE"))
	assert.Nil(t, c.get("GENRE"))
	assert.Len(t, c.block.Comments, 2)
}

func TestComments_SetInvalidFieldName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field string
	}{
		{"equals sign", "BAD=NAME"},
		{"non-ASCII", "TÍTULO"},
		{"control character", "A\tB"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := newComments()
			require.NoError(t, c.set("TITLE", "kept"))

			err := c.set(tc.field, "x")
			require.ErrorIs(t, err, ErrInvalidComment)
			assert.Equal(t, []string{"TITLE=kept"}, c.block.Comments)
		})
	}
}

func TestComments_Clear(t *testing.T) {
	t.Parallel()

	c := newComments()
	require.NoError(t, c.set("TITLE", "Song"))
	c.clear()

	assert.Empty(t, c.properties())
	assert.Equal(t, defaultVendor, c.vendor())
}

func TestParseComments_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		block goflac.MetaDataBlock
	}{
		{"empty", goflac.MetaDataBlock{Type: goflac.VorbisComment}},
		{"vendor length past end", goflac.MetaDataBlock{Type: goflac.VorbisComment, Data: []byte{0xFF, 0, 0, 0, 'a'}}},
		{"missing count", goflac.MetaDataBlock{Type: goflac.VorbisComment, Data: []byte{1, 0, 0, 0, 'v'}}},
		{"field length past end", goflac.MetaDataBlock{Type: goflac.VorbisComment, Data: []byte{0, 0, 0, 0, 1, 0, 0, 0, 9, 0, 0, 0, 'A', '='}}},
		{"wrong block type", goflac.MetaDataBlock{Type: goflac.Padding, Data: make([]byte, 8)}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseComments(tc.block)
			require.ErrorIs(t, err, ErrInvalidComment)
		})
	}
}

func TestParseComments_SkipsNamelessFields(t *testing.T) {
	t.Parallel()

	data := []byte{
		0, 0, 0, 0, // vendor ""
		3, 0, 0, 0, // three fields
		4, 0, 0, 0, '=', 'b', 'a', 'd',
		2, 0, 0, 0, 'n', 'o',
		3, 0, 0, 0, 'a', '=', '1',
	}
	c, err := parseComments(goflac.MetaDataBlock{Type: goflac.VorbisComment, Data: data})
	require.NoError(t, err)
	assert.Equal(t, []string{"A=1"}, c.block.Comments)
	assert.Equal(t, map[string][]string{"A": {"1"}}, c.properties())
}
