package mp4

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFromAtom(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "©nam", KeyFromAtom(AtomTitle))
	assert.Equal(t, "trkn", KeyFromAtom(AtomTrackNumber))
	assert.Equal(t, "----", KeyFromAtom(AtomFreeform))
}

func TestAtomFromKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     string
		want    [4]byte
		wantErr bool
	}{
		{"copyright sign", "©nam", AtomTitle, false},
		{"plain ascii", "covr", AtomCover, false},
		{"too short", "nam", [4]byte{}, true},
		{"too long", "title", [4]byte{}, true},
		{"outside latin-1", "日本語!", [4]byte{}, true},
		{"empty", "", [4]byte{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AtomFromKey(tc.key)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSplitFreeformKey(t *testing.T) {
	t.Parallel()

	mean, name, ok := splitFreeformKey("----:com.apple.iTunes:MusicBrainz Track Id")
	require.True(t, ok)
	assert.Equal(t, "com.apple.iTunes", mean)
	assert.Equal(t, "MusicBrainz Track Id", name)

	_, _, ok = splitFreeformKey("----:com.apple.iTunes:")
	assert.False(t, ok)
	_, _, ok = splitFreeformKey("----::name")
	assert.False(t, ok)
	_, _, ok = splitFreeformKey("©nam")
	assert.False(t, ok)
}

func TestDecodeInteger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value []byte
		want  int64
		ok    bool
	}{
		{"one byte", []byte{1}, 1, true},
		{"negative byte", []byte{0xFF}, -1, true},
		{"two bytes", []byte{0x00, 0x78}, 120, true},
		{"four bytes", []byte{0, 0, 1, 0}, 256, true},
		{"eight bytes", []byte{0, 0, 0, 0, 0, 0, 0, 9}, 9, true},
		{"three bytes", []byte{0, 0, 1}, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := decodeInteger(tc.value)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeUTF16BE(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Hi", decodeUTF16BE([]byte{0xFE, 0xFF, 0x00, 'H', 0x00, 'i'}))
	assert.Equal(t, "é", decodeUTF16BE([]byte{0x00, 0xE9, 0x00, 0x00}))
	assert.Equal(t, "", decodeUTF16BE([]byte{0x00}))
}

func TestImageMIMEType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "image/jpeg", imageMIMEType(DataTypeJPEG, nil))
	assert.Equal(t, "image/png", imageMIMEType(DataTypePNG, nil))
	assert.Equal(t, "image/png", imageMIMEType(DataTypeImplicit, []byte{0x89, 'P', 'N', 'G'}))
	assert.Equal(t, "", imageMIMEType(DataTypeImplicit, []byte{1, 2, 3, 4}))
	dataType, ok := imageDataType("image/png")
	assert.True(t, ok)
	assert.Equal(t, DataTypePNG, dataType)
	dataType, ok = imageDataType("IMAGE/JPG")
	assert.True(t, ok)
	assert.Equal(t, DataTypeJPEG, dataType)
	_, ok = imageDataType("image/gif")
	assert.False(t, ok)
}

func TestBuildDataBox(t *testing.T) {
	t.Parallel()

	box := buildDataBox(DataTypeUTF8, []byte("abc"))
	require.Len(t, box, 19)
	assert.Equal(t, "data", string(box[4:8]))

	dataType, value, ok := parseDataValue(box[8:])
	require.True(t, ok)
	assert.Equal(t, DataTypeUTF8, dataType)
	assert.Equal(t, []byte("abc"), value)
}
