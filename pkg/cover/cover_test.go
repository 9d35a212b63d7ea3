package cover

import (
	"testing"

	"github.com/gabriel-vasile/mimetype"
	"github.com/shishobooks/mediatag/internal/testgen"
	"github.com/shishobooks/mediatag/pkg/taglib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_KeepsSmallImage(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "cover-small-*")
	data := testgen.GenerateImage(t, "image/jpeg")
	path := testgen.WriteFile(t, dir, "cover.jpg", data)

	img, err := Load(path, 500)
	require.NoError(t, err)
	assert.Equal(t, data, img.Data)
	assert.Equal(t, "image/jpeg", img.MIMEType)
	assert.Equal(t, 100, img.Width)
	assert.Equal(t, 100, img.Height)
	assert.False(t, img.Resized)
}

func TestLoad_Downscales(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mimeType string
		width    int
		height   int
		maxSize  int
		wantW    int
		wantH    int
	}{
		{"wide jpeg", "image/jpeg", 400, 200, 100, 100, 50},
		{"tall png", "image/png", 150, 300, 150, 75, 150},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			data := testgen.GenerateImageSize(t, tc.mimeType, tc.width, tc.height)

			img, err := FromBytes(data, tc.maxSize)
			require.NoError(t, err)
			assert.True(t, img.Resized)
			assert.Equal(t, tc.mimeType, img.MIMEType)
			assert.Equal(t, tc.wantW, img.Width)
			assert.Equal(t, tc.wantH, img.Height)

			again, err := FromBytes(img.Data, 0)
			require.NoError(t, err)
			assert.Equal(t, tc.wantW, again.Width)
			assert.Equal(t, tc.wantH, again.Height)
		})
	}
}

func TestLoad_ConvertsToPNG(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		width       int
		maxSize     int
		wantWidth   int
		wantResized bool
	}{
		{"small gif", 100, 500, 100, false},
		{"large gif", 400, 200, 200, true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			data := testgen.GenerateImageSize(t, "image/gif", tc.width, tc.width)

			img, err := FromBytes(data, tc.maxSize)
			require.NoError(t, err)
			assert.True(t, img.Converted)
			assert.Equal(t, tc.wantResized, img.Resized)
			assert.Equal(t, "image/png", img.MIMEType)
			assert.Equal(t, "image/png", mimetype.Detect(img.Data).String())
			assert.Equal(t, tc.wantWidth, img.Width)
		})
	}
}

func TestLoad_NotImage(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "cover-text-*")
	path := testgen.WriteFile(t, dir, "cover.jpg", []byte("definitely not a picture"))

	_, err := Load(path, 0)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestImage_Picture(t *testing.T) {
	t.Parallel()

	img := &Image{Data: []byte{1}, MIMEType: "image/png"}
	assert.Equal(t, &taglib.Picture{
		Data:        []byte{1},
		Description: "Cover",
		MIMEType:    "image/png",
		PictureType: "Front Cover",
	}, img.Picture("Cover", "Front"))
}

func TestFitDimensions(t *testing.T) {
	t.Parallel()

	w, h := fitDimensions(1000, 10, 100, 100)
	assert.Equal(t, 100, w)
	assert.Equal(t, 1, h)

	w, h = fitDimensions(50, 60, 100, 100)
	assert.Equal(t, 50, w)
	assert.Equal(t, 60, h)
}
