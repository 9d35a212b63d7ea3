package taglib_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shishobooks/mediatag/internal/testgen"
	"github.com/shishobooks/mediatag/pkg/taglib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generate creates a tagged file of the given format in dir.
func generate(t *testing.T, dir string, format taglib.Format) string {
	t.Helper()
	switch format {
	case taglib.FormatMP4:
		return testgen.GenerateM4A(t, dir, "track.m4a", testgen.M4AOptions{Title: "Song", Artist: "Artist"})
	case taglib.FormatMP3:
		return testgen.GenerateMP3(t, dir, "track.mp3", testgen.MP3Options{Title: "Song", Artist: "Artist"})
	case taglib.FormatFLAC:
		return testgen.GenerateFLAC(t, dir, "track.flac", testgen.FLACOptions{Comments: []string{"TITLE=Song", "ARTIST=Artist"}})
	}
	t.Fatalf("unknown format %v", format)
	return ""
}

var allFormats = []taglib.Format{taglib.FormatMP4, taglib.FormatMP3, taglib.FormatFLAC}

func TestOpen_DetectsFormat(t *testing.T) {
	t.Parallel()

	for _, format := range allFormats {
		format := format
		t.Run(format.String(), func(t *testing.T) {
			t.Parallel()
			dir := testgen.TempDir(t, "taglib-open-*")
			path := generate(t, dir, format)

			f, err := taglib.Open(path)
			require.NoError(t, err)
			defer f.Close()

			assert.Equal(t, format, f.Format())
			assert.Equal(t, path, f.Path())
			assert.Equal(t, "Song", f.Property("TITLE"))
			assert.Equal(t, "Artist", f.Property("artist"))
			assert.Positive(t, f.SampleRate())
		})
	}
}

func TestOpen_DetectsByContentNotExtension(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "taglib-content-*")

	path := testgen.GenerateFLAC(t, dir, "mislabeled.mp3", testgen.FLACOptions{Comments: []string{"TITLE=Song"}})

	f, err := taglib.Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, taglib.FormatFLAC, f.Format())
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "taglib-errors-*")

	tests := []struct {
		name string
		path string
		is   error
	}{
		{"empty path", "", taglib.ErrInvalidPath},
		{"nul byte", "bad\x00name.m4a", taglib.ErrInvalidPath},
		{"invalid utf-8", "bad\xffname.m4a", taglib.ErrInvalidPath},
		{"missing file", filepath.Join(dir, "missing.m4a"), os.ErrNotExist},
		{"unknown content", testgen.WriteFile(t, dir, "notes.txt", []byte("hello")), taglib.ErrUnsupportedFormat},
		{"corrupt mp4", testgen.WriteFile(t, dir, "corrupt.m4a", []byte("hello")), taglib.ErrInvalid},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f, err := taglib.Open(tc.path)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.ErrorIs(t, err, tc.is)
			assert.ErrorIs(t, err, taglib.ErrInvalid)
		})
	}
}

func TestOpen_NonASCIIPath(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "taglib-unicode-*")

	source := testgen.GenerateM4A(t, dir, "source.m4a", testgen.M4AOptions{Title: "Ünïcödé"})
	content := testgen.ReadFile(t, source)

	path := filepath.Join(dir, "Sigur Rós – Ágætis byrjun 日本語.m4a")
	require.NoError(t, os.WriteFile(path, content, 0600))

	f, err := taglib.Open(path)
	require.NoError(t, err)
	assert.Equal(t, "Ünïcödé", f.Property("TITLE"))

	_, err = f.SetItemMP4("COMMENT", "日本語")
	require.NoError(t, err)
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())

	reopened, err := taglib.Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	items, err := reopened.ItemsMP4()
	require.NoError(t, err)
	assert.Equal(t, []string{"日本語"}, items["----:com.apple.iTunes:COMMENT"])
}

func TestNilFile_MutatorsSkip(t *testing.T) {
	t.Parallel()

	var f *taglib.File

	result, err := f.SetItemMP4("KEY", "value")
	require.NoError(t, err)
	assert.Equal(t, taglib.ResultSkipped, result)

	result, err = f.StripMP4()
	require.NoError(t, err)
	assert.Equal(t, taglib.ResultSkipped, result)

	result, err = f.SetPicture(&taglib.Picture{Data: []byte{1}})
	require.NoError(t, err)
	assert.Equal(t, taglib.ResultSkipped, result)

	result, err = f.SetProperty("TITLE", "x")
	require.NoError(t, err)
	assert.Equal(t, taglib.ResultSkipped, result)

	assert.NoError(t, f.Close())
	assert.Empty(t, f.Properties())
	assert.ErrorIs(t, f.Save(), taglib.ErrInvalid)
}

func TestSetItemMP4_AbsentInputSkips(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "taglib-skip-*")
	path := generate(t, dir, taglib.FormatMP4)
	original := testgen.ReadFile(t, path)

	f, err := taglib.Open(path)
	require.NoError(t, err)
	defer f.Close()

	for _, kv := range [][2]string{{"", "value"}, {"KEY", ""}, {"", ""}} {
		result, err := f.SetItemMP4(kv[0], kv[1])
		require.NoError(t, err)
		assert.Equal(t, taglib.ResultSkipped, result)
	}

	result, err := f.SetPicture(nil)
	require.NoError(t, err)
	assert.Equal(t, taglib.ResultSkipped, result)

	require.NoError(t, f.Save())
	assert.Equal(t, original, testgen.ReadFile(t, path))
}

func TestSetItemMP4_RoundTrip(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "taglib-item-*")
	path := generate(t, dir, taglib.FormatMP4)

	f, err := taglib.Open(path)
	require.NoError(t, err)

	result, err := f.SetItemMP4("CATALOGNUMBER", "ABC-123")
	require.NoError(t, err)
	assert.Equal(t, taglib.ResultApplied, result)

	// A second set replaces the first value
	_, err = f.SetItemMP4("CATALOGNUMBER", "ABC-124")
	require.NoError(t, err)
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())

	reopened, err := taglib.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	items, err := reopened.ItemsMP4()
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC-124"}, items["----:com.apple.iTunes:CATALOGNUMBER"])
	assert.Equal(t, "ABC-124", reopened.Property("CATALOGNUMBER"))
	assert.Equal(t, "Song", reopened.Property("TITLE"))
}

func TestStripMP4(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "taglib-strip-*")
	path := testgen.GenerateM4A(t, dir, "track.m4a", testgen.M4AOptions{
		Title:    "Song",
		Freeform: map[string]string{"LABEL": "Warp"},
		HasCover: true,
	})

	f, err := taglib.Open(path)
	require.NoError(t, err)

	_, err = f.SetItemMP4("PENDING", "discarded")
	require.NoError(t, err)

	result, err := f.StripMP4()
	require.NoError(t, err)
	assert.Equal(t, taglib.ResultApplied, result)
	assert.Empty(t, f.Properties())

	// Save after strip has nothing left to write
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())

	reopened, err := taglib.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	items, err := reopened.ItemsMP4()
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, reopened.PropertyKeys())
	_, err = reopened.Picture()
	assert.ErrorIs(t, err, taglib.ErrNoPicture)
	assert.Equal(t, 44100, reopened.SampleRate())
}

func TestMP4Operations_OnOtherFormats(t *testing.T) {
	t.Parallel()

	for _, format := range []taglib.Format{taglib.FormatMP3, taglib.FormatFLAC} {
		format := format
		t.Run(format.String(), func(t *testing.T) {
			t.Parallel()
			dir := testgen.TempDir(t, "taglib-notmp4-*")
			path := generate(t, dir, format)
			original := testgen.ReadFile(t, path)

			f, err := taglib.Open(path)
			require.NoError(t, err)
			defer f.Close()

			result, err := f.SetItemMP4("KEY", "value")
			assert.ErrorIs(t, err, taglib.ErrNotMP4)
			assert.Equal(t, taglib.ResultSkipped, result)

			result, err = f.StripMP4()
			assert.ErrorIs(t, err, taglib.ErrNotMP4)
			assert.Equal(t, taglib.ResultSkipped, result)

			var formatErr *taglib.FormatError
			require.ErrorAs(t, err, &formatErr)
			assert.Equal(t, "StripMP4", formatErr.Op)
			assert.Equal(t, format, formatErr.Format)

			_, err = f.ItemsMP4()
			assert.ErrorIs(t, err, taglib.ErrNotMP4)

			assert.Equal(t, original, testgen.ReadFile(t, path))
		})
	}
}

func TestSetPicture_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, format := range []taglib.Format{taglib.FormatMP3, taglib.FormatFLAC} {
		format := format
		t.Run(format.String(), func(t *testing.T) {
			t.Parallel()
			dir := testgen.TempDir(t, "taglib-picture-*")
			path := generate(t, dir, format)
			data := testgen.GenerateImage(t, "image/jpeg")

			f, err := taglib.Open(path)
			require.NoError(t, err)
			result, err := f.SetPicture(&taglib.Picture{
				Data:        data,
				Description: "Cover",
				MIMEType:    "image/jpeg",
				PictureType: "Back Cover",
			})
			require.NoError(t, err)
			assert.Equal(t, taglib.ResultApplied, result)
			require.NoError(t, f.Save())
			require.NoError(t, f.Close())

			reopened, err := taglib.Open(path)
			require.NoError(t, err)
			defer reopened.Close()

			pic, err := reopened.Picture()
			require.NoError(t, err)
			assert.Equal(t, data, pic.Data)
			assert.Equal(t, len(data), pic.Size())
			assert.Equal(t, "Cover", pic.Description)
			assert.Equal(t, "image/jpeg", pic.MIMEType)
			assert.Equal(t, "Back Cover", pic.PictureType)
			assert.Equal(t, []string{taglib.PictureProperty}, reopened.ComplexPropertyKeys())
		})
	}
}

func TestSetPicture_MP4(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "taglib-picture-mp4-*")
	path := generate(t, dir, taglib.FormatMP4)
	data := testgen.GenerateImage(t, "image/png")

	f, err := taglib.Open(path)
	require.NoError(t, err)
	// Short type names and a missing MIME type are resolved
	_, err = f.SetPicture(&taglib.Picture{Data: data, Description: "Cover", PictureType: "Front"})
	require.NoError(t, err)
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())

	reopened, err := taglib.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	pic, err := reopened.Picture()
	require.NoError(t, err)
	assert.Equal(t, data, pic.Data)
	assert.Equal(t, "image/png", pic.MIMEType)
	assert.Equal(t, "Front Cover", pic.PictureType)
	// covr keeps no description
	assert.Empty(t, pic.Description)
}

func TestSetPicture_MP4RejectsUnlabeledImage(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "taglib-picture-gif-*")
	gif := testgen.GenerateImage(t, "image/gif")

	f, err := taglib.Open(generate(t, dir, taglib.FormatMP4))
	require.NoError(t, err)
	defer f.Close()

	result, err := f.SetPicture(&taglib.Picture{Data: gif})
	require.ErrorIs(t, err, taglib.ErrUnsupportedImage)
	assert.Equal(t, taglib.ResultSkipped, result)
	_, err = f.Picture()
	assert.ErrorIs(t, err, taglib.ErrNoPicture)

	// FLAC pictures carry their own MIME type
	flacFile, err := taglib.Open(generate(t, dir, taglib.FormatFLAC))
	require.NoError(t, err)
	defer flacFile.Close()

	_, err = flacFile.SetPicture(&taglib.Picture{Data: gif})
	require.NoError(t, err)
	pic, err := flacFile.Picture()
	require.NoError(t, err)
	assert.Equal(t, "image/gif", pic.MIMEType)
}

func TestClearProperties_MP4FreeformItemsAnyCase(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "taglib-clear-mp4-*")
	path := testgen.GenerateM4A(t, dir, "track.m4a", testgen.M4AOptions{
		Title:    "Song",
		Freeform: map[string]string{"label": "Warp"},
		HasCover: true,
	})

	f, err := taglib.Open(path)
	require.NoError(t, err)
	_, err = f.SetItemMP4("initialkey", "8A")
	require.NoError(t, err)

	require.NoError(t, f.ClearProperties())
	assert.Empty(t, f.Properties())
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())

	reopened, err := taglib.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	keys, err := reopened.ItemKeysMP4()
	require.NoError(t, err)
	assert.Empty(t, keys)
	// Pictures are not properties
	_, err = reopened.Picture()
	assert.NoError(t, err)
}

func TestComplexProperty_Unsupported(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "taglib-complex-*")
	path := generate(t, dir, taglib.FormatFLAC)

	f, err := taglib.Open(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.ComplexProperty("GEOB")
	assert.ErrorIs(t, err, taglib.ErrUnsupportedProperty)
	assert.ErrorIs(t, f.SetComplexProperty("GEOB", nil), taglib.ErrUnsupportedProperty)

	values, err := f.ComplexProperty("picture")
	require.NoError(t, err)
	assert.Empty(t, values)
	assert.Nil(t, f.ComplexPropertyKeys())
}

func TestSetProperty_AllFormats(t *testing.T) {
	t.Parallel()

	for _, format := range allFormats {
		format := format
		t.Run(format.String(), func(t *testing.T) {
			t.Parallel()
			dir := testgen.TempDir(t, "taglib-props-*")
			path := generate(t, dir, format)

			f, err := taglib.Open(path)
			require.NoError(t, err)

			require.NoError(t, f.ClearProperties())
			for key, value := range map[string]string{
				"TITLE":         "New Title",
				"ALBUM":         "Album",
				"ISRC":          "USRC17607839",
				"CATALOGNUMBER": "CAT-1",
			} {
				result, err := f.SetProperty(key, value)
				require.NoError(t, err)
				assert.Equal(t, taglib.ResultApplied, result)
			}
			require.NoError(t, f.Save(taglib.WithBackup(".orig")))
			require.NoError(t, f.Close())

			assert.True(t, testgen.FileExists(path+".orig"))

			reopened, err := taglib.Open(path)
			require.NoError(t, err)
			defer reopened.Close()

			assert.Equal(t, map[string][]string{
				"TITLE":         {"New Title"},
				"ALBUM":         {"Album"},
				"ISRC":          {"USRC17607839"},
				"CATALOGNUMBER": {"CAT-1"},
			}, reopened.Properties())
			assert.Equal(t, []string{"ALBUM", "CATALOGNUMBER", "ISRC", "TITLE"}, reopened.PropertyKeys())
		})
	}
}

func TestClose_Twice(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "taglib-close-*")
	path := generate(t, dir, taglib.FormatMP3)

	f, err := taglib.Open(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.SetProperty("TITLE", "x")
	assert.ErrorIs(t, err, taglib.ErrClosed)
}
