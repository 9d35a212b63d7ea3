package mp4_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"
	"time"

	"github.com/shishobooks/mediatag/internal/testgen"
	"github.com/shishobooks/mediatag/pkg/mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkData returns the bytes the first stco/co64 entry points at.
func chunkData(t *testing.T, path string) []byte {
	t.Helper()
	data := testgen.ReadFile(t, path)

	var offset uint64
	if i := bytes.Index(data, []byte("stco")); i >= 0 {
		offset = uint64(binary.BigEndian.Uint32(data[i+12:]))
	} else if i := bytes.Index(data, []byte("co64")); i >= 0 {
		offset = binary.BigEndian.Uint64(data[i+12:])
	} else {
		t.Fatalf("no chunk offset box in %s", path)
	}

	end := offset + uint64(len(testgen.M4AChunk))
	require.LessOrEqual(t, end, uint64(len(data)))
	return data[offset:end]
}

func TestRead_BasicMetadata(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "mp4-basic-*")

	path := testgen.GenerateM4A(t, dir, "test.m4a", testgen.M4AOptions{
		Title:       "My Song",
		Artist:      "Some Artist",
		Album:       "An Album",
		TrackNumber: 3,
		TrackTotal:  10,
		Duration:    2.5,
	})

	tag, err := mp4.Read(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"My Song"}, tag.Get("©nam"))
	assert.Equal(t, []string{"Some Artist"}, tag.Get("©ART"))
	assert.Equal(t, []string{"An Album"}, tag.Get("©alb"))
	assert.Equal(t, []string{"3/10"}, tag.Get("trkn"))

	assert.Equal(t, 2500*time.Millisecond, tag.Audio.Duration)
	assert.Equal(t, 44100, tag.Audio.SampleRate)
	assert.Equal(t, 2, tag.Audio.Channels)
	assert.Equal(t, 128, tag.Audio.Bitrate)
	assert.Equal(t, "AAC-LC", tag.Audio.Codec)
}

// TestRead_DataType18Genre covers genre atoms written with data type 18,
// which some taggers use instead of UTF-8.
func TestRead_DataType18Genre(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "mp4-type18-*")

	path := testgen.GenerateM4A(t, dir, "test.m4a", testgen.M4AOptions{
		Title:       "Test Audiobook",
		Genre:       "Fantasy",
		GenreType18: true,
	})

	tag, err := mp4.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fantasy"}, tag.Properties()["GENRE"])
}

func TestRead_FreeformAndCover(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "mp4-freeform-*")

	path := testgen.GenerateM4A(t, dir, "test.m4a", testgen.M4AOptions{
		Freeform:      map[string]string{"replaygain_track_gain": "-6.5 dB"},
		HasCover:      true,
		CoverMimeType: "image/jpeg",
	})

	tag, err := mp4.Read(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"-6.5 dB"}, tag.Get(mp4.FreeformPrefix+"replaygain_track_gain"))
	covers := tag.Covers()
	require.Len(t, covers, 1)
	assert.Equal(t, "image/jpeg", covers[0].MIMEType)
}

func TestRead_QuickTimeMeta(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "mp4-qt-*")

	path := testgen.GenerateM4A(t, dir, "test.m4a", testgen.M4AOptions{
		Title:         "QuickTime",
		QuickTimeMeta: true,
	})

	tag, err := mp4.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"QuickTime"}, tag.Get("©nam"))
}

func TestRead_NotMP4(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "mp4-invalid-*")

	path := testgen.WriteFile(t, dir, "fake.m4a", []byte("this is not an mp4 file at all"))
	_, err := mp4.Read(path)
	require.ErrorIs(t, err, mp4.ErrNotMP4)

	flac := testgen.GenerateFLAC(t, dir, "audio.flac", testgen.FLACOptions{})
	_, err = mp4.Read(flac)
	require.ErrorIs(t, err, mp4.ErrNotMP4)
}

func TestWrite_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts testgen.M4AOptions
	}{
		{"moov before mdat", testgen.M4AOptions{Title: "Old"}},
		{"moov after mdat", testgen.M4AOptions{Title: "Old", MoovAfterMdat: true}},
		{"64-bit chunk offsets", testgen.M4AOptions{Title: "Old", Co64: true}},
		{"no existing metadata", testgen.M4AOptions{NoMetadata: true}},
		{"quicktime meta", testgen.M4AOptions{Title: "Old", QuickTimeMeta: true}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dir := testgen.TempDir(t, "mp4-write-*")
			path := testgen.GenerateM4A(t, dir, "test.m4a", tc.opts)

			tag, err := mp4.Read(path)
			require.NoError(t, err)
			require.NoError(t, tag.Set("©nam", "A considerably longer title than before"))
			require.NoError(t, tag.Set(mp4.FreeformPrefix+"CATALOGNUMBER", "CAT-001"))
			require.NoError(t, mp4.Write(path, tag, mp4.WriteOptions{}))

			reread, err := mp4.Read(path)
			require.NoError(t, err)
			assert.Equal(t, []string{"A considerably longer title than before"}, reread.Get("©nam"))
			assert.Equal(t, []string{"CAT-001"}, reread.Get(mp4.FreeformPrefix+"CATALOGNUMBER"))
			assert.Equal(t, 44100, reread.Audio.SampleRate)

			assert.Equal(t, testgen.M4AChunk, chunkData(t, path))
		})
	}
}

func TestWrite_PreservesUnknownItems(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "mp4-unknown-*")

	path := testgen.GenerateM4A(t, dir, "test.m4a", testgen.M4AOptions{
		Title:    "Song",
		Freeform: map[string]string{"iTunNORM": "0000"},
		HasCover: true,
	})

	tag, err := mp4.Read(path)
	require.NoError(t, err)
	require.NoError(t, tag.Set("©ART", "New Artist"))
	require.NoError(t, mp4.Write(path, tag, mp4.WriteOptions{}))

	reread, err := mp4.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"©nam", "----:com.apple.iTunes:iTunNORM", "covr", "©ART"}, reread.Keys())
	assert.Len(t, reread.Covers(), 1)
}

func TestWrite_Backup(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "mp4-backup-*")

	path := testgen.GenerateM4A(t, dir, "test.m4a", testgen.M4AOptions{Title: "Original"})
	original := testgen.ReadFile(t, path)

	tag, err := mp4.Read(path)
	require.NoError(t, err)
	require.NoError(t, tag.Set("©nam", "Changed"))
	require.NoError(t, mp4.Write(path, tag, mp4.WriteOptions{BackupSuffix: ".bak"}))

	assert.Equal(t, original, testgen.ReadFile(t, path+".bak"))
}

func TestStrip(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "mp4-strip-*")

	path := testgen.GenerateM4A(t, dir, "test.m4a", testgen.M4AOptions{
		Title:    "Song",
		Artist:   "Artist",
		HasCover: true,
	})

	removed, err := mp4.Strip(path, mp4.WriteOptions{})
	require.NoError(t, err)
	assert.True(t, removed)

	tag, err := mp4.Read(path)
	require.NoError(t, err)
	assert.True(t, tag.IsEmpty())
	assert.Equal(t, 44100, tag.Audio.SampleRate)
	assert.Equal(t, testgen.M4AChunk, chunkData(t, path))
	assert.NotContains(t, string(testgen.ReadFile(t, path)), "udta")
}

func TestStrip_NothingToRemove(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "mp4-strip-empty-*")

	path := testgen.GenerateM4A(t, dir, "test.m4a", testgen.M4AOptions{NoMetadata: true})
	before, err := os.Stat(path)
	require.NoError(t, err)
	original := testgen.ReadFile(t, path)

	removed, err := mp4.Strip(path, mp4.WriteOptions{})
	require.NoError(t, err)
	assert.False(t, removed)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
	assert.Equal(t, original, testgen.ReadFile(t, path))
}
