package youtube

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
)

func TestToCount(t *testing.T) {
	testCases := []struct {
		name  string
		input any
		want  int
	}{
		{name: "int", input: 42, want: 42},
		{name: "int64", input: int64(1234567), want: 1234567},
		{name: "uint32", input: uint32(7), want: 7},
		{name: "float truncates", input: 12.9, want: 12},
		{name: "decimal string", input: "1234567", want: 1234567},
		{name: "string with separators", input: "1,234,567", want: 1234567},
		{name: "string with spaces", input: " 99 ", want: 99},
		{name: "json number", input: json.Number("314"), want: 314},
		{name: "negative", input: -5, want: 0},
		{name: "NaN", input: math.NaN(), want: 0},
		{name: "huge float", input: math.Inf(1), want: math.MaxInt},
		{name: "garbage string", input: "many", want: 0},
		{name: "empty string", input: "", want: 0},
		{name: "nil", input: nil, want: 0},
		{name: "unsupported type", input: []int{1}, want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, toCount(tc.input))
		})
	}
}

func TestContainerFromMime(t *testing.T) {
	assert.Equal(t, "mp4", containerFromMime(`video/mp4; codecs="avc1.42001E, mp4a.40.2"`))
	assert.Equal(t, "webm", containerFromMime(`audio/webm; codecs="opus"`))
	assert.Equal(t, "3gpp", containerFromMime("video/3gpp"))
	assert.Equal(t, "mp4", containerFromMime(""))
	assert.Equal(t, "mp4", containerFromMime("garbage"))
}

func TestNormalizeFormatsAudioDetection(t *testing.T) {
	list := youtube.FormatList{
		{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`},
		{ItagNo: 43, MimeType: `video/webm; codecs="vp8.0, vorbis"`, QualityLabel: "360p", Width: 640},
		{ItagNo: 248, MimeType: `video/webm; codecs="vp9"`, QualityLabel: "1080p", Width: 1920},
	}

	got := normalizeFormats(list)
	byItag := make(map[int]bool)
	for _, f := range got {
		byItag[f.Itag] = f.HasAudio
	}

	assert.True(t, byItag[251], "audio mime type")
	assert.True(t, byItag[43], "audio codec inside a video container")
	assert.False(t, byItag[248])

	// The input list is left untouched.
	assert.Equal(t, 251, list[0].ItagNo)
}

func TestNormalizeVideoWithoutThumbnails(t *testing.T) {
	info := normalizeVideo(&youtube.Video{ID: "abc12345678", Title: "t"})

	assert.Empty(t, info.Thumbnail)
	assert.Zero(t, info.Duration)
	assert.Empty(t, info.Formats)
	assert.NotNil(t, info.Formats)
}
