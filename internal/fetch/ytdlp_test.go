package fetch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildVideoFormat(t *testing.T) {
	tests := []struct {
		quality string
		want    string
	}{
		{"", "bestvideo+bestaudio/best"},
		{"720p", "bestvideo[height<=720]+bestaudio/best"},
		{"1080p", "bestvideo[height<=1080]+bestaudio/best"},
		{"144p", "bestvideo[height<=144]+bestaudio/best"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, buildVideoFormat(tt.quality), "quality %q", tt.quality)
	}
}

func TestNormalizeSource(t *testing.T) {
	require.Equal(t, "https://example.com/watch?v=a", normalizeSource("https://example.com/watch?v=a"))
	require.Equal(t, "ytsearch1:rick astley never gonna", normalizeSource("rick astley never gonna"))
}

func TestFormatUploadDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"20240115", "15/01/2024"},
		{"19991231", "31/12/1999"},
		{"", "N/A"},
		{"not-a-date", "not-a-date"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, FormatUploadDate(tt.raw))
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{59, "0:59"},
		{185, "3:05"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, formatDuration(tt.seconds))
	}
}

func TestParseInfoJSONSkipsProgressNoise(t *testing.T) {
	stdout := "[youtube] Extracting URL\n" +
		"[download] Destination: /tmp/x.webm\n" +
		`{"id":"abc","title":"A Title","uploader":"someone","duration_string":"3:05","webpage_url":"https://example.com/watch?v=abc"}` + "\n" +
		"[ExtractAudio] Destination: /tmp/x.mp3\n"

	info, err := parseInfoJSON(stdout)
	require.NoError(t, err)
	require.Equal(t, "abc", info.ID)
	require.Equal(t, "A Title", info.Title)
	require.Equal(t, "3:05", info.DurationString)
}

func TestParseInfoJSONNoDict(t *testing.T) {
	_, err := parseInfoJSON("[youtube] nothing useful here\n")
	require.Error(t, err)
}

func TestParseInfoJSONPlaylistEntries(t *testing.T) {
	stdout := `{"id":"pl","title":"My Playlist","entries":[{"id":"v1","title":"One","url":"https://example.com/1"},{"id":"v2","title":"Two"}]}`

	info, err := parseInfoJSON(stdout)
	require.NoError(t, err)
	require.Len(t, info.Entries, 2)
	require.Equal(t, "v1", info.Entries[0].ID)
	require.Equal(t, "Two", info.Entries[1].Title)
}

func TestMetadataFallsBackToNumericDuration(t *testing.T) {
	info := &infoDict{Title: "x", Duration: 185}

	meta := info.metadata()
	require.Equal(t, "3:05", meta.DurationString)
	require.Equal(t, "N/A", meta.UploadDate)
}

func TestErrorUnwraps(t *testing.T) {
	inner := &Error{Reason: "download failed"}
	require.Contains(t, inner.Error(), "download failed")

	wrapped := &Error{Reason: "outer", Err: inner}
	require.ErrorIs(t, wrapped, inner)
	require.Contains(t, wrapped.Error(), "outer")
}
