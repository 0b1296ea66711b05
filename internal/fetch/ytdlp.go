package fetch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/mediafetch/api/internal/model"
)

// YtdlpFetcher drives the yt-dlp binary through go-ytdlp.
type YtdlpFetcher struct {
	cookieFile string
}

// NewYtdlpFetcher creates a fetcher. cookieFile may be empty.
func NewYtdlpFetcher(cookieFile string) *YtdlpFetcher {
	return &YtdlpFetcher{cookieFile: cookieFile}
}

// infoDict is the subset of the yt-dlp info JSON we consume.
type infoDict struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Uploader       string      `json:"uploader"`
	Thumbnail      string      `json:"thumbnail"`
	Description    string      `json:"description"`
	WebpageURL     string      `json:"webpage_url"`
	UploadDate     string      `json:"upload_date"`
	Duration       float64     `json:"duration"`
	DurationString string      `json:"duration_string"`
	ViewCount      *int64      `json:"view_count"`
	LikeCount      *int64      `json:"like_count"`
	URL            string      `json:"url"`
	Entries        []*infoDict `json:"entries"`
}

// Fetch downloads one item and returns its metadata. The produced file lands
// in req.OutputDir under req.OutputPrefix with an extension chosen by the
// post-processor.
func (f *YtdlpFetcher) Fetch(ctx context.Context, req Request) (*Metadata, error) {
	dl := ytdlp.New().
		NoPlaylist().
		PrintJSON().
		Output(filepath.Join(req.OutputDir, req.OutputPrefix+".%(ext)s"))

	if f.cookieFile != "" {
		dl = dl.Cookies(f.cookieFile)
	}

	if req.Kind == model.MediaAudio {
		bitrate := req.Bitrate
		if bitrate == "" {
			bitrate = "192"
		}
		dl = dl.Format("bestaudio/best").
			ExtractAudio().
			AudioFormat("mp3").
			AudioQuality(bitrate)
	} else {
		dl = dl.Format(buildVideoFormat(req.Quality)).
			RecodeVideo("mp4")
	}

	res, err := dl.Run(ctx, normalizeSource(req.Source))
	if err != nil {
		return nil, &Error{Reason: "download failed", Err: err}
	}

	info, err := parseInfoJSON(res.Stdout)
	if err != nil {
		return nil, &Error{Reason: "unreadable metadata", Err: err}
	}

	// A search expression resolves to a one-entry collection.
	if len(info.Entries) > 0 {
		info = info.Entries[0]
	}

	return info.metadata(), nil
}

// Enumerate lists a playlist's members without downloading, capped at limit.
func (f *YtdlpFetcher) Enumerate(ctx context.Context, source string, limit int) (*Playlist, error) {
	dl := ytdlp.New().
		FlatPlaylist().
		PlaylistEnd(limit).
		SkipDownload().
		DumpSingleJSON()

	if f.cookieFile != "" {
		dl = dl.Cookies(f.cookieFile)
	}

	res, err := dl.Run(ctx, source)
	if err != nil {
		return nil, &Error{Reason: "playlist extraction failed", Err: err}
	}

	info, err := parseInfoJSON(res.Stdout)
	if err != nil {
		return nil, &Error{Reason: "unreadable playlist metadata", Err: err}
	}

	if len(info.Entries) == 0 {
		return nil, &Error{Reason: "playlist not found or empty"}
	}

	pl := &Playlist{
		Title:      info.Title,
		Uploader:   info.Uploader,
		Thumbnail:  info.Thumbnail,
		WebpageURL: info.WebpageURL,
	}
	for _, entry := range info.Entries {
		if entry == nil {
			continue
		}
		url := entry.URL
		if url == "" {
			url = "https://www.youtube.com/watch?v=" + entry.ID
		}
		pl.Entries = append(pl.Entries, PlaylistEntry{
			ID:    entry.ID,
			URL:   url,
			Title: entry.Title,
		})
	}

	return pl, nil
}

func (d *infoDict) metadata() *Metadata {
	duration := d.DurationString
	if duration == "" && d.Duration > 0 {
		duration = formatDuration(d.Duration)
	}
	return &Metadata{
		Title:          d.Title,
		Uploader:       d.Uploader,
		Thumbnail:      d.Thumbnail,
		Description:    d.Description,
		WebpageURL:     d.WebpageURL,
		UploadDate:     FormatUploadDate(d.UploadDate),
		DurationString: duration,
		ViewCount:      d.ViewCount,
		LikeCount:      d.LikeCount,
	}
}

// parseInfoJSON extracts the first info dict from yt-dlp's stdout. With
// --print-json the dict shares the stream with progress noise, so scan for
// the first JSON line.
func parseInfoJSON(stdout string) (*infoDict, error) {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var info infoDict
		if err := json.Unmarshal([]byte(line), &info); err != nil {
			continue
		}
		return &info, nil
	}
	return nil, fmt.Errorf("no info JSON in yt-dlp output")
}

// buildVideoFormat returns the yt-dlp format selector for a video fetch,
// capping at the requested vertical resolution when set.
func buildVideoFormat(quality string) string {
	if quality == "" {
		return "bestvideo+bestaudio/best"
	}
	height := strings.TrimSuffix(quality, "p")
	return fmt.Sprintf("bestvideo[height<=%s]+bestaudio/best", height)
}

// normalizeSource turns a bare search expression into a yt-dlp search URL.
func normalizeSource(source string) string {
	if strings.Contains(source, "://") {
		return source
	}
	return "ytsearch1:" + source
}

// FormatUploadDate converts yt-dlp's YYYYMMDD into DD/MM/YYYY, passing
// through anything it cannot parse.
func FormatUploadDate(raw string) string {
	if raw == "" {
		return "N/A"
	}
	t, err := time.Parse("20060102", raw)
	if err != nil {
		return raw
	}
	return t.Format("02/01/2006")
}

func formatDuration(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
