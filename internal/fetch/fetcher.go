package fetch

import (
	"context"
	"fmt"

	"github.com/mediafetch/api/internal/model"
)

// Fetcher wraps the external media-fetch capability. Implementations write
// exactly one media file (plus optional sidecars) into req.OutputDir using
// req.OutputPrefix, so concurrent invocations never collide. The caller
// discovers the produced file through the artifact store because the final
// extension is chosen by the post-processing step and is not known up front.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Metadata, error)
	Enumerate(ctx context.Context, source string, limit int) (*Playlist, error)
}

// Request describes one fetch invocation.
type Request struct {
	Source       string // direct URL or search expression
	Kind         model.MediaKind
	Quality      string // video: vertical resolution cap, e.g. "720p"
	Bitrate      string // audio: kbps, e.g. "192"
	OutputDir    string
	OutputPrefix string // unique per invocation
}

// Metadata is the descriptive record returned alongside a fetched file.
type Metadata struct {
	Title          string
	Uploader       string
	Thumbnail      string
	Description    string
	WebpageURL     string
	UploadDate     string
	DurationString string
	ViewCount      *int64
	LikeCount      *int64
}

// Playlist is the result of enumerating a collection without downloading.
type Playlist struct {
	Title      string
	Uploader   string
	Thumbnail  string
	WebpageURL string
	Entries    []PlaylistEntry
}

// PlaylistEntry is one discovered member of a playlist, in discovery order.
type PlaylistEntry struct {
	ID    string
	URL   string
	Title string
}

// Error signals a failure of the external fetch capability: network errors,
// unavailable sources, or a missing post-processing toolchain.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch: %s", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }
