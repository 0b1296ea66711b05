package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mediafetch/api/internal/fetch"
	"github.com/mediafetch/api/internal/model"
)

// ErrNoItemProcessed terminates a playlist/batch task that produced nothing.
var ErrNoItemProcessed = errors.New("no item could be processed")

// processPlaylist enumerates a collection without downloading, then runs the
// single-item algorithm for each member strictly in discovery order. A failed
// member is recorded and the loop continues; the task fails only when every
// member failed or the collection could not be enumerated at all.
func (w *MediaWorker) processPlaylist(ctx context.Context, taskID, input string, opts model.MediaOptions) (*model.PlaylistResult, error) {
	start := time.Now()

	w.progress(ctx, taskID, model.Progress{
		Stage:   model.StageExtracting,
		Percent: 5,
		Message: "Extracting playlist information...",
	})

	pl, err := w.fetcher.Enumerate(ctx, input, w.playlistMax)
	if err != nil {
		return nil, err
	}

	total := len(pl.Entries)
	log.Printf("[%s] Playlist with %d videos found", taskID, total)

	w.progress(ctx, taskID, model.Progress{
		Stage:     model.StageIterating,
		Percent:   10,
		Message:   fmt.Sprintf("Downloading %d videos...", total),
		Iteration: &model.IterationProgress{Total: total},
	})

	var (
		videos    []model.SubItemResult
		completed int
		failed    int
	)

	for i, entry := range pl.Entries {
		// 10% for extraction, 90% spread across the downloads.
		percent := 10 + i*90/total

		title := entry.Title
		if title == "" {
			title = fmt.Sprintf("Video %d", i+1)
		}

		w.progress(ctx, taskID, model.Progress{
			Stage:   model.StageIterating,
			Percent: percent,
			Message: "Downloading: " + title,
			Iteration: &model.IterationProgress{
				Completed:    completed,
				Failed:       failed,
				Total:        total,
				Current:      i + 1,
				CurrentTitle: title,
			},
		})

		item, err := w.processPlaylistItem(ctx, taskID, i, entry, opts)
		if err != nil {
			failed++
			log.Printf("[%s] Playlist item %d/%d failed: %v", taskID, i+1, total, err)
			continue
		}

		completed++
		videos = append(videos, *item)
		log.Printf("[%s] Playlist item %d/%d done: %s", taskID, i+1, total, item.Filename)
	}

	if completed == 0 {
		return nil, fmt.Errorf("%w: all %d playlist items failed", ErrNoItemProcessed, total)
	}

	return &model.PlaylistResult{
		Playlist:       true,
		PlaylistTitle:  pl.Title,
		PlaylistCount:  completed,
		Videos:         videos,
		DownloadURL:    videos[0].DownloadURL,
		Title:          fmt.Sprintf("%s (%d videos)", pl.Title, completed),
		Uploader:       pl.Uploader,
		Thumbnail:      pl.Thumbnail,
		DurationString: fmt.Sprintf("%d videos", completed),
		WebpageURL:     input,
		TimeSpend:      elapsed(start),
	}, nil
}

func (w *MediaWorker) processPlaylistItem(ctx context.Context, taskID string, index int, entry fetch.PlaylistEntry, opts model.MediaOptions) (*model.SubItemResult, error) {
	prefix := fmt.Sprintf("playlist_%s_%d_%s", taskID, index, randSuffix())

	meta, err := w.fetcher.Fetch(ctx, fetch.Request{
		Source:       entry.URL,
		Kind:         opts.Kind,
		Quality:      opts.Quality,
		Bitrate:      opts.Bitrate,
		OutputDir:    w.store.Dir(),
		OutputPrefix: prefix,
	})
	if err != nil {
		return nil, err
	}

	artifact, err := w.store.Finalize(prefix, opts.Kind.Extension())
	if err != nil {
		return nil, err
	}

	if err := w.recordMetadata(artifact, meta, opts.Kind); err != nil {
		return nil, fmt.Errorf("record metadata: %w", err)
	}

	return &model.SubItemResult{
		URL:         entry.URL,
		Status:      model.SubItemSuccess,
		Filename:    artifact.Filename,
		Title:       meta.Title,
		DownloadURL: w.downloadURL(artifact.Filename),
		Duration:    meta.DurationString,
		Uploader:    meta.Uploader,
	}, nil
}
