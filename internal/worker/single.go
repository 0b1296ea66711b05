package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/mediafetch/api/internal/fetch"
	"github.com/mediafetch/api/internal/model"
)

// processSingle runs the single-item state machine:
// extracting -> downloading -> processing -> terminal.
func (w *MediaWorker) processSingle(ctx context.Context, taskID, input string, opts model.MediaOptions) (*model.SingleResult, error) {
	start := time.Now()

	w.progress(ctx, taskID, model.Progress{
		Stage:   model.StageExtracting,
		Percent: 10,
		Message: "Extracting media information...",
	})

	prefix := fmt.Sprintf("single_%s_%s", taskID, randSuffix())

	w.progress(ctx, taskID, model.Progress{
		Stage:   model.StageDownloading,
		Percent: 50,
		Message: "Downloading media...",
	})

	meta, err := w.fetcher.Fetch(ctx, fetch.Request{
		Source:       input,
		Kind:         opts.Kind,
		Quality:      opts.Quality,
		Bitrate:      opts.Bitrate,
		OutputDir:    w.store.Dir(),
		OutputPrefix: prefix,
	})
	if err != nil {
		return nil, err
	}

	w.progress(ctx, taskID, model.Progress{
		Stage:   model.StageProcessing,
		Percent: 80,
		Message: "Processing file...",
	})

	artifact, err := w.store.Finalize(prefix, opts.Kind.Extension())
	if err != nil {
		return nil, err
	}

	if err := w.recordMetadata(artifact, meta, opts.Kind); err != nil {
		return nil, fmt.Errorf("record metadata: %w", err)
	}

	return &model.SingleResult{
		Playlist:       false,
		DownloadURL:    w.downloadURL(artifact.Filename),
		Title:          meta.Title,
		Uploader:       meta.Uploader,
		Thumbnail:      meta.Thumbnail,
		DurationString: meta.DurationString,
		WebpageURL:     meta.WebpageURL,
		ViewCount:      meta.ViewCount,
		LikeCount:      meta.LikeCount,
		Description:    meta.Description,
		UploadDate:     meta.UploadDate,
		TimeSpend:      elapsed(start),
	}, nil
}

func elapsed(start time.Time) string {
	return fmt.Sprintf("%ds", int(time.Since(start).Round(time.Second).Seconds()))
}
