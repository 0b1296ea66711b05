package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mediafetch/api/internal/fetch"
	"github.com/mediafetch/api/internal/model"
)

// processBatch runs the playlist iteration contract over an explicit URL
// list. Every member gets a SubItemResult, failures included; successes are
// optionally filed into the caller's destination folder.
func (w *MediaWorker) processBatch(ctx context.Context, taskID string, urls []string, opts model.MediaOptions) (*model.BatchResult, error) {
	start := time.Now()

	total := len(urls)

	w.progress(ctx, taskID, model.Progress{
		Stage:     model.StageIterating,
		Percent:   0,
		Message:   fmt.Sprintf("Starting download of %d URLs...", total),
		Iteration: &model.IterationProgress{Total: total},
	})

	var (
		results   []model.SubItemResult
		completed int
		failed    int
	)

	for i, url := range urls {
		w.progress(ctx, taskID, model.Progress{
			Stage:   model.StageIterating,
			Percent: i * 100 / total,
			Message: fmt.Sprintf("Processing URL %d/%d", i+1, total),
			Iteration: &model.IterationProgress{
				Completed: completed,
				Failed:    failed,
				Total:     total,
				Current:   i + 1,
			},
		})

		item, err := w.processBatchItem(ctx, taskID, i, url, opts)
		if err != nil {
			failed++
			log.Printf("[%s] Batch URL %d/%d failed (%s): %v", taskID, i+1, total, url, err)
			results = append(results, model.SubItemResult{
				URL:    url,
				Status: model.SubItemFailed,
				Error:  err.Error(),
			})
			continue
		}

		completed++
		results = append(results, *item)
		log.Printf("[%s] Batch URL %d/%d done", taskID, i+1, total)
	}

	if completed == 0 {
		return nil, fmt.Errorf("%w: all %d URLs failed", ErrNoItemProcessed, total)
	}

	return &model.BatchResult{
		Batch:       true,
		TotalURLs:   total,
		Completed:   completed,
		Failed:      failed,
		Results:     results,
		TimeSpend:   elapsed(start),
		SuccessRate: float64(completed*1000/total) / 10,
	}, nil
}

func (w *MediaWorker) processBatchItem(ctx context.Context, taskID string, index int, url string, opts model.MediaOptions) (*model.SubItemResult, error) {
	prefix := fmt.Sprintf("batch_%s_%d_%s", taskID, index, randSuffix())

	meta, err := w.fetcher.Fetch(ctx, fetch.Request{
		Source:       url,
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

	if opts.FolderID != "" {
		if err := w.repo.MoveToFolder(artifact.Filename, opts.FolderID); err != nil {
			// Filing is a convenience; the artifact itself is already safe.
			log.Printf("[%s] Failed to file %s into folder %s: %v", taskID, artifact.Filename, opts.FolderID, err)
		}
	}

	return &model.SubItemResult{
		URL:         url,
		Status:      model.SubItemSuccess,
		Filename:    artifact.Filename,
		Title:       meta.Title,
		DownloadURL: w.downloadURL(artifact.Filename),
		Duration:    meta.DurationString,
		Uploader:    meta.Uploader,
	}, nil
}
