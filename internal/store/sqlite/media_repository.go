package sqlite

import (
	"database/sql"
	"time"

	"github.com/mediafetch/api/internal/model"
)

// MediaRepository persists artifact metadata rows.
type MediaRepository struct {
	db *sql.DB
}

func NewMediaRepository(dbConn *sql.DB) *MediaRepository {
	return &MediaRepository{db: dbConn}
}

// Save inserts one metadata row. Independent of the filesystem rename; safe
// to retry because filename is unique per artifact.
func (r *MediaRepository) Save(file *model.MediaFile) error {
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(`
		INSERT INTO media_files (filename, title, uploader, media_type, size_mb, duration, webpage_url, thumbnail, upload_date, folder_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO NOTHING
	`, file.Filename, file.Title, file.Uploader, string(file.MediaType), file.SizeMB,
		file.Duration, file.WebpageURL, file.Thumbnail, file.UploadDate,
		nullable(file.FolderID), file.CreatedAt.Format(time.RFC3339))

	return err
}

// List returns the most recent rows, newest first.
func (r *MediaRepository) List(limit int) ([]model.MediaFile, error) {
	rows, err := r.db.Query(`
		SELECT id, filename, title, uploader, media_type, size_mb, duration, webpage_url, thumbnail, upload_date, folder_id, created_at
		FROM media_files ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFiles(rows)
}

// MoveToFolder files an artifact under a folder after a successful batch item.
func (r *MediaRepository) MoveToFolder(filename, folderID string) error {
	_, err := r.db.Exec(`UPDATE media_files SET folder_id = ? WHERE filename = ?`, folderID, filename)

	return err
}

// ListOlderThan returns rows created before the cutoff, for retention sweeps.
func (r *MediaRepository) ListOlderThan(cutoff time.Time) ([]model.MediaFile, error) {
	rows, err := r.db.Query(`
		SELECT id, filename, title, uploader, media_type, size_mb, duration, webpage_url, thumbnail, upload_date, folder_id, created_at
		FROM media_files WHERE created_at < ?
	`, cutoff.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFiles(rows)
}

// Delete removes one metadata row by filename.
func (r *MediaRepository) Delete(filename string) error {
	_, err := r.db.Exec(`DELETE FROM media_files WHERE filename = ?`, filename)

	return err
}

func scanFiles(rows *sql.Rows) ([]model.MediaFile, error) {
	var files []model.MediaFile

	for rows.Next() {
		var f model.MediaFile

		var mediaType, createdAt string

		var folderID sql.NullString

		err := rows.Scan(&f.ID, &f.Filename, &f.Title, &f.Uploader, &mediaType, &f.SizeMB,
			&f.Duration, &f.WebpageURL, &f.Thumbnail, &f.UploadDate, &folderID, &createdAt)
		if err != nil {
			return nil, err
		}

		f.MediaType = model.MediaKind(mediaType)
		if folderID.Valid {
			f.FolderID = folderID.String
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			f.CreatedAt = t
		}

		files = append(files, f)
	}

	return files, rows.Err()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
