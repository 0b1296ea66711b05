package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mediafetch/api/internal/model"
)

func newTestRepo(t *testing.T) *MediaRepository {
	t.Helper()

	db, err := InitDB(filepath.Join(t.TempDir(), "media.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewMediaRepository(db)
}

func mediaFile(filename string, createdAt time.Time) *model.MediaFile {
	return &model.MediaFile{
		Filename:   filename,
		Title:      "Title of " + filename,
		Uploader:   "uploader",
		MediaType:  model.MediaAudio,
		SizeMB:     3.5,
		Duration:   "3:05",
		WebpageURL: "https://example.com/" + filename,
		CreatedAt:  createdAt,
	}
}

func TestSaveAndList(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Now()
	require.NoError(t, repo.Save(mediaFile("aa.mp3", now.Add(-2*time.Hour))))
	require.NoError(t, repo.Save(mediaFile("bb.mp3", now.Add(-1*time.Hour))))
	require.NoError(t, repo.Save(mediaFile("cc.mp3", now)))

	files, err := repo.List(10)
	require.NoError(t, err)
	require.Len(t, files, 3)

	// Newest first.
	require.Equal(t, "cc.mp3", files[0].Filename)
	require.Equal(t, "aa.mp3", files[2].Filename)
	require.Equal(t, model.MediaAudio, files[0].MediaType)
	require.InDelta(t, 3.5, files[0].SizeMB, 0.001)
}

func TestListRespectsLimit(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Now()
	for i, name := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		require.NoError(t, repo.Save(mediaFile(name, now.Add(time.Duration(i)*time.Minute))))
	}

	files, err := repo.List(2)
	require.NoError(t, err)
	require.Len(t, files, 2)
}

func TestSaveDuplicateFilenameIsNoop(t *testing.T) {
	repo := newTestRepo(t)

	first := mediaFile("aa.mp3", time.Now())
	require.NoError(t, repo.Save(first))

	dup := mediaFile("aa.mp3", time.Now())
	dup.Title = "different title"
	require.NoError(t, repo.Save(dup))

	files, err := repo.List(10)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, first.Title, files[0].Title)
}

func TestMoveToFolder(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Save(mediaFile("aa.mp3", time.Now())))
	require.NoError(t, repo.MoveToFolder("aa.mp3", "folder-9"))

	files, err := repo.List(10)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "folder-9", files[0].FolderID)
}

func TestListOlderThanAndDelete(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Now()
	require.NoError(t, repo.Save(mediaFile("old.mp3", now.Add(-48*time.Hour))))
	require.NoError(t, repo.Save(mediaFile("new.mp3", now)))

	expired, err := repo.ListOlderThan(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, "old.mp3", expired[0].Filename)

	require.NoError(t, repo.Delete("old.mp3"))

	files, err := repo.List(10)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "new.mp3", files[0].Filename)
}
