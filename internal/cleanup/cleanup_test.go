package cleanup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mediafetch/api/internal/model"
	"github.com/mediafetch/api/internal/store"
)

type fakeRetentionRepo struct {
	mu      sync.Mutex
	expired []model.MediaFile
	deleted []string
	listErr error
	delErr  map[string]error
}

func (r *fakeRetentionRepo) ListOlderThan(time.Time) ([]model.MediaFile, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.expired, nil
}

func (r *fakeRetentionRepo) Delete(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.delErr[filename]; err != nil {
		return err
	}
	r.deleted = append(r.deleted, filename)
	return nil
}

func newSweeperFixture(t *testing.T, repo *fakeRetentionRepo) (*Sweeper, *store.Store) {
	t.Helper()

	st, err := store.NewStore(t.TempDir())
	require.NoError(t, err)

	return NewSweeper(st, repo, 24*time.Hour), st
}

func writeArtifact(t *testing.T, st *store.Store, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(st.Dir(), name), []byte("x"), 0o644))
}

func TestSweepRemovesExpiredArtifacts(t *testing.T) {
	old1 := store.GenerateFilename(".mp3")
	old2 := store.GenerateFilename(".mp4")

	repo := &fakeRetentionRepo{expired: []model.MediaFile{
		{Filename: old1},
		{Filename: old2},
	}}
	sweeper, st := newSweeperFixture(t, repo)

	writeArtifact(t, st, old1)
	writeArtifact(t, st, old2)
	fresh := store.GenerateFilename(".mp3")
	writeArtifact(t, st, fresh)

	require.Equal(t, 2, sweeper.Sweep())

	require.False(t, st.Exists(old1))
	require.False(t, st.Exists(old2))
	require.True(t, st.Exists(fresh))
	require.ElementsMatch(t, []string{old1, old2}, repo.deleted)
}

func TestSweepHandlesMissingFile(t *testing.T) {
	// Row exists but the file is already gone; the row is still cleaned up.
	gone := store.GenerateFilename(".mp3")
	repo := &fakeRetentionRepo{expired: []model.MediaFile{{Filename: gone}}}
	sweeper, _ := newSweeperFixture(t, repo)

	require.Equal(t, 1, sweeper.Sweep())
	require.Equal(t, []string{gone}, repo.deleted)
}

func TestSweepListFailure(t *testing.T) {
	repo := &fakeRetentionRepo{listErr: errors.New("db locked")}
	sweeper, _ := newSweeperFixture(t, repo)

	require.Equal(t, 0, sweeper.Sweep())
}

func TestSweepKeepsRowWhenDeleteFails(t *testing.T) {
	ok := store.GenerateFilename(".mp3")
	bad := store.GenerateFilename(".mp3")

	repo := &fakeRetentionRepo{
		expired: []model.MediaFile{{Filename: bad}, {Filename: ok}},
		delErr:  map[string]error{bad: errors.New("db locked")},
	}
	sweeper, st := newSweeperFixture(t, repo)
	writeArtifact(t, st, ok)
	writeArtifact(t, st, bad)

	require.Equal(t, 1, sweeper.Sweep())
	require.Equal(t, []string{ok}, repo.deleted)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	repo := &fakeRetentionRepo{}
	sweeper, _ := newSweeperFixture(t, repo)
	sweeper.interval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
