package cleanup

import (
	"context"
	"log"
	"time"

	"github.com/mediafetch/api/internal/model"
	"github.com/mediafetch/api/internal/store"
)

// RetentionRepository lists and deletes expired metadata rows.
type RetentionRepository interface {
	ListOlderThan(cutoff time.Time) ([]model.MediaFile, error)
	Delete(filename string) error
}

// Sweeper removes artifacts past the retention window from disk and from the
// metadata repository. It reconciles through the store's Exists/Remove, never
// touching in-flight temp files (those carry task prefixes, not final names).
type Sweeper struct {
	store    *store.Store
	repo     RetentionRepository
	maxAge   time.Duration
	interval time.Duration
}

func NewSweeper(st *store.Store, repo RetentionRepository, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		store:    st,
		repo:     repo,
		maxAge:   maxAge,
		interval: time.Hour,
	}
}

// Run sweeps once immediately, then on every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep removes all expired artifacts and returns how many were deleted.
func (s *Sweeper) Sweep() int {
	cutoff := time.Now().Add(-s.maxAge)

	files, err := s.repo.ListOlderThan(cutoff)
	if err != nil {
		log.Printf("Cleanup: failed to list expired files: %v", err)
		return 0
	}

	removed := 0
	for _, f := range files {
		if s.store.Exists(f.Filename) {
			if err := s.store.Remove(f.Filename); err != nil {
				log.Printf("Cleanup: failed to remove %s: %v", f.Filename, err)
				continue
			}
		}
		if err := s.repo.Delete(f.Filename); err != nil {
			log.Printf("Cleanup: failed to delete record %s: %v", f.Filename, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("Cleanup: removed %d expired artifacts", removed)
	}

	return removed
}
