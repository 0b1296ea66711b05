package store

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/mediafetch/api/internal/model"
)

// ErrArtifactNotFound means no produced file matched the temp prefix: the
// upstream fetch silently produced nothing (wrong output-template match).
var ErrArtifactNotFound = errors.New("artifact not found")

// Artifact is a finalized output file. Its name is always freshly generated,
// never derived from user input.
type Artifact struct {
	Filename string
	Path     string
	Size     int64
}

// SizeMB returns the artifact size in megabytes, rounded to two decimals.
func (a *Artifact) SizeMB() float64 {
	return float64(int64(float64(a.Size)/(1024*1024)*100)) / 100
}

// Repository persists artifact metadata for later listing. Implemented by
// the sqlite sub-package.
type Repository interface {
	Save(file *model.MediaFile) error
	List(limit int) ([]model.MediaFile, error)
	MoveToFolder(filename, folderID string) error
	Delete(filename string) error
}

// Store owns the shared artifact directory. Uniqueness of generated names and
// temp prefixes is the only mutual-exclusion mechanism: no two tasks ever
// target the same filename, so no locks are taken.
type Store struct {
	dir string
}

// NewStore creates the artifact directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the artifact directory path.
func (s *Store) Dir() string { return s.dir }

// Path returns the absolute path of a finalized artifact.
func (s *Store) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// Finalize locates the single non-sidecar file whose name starts with prefix,
// renames it to a freshly generated name with the expected extension, and
// returns the artifact with its size taken at rename time.
//
// The glob exists because the fetch adapter's output template hands naming to
// the external tool; the extension chosen post-transcode is not predictable,
// so the actual file has to be discovered rather than assumed.
func (s *Store) Finalize(prefix, ext string) (*Artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read artifact dir: %w", err)
	}

	var found string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if isSidecar(name) {
			continue
		}
		found = name
		break
	}
	if found == "" {
		return nil, fmt.Errorf("%w: no file with prefix %q", ErrArtifactNotFound, prefix)
	}

	filename := GenerateFilename(ext)
	finalPath := filepath.Join(s.dir, filename)
	if err := os.Rename(filepath.Join(s.dir, found), finalPath); err != nil {
		return nil, fmt.Errorf("finalize artifact: %w", err)
	}

	fi, err := os.Stat(finalPath)
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	return &Artifact{Filename: filename, Path: finalPath, Size: fi.Size()}, nil
}

// Exists reports whether a finalized artifact is still on disk.
func (s *Store) Exists(filename string) bool {
	_, err := os.Stat(filepath.Join(s.dir, filename))
	return err == nil
}

// Remove deletes a finalized artifact from disk. Missing files are not an
// error so reconciliation sweeps can retry safely.
func (s *Store) Remove(filename string) error {
	err := os.Remove(filepath.Join(s.dir, filename))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// DiscardPrefix removes any leftover temp files for a prefix. Used when a
// fetch succeeded on disk but the task failed later on.
func (s *Store) DiscardPrefix(prefix string) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			_ = os.Remove(filepath.Join(s.dir, entry.Name()))
		}
	}
}

// GenerateFilename returns a collision-resistant artifact name: 32 hex chars
// plus the expected extension.
func GenerateFilename(ext string) string {
	u := uuid.New()
	return hex.EncodeToString(u[:]) + ext
}

var filenamePattern = regexp.MustCompile(`^[0-9a-f]{32}\.[a-z0-9]{2,4}$`)

// ValidFilename reports whether name matches the generated-name shape. The
// download endpoint rejects anything else, which also rules out traversal.
func ValidFilename(name string) bool {
	return filenamePattern.MatchString(name)
}

func isSidecar(name string) bool {
	return strings.HasSuffix(name, ".json") ||
		strings.HasSuffix(name, ".part") ||
		strings.HasSuffix(name, ".ytdl")
}
