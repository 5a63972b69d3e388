// Package media runs download, probe, transform and upload jobs for
// Telegram attachments and guarantees their temporary files are removed.
package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mnbots/mnbot/types"
)

// Job owns every file it creates under its own directory.
type Job struct {
	ID  uuid.UUID
	Dir string

	mu         sync.Mutex
	sourcePath string
	derived    []string
	status     types.JobStatus
	reason     string
	cleaned    bool
	log        zerolog.Logger
}

// NewJob creates a private directory under workDir named after a fresh job ID.
func NewJob(workDir string, log zerolog.Logger) (*Job, error) {
	id := uuid.New()
	dir := filepath.Join(workDir, id.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create job dir: %w", err)
	}
	return &Job{
		ID:     id,
		Dir:    dir,
		status: types.JobDownloading,
		log:    log.With().Str("job", id.String()).Logger(),
	}, nil
}

// Path returns a path inside the job directory and tracks it for cleanup.
func (j *Job) Path(name string) string {
	p := filepath.Join(j.Dir, filepath.Base(name))
	j.Track(p)
	return p
}

// SourcePath returns the first downloaded input.
func (j *Job) SourcePath() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sourcePath
}

func (j *Job) setSource(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.sourcePath == "" {
		j.sourcePath = path
	}
}

// Track records path for removal by Cleanup. Duplicates are ignored.
func (j *Job) Track(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, p := range j.derived {
		if p == path {
			return
		}
	}
	j.derived = append(j.derived, path)
}

func (j *Job) DerivedPaths() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.derived...)
}

// SetStatus moves the job forward. Terminal states are final.
func (j *Job) SetStatus(status types.JobStatus, reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.status = status
	j.reason = reason
}

func (j *Job) Status() (types.JobStatus, string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status, j.reason
}

// Cleanup removes every tracked path and then the job directory. Only the
// first call does any work. Failures are logged, never returned.
func (j *Job) Cleanup() {
	j.mu.Lock()
	if j.cleaned {
		j.mu.Unlock()
		return
	}
	j.cleaned = true
	paths := append([]string(nil), j.derived...)
	j.mu.Unlock()

	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			j.log.Error().Err(err).Str("path", p).Msg("cleanup failed")
			continue
		}
	}
	if err := os.RemoveAll(j.Dir); err != nil {
		j.log.Error().Err(err).Str("dir", j.Dir).Msg("cleanup of job dir failed")
	}
	j.log.Debug().Int("files", len(paths)).Msg("job cleaned up")
}
