package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oshokin/outage-watch/internal/config"
	"github.com/oshokin/outage-watch/internal/domain/outage"
)

// Repository defines persistence operations for the watcher state.
type Repository interface {
	LoadHistory(ctx context.Context) (outage.History, error)
	SaveHistory(ctx context.Context, history outage.History) error
	LoadRendered(ctx context.Context) (outage.Rendered, error)
	SaveRendered(ctx context.Context, rendered outage.Rendered) error
}

// FileRepository persists the history and the rendered messages as two JSON files.
type FileRepository struct {
	// historyPath is the filesystem location of the history JSON.
	historyPath string
	// renderedPath is the filesystem location of the rendered messages JSON.
	renderedPath string
	// location is the zone the stored clocks are written in.
	location *time.Location
	// now dates events stored with a bare detection clock.
	now func() time.Time
	// mu serializes file access.
	mu sync.Mutex
}

// Option configures a FileRepository.
type Option func(*FileRepository)

// WithLocation sets the zone used to date events stored without a full timestamp.
func WithLocation(loc *time.Location) Option {
	return func(r *FileRepository) {
		if loc != nil {
			r.location = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *FileRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// ErrNotFound is returned when a state file does not exist yet.
var ErrNotFound = errors.New("state not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided paths.
func NewFileRepository(historyPath, renderedPath string, opts ...Option) *FileRepository {
	r := &FileRepository{
		historyPath:  filepath.Clean(historyPath),
		renderedPath: filepath.Clean(renderedPath),
		location:     time.Local,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// LoadHistory reads the event history from disk.
func (r *FileRepository) LoadHistory(_ context.Context) (outage.History, error) {
	history := outage.NewHistory()
	if err := r.load(r.historyPath, &history); err != nil {
		return nil, err
	}

	if history == nil {
		history = outage.NewHistory()
	}

	// A null timeline in the file is the same as no timeline.
	for address, timeline := range history {
		if timeline == nil {
			delete(history, address)
		}
	}

	history.Settle(r.location, r.now())

	return history, nil
}

// SaveHistory atomically replaces the history file.
func (r *FileRepository) SaveHistory(_ context.Context, history outage.History) error {
	if history == nil {
		history = outage.NewHistory()
	}

	return r.save(r.historyPath, history)
}

// LoadRendered reads the last sent messages from disk.
func (r *FileRepository) LoadRendered(_ context.Context) (outage.Rendered, error) {
	rendered := outage.NewRendered()
	if err := r.load(r.renderedPath, &rendered); err != nil {
		return nil, err
	}

	if rendered == nil {
		rendered = outage.NewRendered()
	}

	return rendered, nil
}

// SaveRendered atomically replaces the rendered messages file.
func (r *FileRepository) SaveRendered(_ context.Context, rendered outage.Rendered) error {
	if rendered == nil {
		rendered = outage.NewRendered()
	}

	return r.save(r.renderedPath, rendered)
}

// load decodes the JSON file at path into out.
func (r *FileRepository) load(path string, out any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}

		return fmt.Errorf("read state file: %w", err)
	}

	if err = json.Unmarshal(contents, out); err != nil {
		return fmt.Errorf("decode state file %s: %w", path, err)
	}

	return nil
}

// save writes value to a temporary sibling of path, syncs it and renames it over path.
func (r *FileRepository) save(path string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary state file: %w", err)
	}

	tmpPath := tmp.Name()

	// Remove the temporary file unless it was renamed into place.
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write temporary state file: %w", err)
	}

	if err = tmp.Chmod(config.DefaultFilePermissions); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("chmod temporary state file: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("sync temporary state file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temporary state file: %w", err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	committed = true

	return nil
}
