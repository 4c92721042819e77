// Package tree maintains a snapshot of the watched project: the file listing
// shipped with error reports and the trail of recently modified files.
package tree

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vietddude/remedy/internal/core/domain"
)

// maxTreeEntries bounds the snapshot shipped with each report.
const maxTreeEntries = 1000

// Store tracks the project file tree and recent modifications.
type Store struct {
	root   string
	ignore []string
	log    *slog.Logger

	mu      sync.RWMutex
	files   map[string]struct{}
	changes map[string]domain.FileChange

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a store rooted at the given directory. Ignored names are
// matched against any path segment.
func NewStore(root string, ignore []string) *Store {
	if len(ignore) == 0 {
		ignore = []string{".git", "node_modules", "dist", "build", ".next", "__pycache__"}
	}
	return &Store{
		root:    root,
		ignore:  ignore,
		log:     slog.Default(),
		files:   make(map[string]struct{}),
		changes: make(map[string]domain.FileChange),
		done:    make(chan struct{}),
	}
}

// Scan walks the root and rebuilds the file listing.
func (s *Store) Scan() error {
	files := make(map[string]struct{})
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if s.ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			files[rel] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.files = files
	s.mu.Unlock()
	return nil
}

// Start begins watching the root for changes. Scan is called first so the
// tree is populated even before the first event.
func (s *Store) Start(ctx context.Context) error {
	if err := s.Scan(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch every non-ignored directory; fsnotify is not recursive.
	_ = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		if rel != "." && s.ignored(rel) {
			return filepath.SkipDir
		}
		if addErr := watcher.Add(path); addErr != nil {
			s.log.Debug("Failed to watch directory", "path", path, "error", addErr)
		}
		return nil
	})

	go s.loop(ctx)
	return nil
}

// Stop terminates the watch loop.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.watcher != nil {
			_ = s.watcher.Close()
		}
	})
}

func (s *Store) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("File watcher error", "error", err)
		}
	}
}

func (s *Store) handleEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(s.root, ev.Name)
	if err != nil || s.ignored(rel) {
		return
	}

	switch {
	case ev.Op.Has(fsnotify.Create):
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			if addErr := s.watcher.Add(ev.Name); addErr != nil {
				s.log.Debug("Failed to watch directory", "path", ev.Name, "error", addErr)
			}
			return
		}
		s.record(rel, domain.ActionCreated)
	case ev.Op.Has(fsnotify.Write):
		s.record(rel, domain.ActionUpdated)
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		s.record(rel, domain.ActionDeleted)
	}
}

func (s *Store) record(rel string, action domain.ChangeAction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch action {
	case domain.ActionDeleted:
		delete(s.files, rel)
	default:
		s.files[rel] = struct{}{}
	}
	s.changes[rel] = domain.FileChange{
		Path:      rel,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// FileTree returns a sorted snapshot of tracked files.
func (s *Store) FileTree() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.files))
	for f := range s.files {
		out = append(out, f)
	}
	sort.Strings(out)
	if len(out) > maxTreeEntries {
		out = out[:maxTreeEntries]
	}
	return out
}

// RecentlyModified returns changes newer than maxAge, dropping stale entries.
func (s *Store) RecentlyModified(maxAge time.Duration) []domain.FileChange {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.FileChange
	for path, ch := range s.changes {
		if ch.Timestamp.Before(cutoff) {
			delete(s.changes, path)
			continue
		}
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func (s *Store) ignored(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, ig := range s.ignore {
			if seg == ig {
				return true
			}
			if matched, _ := filepath.Match(ig, seg); matched {
				return true
			}
		}
	}
	return false
}
