package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/remedy/internal/core/domain"
	"github.com/vietddude/remedy/internal/infra/storage"
)

// maxEntries caps retained errors; the oldest entry is evicted on overflow.
const maxEntries = 1000

// ErrorRepo is an in-memory ErrorRepository, used when no database is configured.
type ErrorRepo struct {
	mu     sync.RWMutex
	errors map[string]*domain.ClassifiedError
	order  []string // insertion order, oldest first
	cap    int
}

func NewErrorRepo() *ErrorRepo {
	return &ErrorRepo{
		errors: make(map[string]*domain.ClassifiedError),
		cap:    maxEntries,
	}
}

func (r *ErrorRepo) Save(ctx context.Context, e *domain.ClassifiedError) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.errors[e.ID]; !exists {
		r.order = append(r.order, e.ID)
	}
	cp := *e
	r.errors[e.ID] = &cp
	r.evictLocked()
	return nil
}

// evictLocked drops the oldest entries until the cap holds. Caller holds r.mu.
func (r *ErrorRepo) evictLocked() {
	for len(r.errors) > r.cap && len(r.order) > 0 {
		id := r.order[0]
		r.order = r.order[1:]
		delete(r.errors, id)
	}
}

func (r *ErrorRepo) MarkResolved(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.errors[id]
	if !ok {
		return storage.ErrErrorNotFound
	}
	e.Resolved = true
	return nil
}

func (r *ErrorRepo) MarkAllResolved(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.errors {
		if !e.Resolved {
			e.Resolved = true
			n++
		}
	}
	return n, nil
}

func (r *ErrorRepo) Unresolved(ctx context.Context) ([]*domain.ClassifiedError, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.ClassifiedError
	for _, e := range r.errors {
		if !e.Resolved {
			cp := *e
			out = append(out, &cp)
		}
	}
	// Newest first, matching the Postgres ordering
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (r *ErrorRepo) Counts(ctx context.Context) (map[domain.ErrorSource]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.ErrorSource]int)
	for _, e := range r.errors {
		if !e.Resolved {
			counts[e.Source]++
		}
	}
	return counts, nil
}

func (r *ErrorRepo) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.errors {
		if e.Resolved && e.Timestamp.Before(olderThan) {
			delete(r.errors, id)
			n++
		}
	}
	if n > 0 {
		kept := r.order[:0]
		for _, id := range r.order {
			if _, ok := r.errors[id]; ok {
				kept = append(kept, id)
			}
		}
		r.order = kept
	}
	return n, nil
}
