package router

import (
	"sync"
	"time"

	"github.com/koios/flipdot-renderer/internal/source"
	"github.com/koios/flipdot-renderer/pkg/models"
)

// Registry owns the set of registered sources in registration order. All
// access goes through the mutex; composition works on a Snapshot so a
// concurrent unregister can never tear a playlist.
type Registry struct {
	mu      sync.RWMutex
	sources []*source.Source
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers s. A source with the same id is replaced, and the
// replacement counts as a new registration for ordering.
func (r *Registry) Add(s *source.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(s.ID)
	r.sources = append(r.sources, s)
}

// Remove unregisters a source and reports whether it existed
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) bool {
	for i, s := range r.sources {
		if s.ID == id {
			r.sources = append(r.sources[:i:i], r.sources[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveWhere unregisters every source matching fn and returns their ids
func (r *Registry) RemoveWhere(fn func(*source.Source) bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	kept := r.sources[:0:0]
	for _, s := range r.sources {
		if fn(s) {
			removed = append(removed, s.ID)
			continue
		}
		kept = append(kept, s)
	}
	r.sources = kept
	return removed
}

// EvictExpired removes sources whose expiry is before now
func (r *Registry) EvictExpired(now time.Time) []string {
	return r.RemoveWhere(func(s *source.Source) bool {
		return s.Expired(now)
	})
}

// Get looks up a source by id
func (r *Registry) Get(id string) (*source.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sources {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Snapshot returns the current sources in registration order. The slice is
// a copy; later registry changes do not affect it.
func (r *Registry) Snapshot() []*source.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*source.Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// List returns the public view of every source
func (r *Registry) List() []models.SourceInfo {
	snap := r.Snapshot()
	infos := make([]models.SourceInfo, len(snap))
	for i, s := range snap {
		infos[i] = s.Info()
	}
	return infos
}

// Len returns the number of registered sources
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}
