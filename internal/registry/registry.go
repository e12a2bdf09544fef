// Package registry holds the in-memory mapping from recording id to
// recording record. It is the only long-lived mutable singleton inside
// the core, owned by the recorder service.
package registry

import (
	"fmt"
	"sync"

	"github.com/rbright/dictate/internal/domain"
	"github.com/rbright/dictate/internal/errs"
)

// Registry maps recording id (the recording's canonical path) to its
// record. Insertions and lookups only; no deletions in the core.
type Registry struct {
	mu         sync.Mutex
	recordings map[string]domain.Recording
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{recordings: make(map[string]domain.Recording)}
}

// Put inserts or overwrites the record for rec.ID.
func (r *Registry) Put(rec domain.Recording) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: recording has no id", errs.ErrInvalidRecording)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordings[rec.ID] = rec
	return nil
}

// Get returns a defensive copy of the recording stored under id.
func (r *Registry) Get(id string) (domain.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recordings[id]
	if !ok {
		return domain.Recording{}, fmt.Errorf("%w: %s", errs.ErrNotFound, id)
	}
	rec.Data = append([]int16(nil), rec.Data...)
	return rec, nil
}
