package cdc

import (
	"sync"

	"github.com/antgroup/gitvault/errs"
)

// Registry is the process-local pipeline-id table: a guarded map with an
// explicit Register/Unregister lifecycle. It is the owner's job to create
// one and share it; there is no package-level instance.
type Registry struct {
	mu        sync.RWMutex
	pipelines map[string]*Pipeline
}

func NewRegistry() *Registry {
	return &Registry{pipelines: map[string]*Pipeline{}}
}

// Register records p under id. Registering an id twice is an error; the
// original registration stays in place.
func (r *Registry) Register(id string, p *Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pipelines[id]; ok {
		return &errs.AlreadyExists{Name: id}
	}
	r.pipelines[id] = p
	return nil
}

// Unregister removes id, reporting whether it was present. It does not
// stop the pipeline; the caller owns that lifecycle.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pipelines[id]
	delete(r.pipelines, id)
	return ok
}

// Get returns the pipeline registered under id, or nil.
func (r *Registry) Get(id string) *Pipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pipelines[id]
}

// IDs returns the currently registered ids, in no particular order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.pipelines))
	for id := range r.pipelines {
		ids = append(ids, id)
	}
	return ids
}
