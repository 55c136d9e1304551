package resource

import "sync"

// Registry maps tags to canonical handles. It is safe for concurrent use;
// concurrent GetOrCreate calls for the same tag always yield the same
// *Resource. Entries are never removed; a Registry lives as long as the
// schedule configuration that owns it.
type Registry struct {
	mu    sync.Mutex
	byTag map[string]*Resource
}

func NewRegistry() *Registry {
	return &Registry{byTag: make(map[string]*Resource)}
}

// GetOrCreate returns the handle for (kind, subID), creating it on first use.
func (r *Registry) GetOrCreate(kind, subID string) *Resource {
	tag := Tag(kind, subID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if res, ok := r.byTag[tag]; ok {
		return res
	}
	res := newResource(kind, subID)
	r.byTag[tag] = res
	return res
}

// Lookup returns the handle for tag if it was created already.
func (r *Registry) Lookup(tag string) (*Resource, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.byTag[tag]
	return res, ok
}

// Len reports how many handles exist.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byTag)
}
