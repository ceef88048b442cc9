package service

// Registry is the ordered set of identifiers seen in one session
// callers hold the engine lock, the registry itself is not synchronized
type Registry struct {
	ids   []string
	index map[string]int
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Add appends id when absent and reports whether it was added
func (r *Registry) Add(id string) bool {
	if _, ok := r.index[id]; ok {
		return false
	}
	r.index[id] = len(r.ids)
	r.ids = append(r.ids, id)
	return true
}

// Has reports whether id is present
func (r *Registry) Has(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Remove deletes ids keeping first-seen order for the rest
func (r *Registry) Remove(ids ...string) int {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := r.index[id]; ok {
			drop[id] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return 0
	}
	kept := r.ids[:0]
	for _, id := range r.ids {
		if _, gone := drop[id]; gone {
			delete(r.index, id)
			continue
		}
		r.index[id] = len(kept)
		kept = append(kept, id)
	}
	clear(r.ids[len(kept):])
	r.ids = kept
	return len(drop)
}

// Len is the number of unique identifiers
func (r *Registry) Len() int { return len(r.ids) }

// IDs returns a copy in first-seen order
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Clear empties the registry
func (r *Registry) Clear() {
	r.ids = nil
	clear(r.index)
}
