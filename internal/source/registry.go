package source

import (
	"sync"

	"github.com/areyoudear/stageside-sub001/internal/taste"
)

// AllServiceNames returns all streaming service names in display order.
func AllServiceNames() []taste.ServiceName {
	return []taste.ServiceName{
		taste.ServiceSpotify,
		taste.ServiceLastFM,
		taste.ServiceDeezer,
	}
}

// Registry holds all registered source adapters keyed by service name.
type Registry struct {
	mu      sync.RWMutex
	sources map[taste.ServiceName]Source
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[taste.ServiceName]Source),
	}
}

// Register adds a source to the registry.
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Name()] = s
}

// Get returns a source by name, or nil if not registered.
func (r *Registry) Get(name taste.ServiceName) Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[name]
}

// All returns all registered sources in a stable order.
func (r *Registry) All() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Source
	for _, name := range AllServiceNames() {
		if s, ok := r.sources[name]; ok {
			result = append(result, s)
		}
	}
	return result
}
