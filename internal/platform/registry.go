package platform

import (
	"fmt"
	"sync"

	"github.com/crossply/crossply/internal/domain"
)

// Registry maps platforms to their adapters. Selection happens by the
// platform enum on the social account being dispatched to.
type Registry struct {
	adapters map[domain.Platform]Adapter
	mu       sync.RWMutex
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[domain.Platform]Adapter)}
}

// Register registers an adapter under its platform
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Platform()] = adapter
}

// Get returns the adapter for a platform
func (r *Registry) Get(p domain.Platform) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for platform: %s", p)
	}
	return adapter, nil
}

// Platforms returns the platforms with a registered adapter
func (r *Registry) Platforms() []domain.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	platforms := make([]domain.Platform, 0, len(r.adapters))
	for p := range r.adapters {
		platforms = append(platforms, p)
	}
	return platforms
}
