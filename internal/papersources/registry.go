package papersources

import (
	"sync"

	"github.com/helixir/paper-search-service/internal/domain"
)

// Registry holds the configured paper sources keyed by source type.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.SourceType]PaperSource
}

// NewRegistry creates a new source registry with an empty source map.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[domain.SourceType]PaperSource),
	}
}

// Register adds a source to the registry.
// If a source with the same type already exists, it will be replaced.
func (r *Registry) Register(source PaperSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source.SourceType()] = source
}

// Get returns a source by type, or nil if not found.
func (r *Registry) Get(sourceType domain.SourceType) PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[sourceType]
}

// Lookup returns the enabled source for sourceType. A missing or disabled
// source yields domain.ErrSourceNotConfigured.
func (r *Registry) Lookup(sourceType domain.SourceType) (PaperSource, error) {
	source := r.Get(sourceType)
	if source == nil || !source.IsEnabled() {
		return nil, domain.ErrSourceNotConfigured
	}
	return source, nil
}

// EnabledSources returns the enabled sources in canonical source order.
func (r *Registry) EnabledSources() []PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]PaperSource, 0, len(r.sources))
	for _, st := range domain.AllSources() {
		if source, ok := r.sources[st]; ok && source.IsEnabled() {
			sources = append(sources, source)
		}
	}
	return sources
}
