package papersources

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-search-service/internal/domain"
)

type stubSource struct {
	sourceType domain.SourceType
	enabled    bool
}

func (s *stubSource) Search(_ context.Context, _ SearchParams) ([]domain.Paper, error) {
	return nil, nil
}

func (s *stubSource) SourceType() domain.SourceType { return s.sourceType }
func (s *stubSource) Name() string                  { return string(s.sourceType) }
func (s *stubSource) IsEnabled() bool               { return s.enabled }

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	assert.Nil(t, registry.Get(domain.SourceTypeArXiv))

	first := &stubSource{sourceType: domain.SourceTypeArXiv, enabled: true}
	second := &stubSource{sourceType: domain.SourceTypeArXiv, enabled: false}

	registry.Register(first)
	assert.Same(t, first, registry.Get(domain.SourceTypeArXiv))

	registry.Register(second)
	assert.Same(t, second, registry.Get(domain.SourceTypeArXiv))
}

func TestRegistry_Lookup(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubSource{sourceType: domain.SourceTypePMC, enabled: true})
	registry.Register(&stubSource{sourceType: domain.SourceTypeBioRxiv, enabled: false})

	source, err := registry.Lookup(domain.SourceTypePMC)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceTypePMC, source.SourceType())

	_, err = registry.Lookup(domain.SourceTypeBioRxiv)
	assert.ErrorIs(t, err, domain.ErrSourceNotConfigured)

	_, err = registry.Lookup(domain.SourceTypeMedRxiv)
	assert.ErrorIs(t, err, domain.ErrSourceNotConfigured)
}

func TestRegistry_EnabledSources(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubSource{sourceType: domain.SourceTypePMC, enabled: true})
	registry.Register(&stubSource{sourceType: domain.SourceTypeMedRxiv, enabled: false})
	registry.Register(&stubSource{sourceType: domain.SourceTypeArXiv, enabled: true})
	registry.Register(&stubSource{sourceType: domain.SourceTypeBioRxiv, enabled: true})

	var got []domain.SourceType
	for _, s := range registry.EnabledSources() {
		got = append(got, s.SourceType())
	}

	assert.Equal(t, []domain.SourceType{
		domain.SourceTypeArXiv,
		domain.SourceTypeBioRxiv,
		domain.SourceTypePMC,
	}, got)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for _, st := range domain.AllSources() {
		wg.Add(2)
		go func(st domain.SourceType) {
			defer wg.Done()
			registry.Register(&stubSource{sourceType: st, enabled: true})
		}(st)
		go func(st domain.SourceType) {
			defer wg.Done()
			_ = registry.Get(st)
			_ = registry.EnabledSources()
		}(st)
	}
	wg.Wait()

	assert.Len(t, registry.EnabledSources(), len(domain.AllSources()))
}
