// Package events publishes search analytics events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/helixir/paper-search-service/internal/domain"
)

// EventTypeSearchCompleted is emitted once per aggregated search.
const EventTypeSearchCompleted = "search.completed"

// ServiceName identifies this service as the event source.
const ServiceName = "paper-search-service"

// SearchCompleted summarizes one served search.
type SearchCompleted struct {
	RequestID    string                                    `json:"request_id,omitempty"`
	Query        string                                    `json:"query"`
	Sources      []domain.SourceType                       `json:"sources"`
	DateFilter   domain.DateFilter                         `json:"date_filter"`
	SortBy       domain.SortBy                             `json:"sort_by"`
	Page         int                                       `json:"page"`
	Limit        int                                       `json:"limit"`
	Total        int                                       `json:"total"`
	CacheHit     bool                                      `json:"cache_hit"`
	DurationMs   int64                                     `json:"duration_ms"`
	SourceStatus map[domain.SourceType]domain.SourceStatus `json:"source_status"`
}

// Envelope wraps an event payload with identification metadata.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Source     string          `json:"source"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope serializes payload into an Envelope of the given type.
func NewEnvelope(eventType string, payload interface{}, now time.Time) (Envelope, error) {
	if eventType == "" {
		return Envelope{}, fmt.Errorf("event_type is required")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal payload: %w", err)
	}

	return Envelope{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		Source:     ServiceName,
		OccurredAt: now.UTC(),
		Payload:    raw,
	}, nil
}

// Publisher delivers search events. Implementations must not block the
// search path for long; delivery failures are logged, not returned to users.
type Publisher interface {
	PublishSearchCompleted(ctx context.Context, event SearchCompleted) error
	Close() error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

// PublishSearchCompleted implements Publisher.
func (NoopPublisher) PublishSearchCompleted(context.Context, SearchCompleted) error { return nil }

// Close implements Publisher.
func (NoopPublisher) Close() error { return nil }
