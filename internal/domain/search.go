package domain

import (
	"encoding/json"
	"fmt"
)

// Default request values applied when a field is omitted.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// SearchRequest is the normalized federated search request. All fields take
// part in the cache fingerprint.
type SearchRequest struct {
	Query      string       `json:"query" validate:"required,notblank"`
	Sources    []SourceType `json:"sources" validate:"required,min=1,dive,sourcetype"`
	DateFilter DateFilter   `json:"dateFilter" validate:"datefilter"`
	SortBy     SortBy       `json:"sortBy" validate:"sortby"`
	Page       int          `json:"page" validate:"min=1"`
	Limit      int          `json:"limit" validate:"min=1,max=100"`
}

// NewSearchRequest returns a request carrying every default value. Decoding
// JSON on top of it leaves omitted fields at their defaults.
func NewSearchRequest() SearchRequest {
	return SearchRequest{
		Sources:    AllSources(),
		DateFilter: DateFilterAny,
		SortBy:     SortByRelevance,
		Page:       DefaultPage,
		Limit:      DefaultLimit,
	}
}

// Normalize fills defaults for zero-valued fields and drops repeated sources,
// keeping first-seen order.
func (r *SearchRequest) Normalize() {
	if r.Sources == nil {
		r.Sources = AllSources()
	}
	if r.DateFilter == "" {
		r.DateFilter = DateFilterAny
	}
	if r.SortBy == "" {
		r.SortBy = SortByRelevance
	}
	if r.Page == 0 {
		r.Page = DefaultPage
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}

	seen := make(map[SourceType]struct{}, len(r.Sources))
	sources := make([]SourceType, 0, len(r.Sources))
	for _, s := range r.Sources {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		sources = append(sources, s)
	}
	r.Sources = sources
}

// Offset returns the zero-based upstream offset for the requested page.
func (r SearchRequest) Offset() int {
	return (r.Page - 1) * r.Limit
}

// Includes returns true if the request selects the given source.
func (r SearchRequest) Includes(source SourceType) bool {
	for _, s := range r.Sources {
		if s == source {
			return true
		}
	}
	return false
}

// Fingerprint returns the canonical cache key of the request. Two requests
// share a fingerprint only if every field is equal.
func (r SearchRequest) Fingerprint() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal search request: %w", err)
	}
	return "search:" + string(data), nil
}

// SearchResponse is the merged result of one federated search.
type SearchResponse struct {
	Papers       []Paper                     `json:"papers"`
	Total        int                         `json:"total"`
	Page         int                         `json:"page"`
	Limit        int                         `json:"limit"`
	HasMore      bool                        `json:"hasMore"`
	SourceStatus map[SourceType]SourceStatus `json:"sourceStatus"`
	Errors       []string                    `json:"errors,omitempty"`
}
