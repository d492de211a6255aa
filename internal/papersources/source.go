// Package papersources provides the interface and shared plumbing for
// academic paper source adapters.
//
// Each upstream server (arXiv, bioRxiv, medRxiv, PMC) implements PaperSource,
// translating one normalized search into its native query dialect and
// returning papers in the normalized domain model. Adapters report upstream
// and parse failures as errors; the search aggregator decides how a failing
// source is surfaced to callers.
//
// Example usage:
//
//	source := arxiv.New(arxiv.Config{Enabled: true})
//	papers, err := source.Search(ctx, papersources.SearchParams{
//		Query:      "CRISPR gene editing",
//		DateFilter: domain.DateFilterLastYear,
//		Page:       1,
//		Limit:      20,
//	})
package papersources

import (
	"context"

	"github.com/helixir/paper-search-service/internal/domain"
)

// SearchParams defines the parameters for one adapter search.
type SearchParams struct {
	// Query is the free-text search query (required).
	Query string

	// DateFilter restricts results to a publication window.
	DateFilter domain.DateFilter

	// Page is the 1-based page number.
	Page int

	// Limit is the page size.
	Limit int
}

// Offset returns the zero-based position of the first requested record.
func (p SearchParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// ParamsFromRequest extracts the adapter parameters from a search request.
func ParamsFromRequest(req domain.SearchRequest) SearchParams {
	return SearchParams{
		Query:      req.Query,
		DateFilter: req.DateFilter,
		Page:       req.Page,
		Limit:      req.Limit,
	}
}

// PaperSource defines the interface that all paper source adapters implement.
type PaperSource interface {
	// Search queries the paper source and returns normalized papers in
	// upstream order. The context carries cancellation and deadlines.
	//
	// Implementations should:
	//   - Respect context cancellation
	//   - Apply the source's request pacing
	//   - Drop records that cannot satisfy the Paper contract
	//   - Wrap errors with source context
	Search(ctx context.Context, params SearchParams) ([]domain.Paper, error)

	// SourceType returns the source identifier used for attribution and routing.
	SourceType() domain.SourceType

	// Name returns a human-readable name for logs and metrics.
	Name() string

	// IsEnabled returns whether this source is configured for use.
	IsEnabled() bool
}
