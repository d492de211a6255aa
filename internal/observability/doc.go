// Package observability provides logging, metrics, and context helpers for
// the paper search service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger = observability.WithSearchContext(logger, req.Query, sources)
//
// Adapters pick up the request logger with zerolog.Ctx(ctx).
//
// # Metrics
//
//	metrics := observability.NewMetrics("paper_search")
//	metrics.RecordSearch(cacheHit)
//	metrics.RecordSourceSuccess("arxiv", len(papers), elapsed.Seconds())
//
// A nil *Metrics records nothing, so components accept it as optional.
//
// # Standard Fields
//
//   - request_id: HTTP request identifier
//   - query: search query text
//   - sources: requested sources
//   - source: single upstream source (arxiv, biorxiv, medrxiv, pmc)
//   - component: emitting subsystem
package observability
