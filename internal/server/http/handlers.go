package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-search-service/internal/domain"
)

// maxRequestBodySize caps search request bodies at 1 MB.
const maxRequestBodySize = 1 << 20

// search handles POST /api/search.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, invalidRequestResponse{
			Message: "Invalid search request",
			Errors:  []string{"failed to read request body"},
		})
		return
	}

	req := domain.NewSearchRequest()
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, invalidRequestResponse{
			Message: "Invalid search request",
			Errors:  []string{"invalid JSON request body"},
		})
		return
	}
	req.Normalize()

	if err := req.Validate(); err != nil {
		var verrs domain.ValidationErrors
		msgs := []string{err.Error()}
		if errors.As(err, &verrs) {
			msgs = verrs.Messages()
		}
		logger.Debug().Strs("errors", msgs).Msg("rejected search request")
		writeJSON(w, r, http.StatusBadRequest, invalidRequestResponse{
			Message: "Invalid search request",
			Errors:  msgs,
		})
		return
	}

	count := s.deps.Counter.Increment()
	logger.Info().
		Int64("search_number", count).
		Str("query", req.Query).
		Int("page", req.Page).
		Int("limit", req.Limit).
		Msg("search request")

	resp, err := s.deps.Searcher.Search(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("search failed")
		writeJSON(w, r, http.StatusInternalServerError, searchFailedResponse{
			Message:      "Search failed",
			Error:        err.Error(),
			SourceStatus: map[domain.SourceType]domain.SourceStatus{},
			Errors:       []string{err.Error()},
		})
		return
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// searchCounter handles GET /api/search/counter.
func (s *Server) searchCounter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, counterResponse{SearchCount: s.deps.Counter.Value()})
}

// suggestions handles GET /api/suggestions?q=.
func (s *Server) suggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, suggestionsResponse{
		Suggestions: s.deps.Suggester.Suggest(r.URL.Query().Get("q")),
	})
}

// cacheStats handles GET /api/cache/stats.
func (s *Server) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.deps.Cache.Stats())
}
