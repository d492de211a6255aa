package httpserver

import (
	"time"

	"github.com/helixir/paper-search-service/internal/domain"
)

type healthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// invalidRequestResponse is returned with 400 for malformed search requests.
type invalidRequestResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// searchFailedResponse is returned with 500 when the search itself fails.
type searchFailedResponse struct {
	Message      string                                    `json:"message"`
	Error        string                                    `json:"error"`
	SourceStatus map[domain.SourceType]domain.SourceStatus `json:"sourceStatus"`
	Errors       []string                                  `json:"errors"`
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type counterResponse struct {
	SearchCount int64 `json:"searchCount"`
}
