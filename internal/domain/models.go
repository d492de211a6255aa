// Package domain provides the normalized paper model and the search
// request/response contracts shared by every paper source and the aggregator.
package domain

// SourceType identifies one of the upstream paper servers.
type SourceType string

const (
	SourceTypeArXiv   SourceType = "arxiv"
	SourceTypeMedRxiv SourceType = "medrxiv"
	SourceTypeBioRxiv SourceType = "biorxiv"
	SourceTypePMC     SourceType = "pmc"
)

// AllSources returns every supported source in request-default order.
func AllSources() []SourceType {
	return []SourceType{SourceTypeArXiv, SourceTypeMedRxiv, SourceTypeBioRxiv, SourceTypePMC}
}

// IsValid returns true if s is one of the supported sources.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeArXiv, SourceTypeMedRxiv, SourceTypeBioRxiv, SourceTypePMC:
		return true
	default:
		return false
	}
}

// Priority returns the merge rank of the source. Lower ranks are listed first:
// PMC, then arXiv, then bioRxiv, then medRxiv. Unknown sources sort last.
func (s SourceType) Priority() int {
	switch s {
	case SourceTypePMC:
		return 0
	case SourceTypeArXiv:
		return 1
	case SourceTypeBioRxiv:
		return 2
	case SourceTypeMedRxiv:
		return 3
	default:
		return 4
	}
}

// DateFilter restricts results to a publication window.
type DateFilter string

const (
	DateFilterAny         DateFilter = "any"
	DateFilterLast30Days  DateFilter = "last_30_days"
	DateFilterLast6Months DateFilter = "last_6_months"
	DateFilterLastYear    DateFilter = "last_year"
	DateFilterYear2025    DateFilter = "2025"
	DateFilterYear2024    DateFilter = "2024"
)

// IsValid returns true if f is a supported date filter.
func (f DateFilter) IsValid() bool {
	switch f {
	case DateFilterAny, DateFilterLast30Days, DateFilterLast6Months,
		DateFilterLastYear, DateFilterYear2025, DateFilterYear2024:
		return true
	default:
		return false
	}
}

// Year returns the calendar year selected by the filter, or 0 when the filter
// is not a fixed year.
func (f DateFilter) Year() int {
	switch f {
	case DateFilterYear2025:
		return 2025
	case DateFilterYear2024:
		return 2024
	default:
		return 0
	}
}

// SortBy selects the within-source ordering of merged results.
type SortBy string

const (
	SortByRelevance  SortBy = "relevance"
	SortByDateNewest SortBy = "date_newest"
	SortByDateOldest SortBy = "date_oldest"
	SortByCitations  SortBy = "citations"
)

// IsValid returns true if s is a supported sort order.
func (s SortBy) IsValid() bool {
	switch s {
	case SortByRelevance, SortByDateNewest, SortByDateOldest, SortByCitations:
		return true
	default:
		return false
	}
}

// SourceState is the lifecycle state of one source within one search.
// A source moves from pending to exactly one terminal state.
type SourceState string

const (
	SourceStatePending SourceState = "pending"
	SourceStateSuccess SourceState = "success"
	SourceStateError   SourceState = "error"
)

// IsTerminal returns true if the state will not change again.
func (s SourceState) IsTerminal() bool {
	return s == SourceStateSuccess || s == SourceStateError
}

// SourceStatus reports how a single source fared for one search request.
type SourceStatus struct {
	Status SourceState `json:"status"`
	Count  *int        `json:"count,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// PendingStatus returns the initial status of a dispatched source.
func PendingStatus() SourceStatus {
	return SourceStatus{Status: SourceStatePending}
}

// SuccessStatus returns a terminal success status carrying the paper count.
func SuccessStatus(count int) SourceStatus {
	return SourceStatus{Status: SourceStateSuccess, Count: &count}
}

// ErrorStatus returns a terminal error status carrying the failure message.
func ErrorStatus(message string) SourceStatus {
	return SourceStatus{Status: SourceStateError, Error: message}
}
