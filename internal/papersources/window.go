package papersources

import (
	"time"

	"github.com/helixir/paper-search-service/internal/domain"
)

// Window is a resolved publication date interval, inclusive on both ends.
type Window struct {
	From time.Time
	To   time.Time

	// Rolling is true when the window is anchored at "now" rather than
	// being a fixed calendar year.
	Rolling bool
}

// ResolveWindow converts a date filter into a concrete interval relative to
// now. It returns false for DateFilterAny, which applies no date bound.
func ResolveWindow(filter domain.DateFilter, now time.Time) (Window, bool) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if year := filter.Year(); year > 0 {
		return Window{
			From: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
		}, true
	}

	switch filter {
	case domain.DateFilterLastYear:
		return Window{From: today.AddDate(-1, 0, 0), To: today, Rolling: true}, true
	case domain.DateFilterLast6Months:
		return Window{From: today.AddDate(0, -6, 0), To: today, Rolling: true}, true
	case domain.DateFilterLast30Days:
		return Window{From: today.AddDate(0, 0, -30), To: today, Rolling: true}, true
	default:
		return Window{}, false
	}
}
