package domain

import (
	"strings"
	"time"
)

// PublishedDateLayout is the normalized layout of Paper.PublishedDate.
const PublishedDateLayout = "2006-01-02"

// Paper is the normalized record every source adapter emits.
// Papers are built once by their adapter and never modified afterwards.
type Paper struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Authors       []string   `json:"authors"`
	Abstract      string     `json:"abstract"`
	DOI           string     `json:"doi,omitempty"`
	PMID          string     `json:"pmid,omitempty"`
	ArXivID       string     `json:"arxivId,omitempty"`
	Source        SourceType `json:"source"`
	Category      string     `json:"category,omitempty"`
	PublishedDate string     `json:"publishedDate"`
	URL           string     `json:"url"`
	Keywords      []string   `json:"keywords"`
	JournalRef    string     `json:"journalRef,omitempty"`
	Comments      string     `json:"comments,omitempty"`
}

// PaperIdentifiers holds the identifiers a source may know for a paper.
type PaperIdentifiers struct {
	DOI     string
	PMCID   string
	PMID    string
	ArXivID string
}

// PrimaryID picks the paper id by preference: DOI > PMC id > PMID > arXiv id.
// Returns empty string if no identifier is available.
func PrimaryID(ids PaperIdentifiers) string {
	for _, id := range []string{ids.DOI, ids.PMCID, ids.PMID, ids.ArXivID} {
		if v := strings.TrimSpace(id); v != "" {
			return v
		}
	}
	return ""
}

// PublishedTime parses PublishedDate. Unparseable or empty dates map to the
// Unix epoch so they sort as the oldest possible papers.
func (p Paper) PublishedTime() time.Time {
	return ParsePublishedDate(p.PublishedDate)
}

// ParsePublishedDate parses a best-effort publication date string.
func ParsePublishedDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Unix(0, 0).UTC()
	}
	for _, layout := range []string{PublishedDateLayout, time.RFC3339, "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Unix(0, 0).UTC()
}

// NormalizeWhitespace trims s and collapses internal runs of whitespace.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
