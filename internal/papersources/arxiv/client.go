// Package arxiv implements the arXiv Atom API adapter.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-search-service/internal/domain"
	"github.com/helixir/paper-search-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit is the default rate limit (3 requests per second).
	DefaultRateLimit = 3.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retries on 429 and 5xx.
	DefaultMaxRetries = 2

	sourceName = "arXiv"

	// dateLayout is the day precision used inside submittedDate ranges.
	dateLayout = "20060102"
)

// versionSuffix matches the trailing "v2" of a versioned arXiv id.
var versionSuffix = regexp.MustCompile(`v\d+$`)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// MaxRetries bounds retries on throttling and server errors.
	MaxRetries int

	// UserAgent overrides the default User-Agent.
	UserAgent string

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
}

// Client implements papersources.PaperSource for arXiv.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	now        func() time.Time
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates a new arXiv client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  int(cfg.RateLimit) + 1,
		MaxRetries: cfg.MaxRetries,
		UserAgent:  cfg.UserAgent,
	})

	return NewWithHTTPClient(cfg, httpClient)
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Search queries arXiv for papers matching the given parameters.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) ([]domain.Paper, error) {
	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("source", string(domain.SourceTypeArXiv)).Str("url", searchURL).Msg("querying upstream")

	body, err := c.httpClient.Get(ctx, sourceName, searchURL)
	if err != nil {
		return nil, err
	}

	var feed Feed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	papers := make([]domain.Paper, 0, len(feed.Entries))
	for i := range feed.Entries {
		if paper, ok := entryToPaper(&feed.Entries[i]); ok {
			papers = append(papers, paper)
		}
	}

	return papers, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeArXiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the arXiv query URL. The search_query value is
// written verbatim because the arXiv grammar uses literal '+', '[', ']' and
// '*' characters that url.Values would escape.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	searchQuery := "all:" + url.QueryEscape(strings.TrimSpace(params.Query))
	if clause := dateClause(params.DateFilter, c.now()); clause != "" {
		searchQuery += "+AND+" + clause
	}

	rest := url.Values{}
	rest.Set("start", strconv.Itoa(params.Offset()))
	rest.Set("max_results", strconv.Itoa(params.Limit))
	rest.Set("sortBy", "submittedDate")
	rest.Set("sortOrder", "descending")

	baseURL.RawQuery = "search_query=" + searchQuery + "&" + rest.Encode()
	return baseURL.String(), nil
}

// dateClause renders the submittedDate range for filter, or "" for no bound.
func dateClause(filter domain.DateFilter, now time.Time) string {
	window, ok := papersources.ResolveWindow(filter, now)
	if !ok {
		return ""
	}
	return fmt.Sprintf("submittedDate:[%s*+TO+%s*]", window.From.Format(dateLayout), window.To.Format(dateLayout))
}

// entryToPaper converts an Atom entry to a Paper. Entries without a title or
// abstract are rejected.
func entryToPaper(entry *Entry) (domain.Paper, bool) {
	title := domain.NormalizeWhitespace(entry.Title)
	abstract := domain.NormalizeWhitespace(entry.Summary)
	if title == "" || abstract == "" {
		return domain.Paper{}, false
	}

	rawID := strings.TrimSpace(entry.ID)
	arxivID := extractArXivID(rawID)

	authors := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if name := domain.NormalizeWhitespace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	keywords := make([]string, 0, len(entry.Categories))
	for _, cat := range entry.Categories {
		if term := strings.TrimSpace(cat.Term); term != "" {
			keywords = append(keywords, term)
		}
	}

	var category string
	if len(keywords) > 0 {
		category = keywords[0]
	}

	paperURL := rawID
	if paperURL == "" && arxivID != "" {
		paperURL = "https://arxiv.org/abs/" + arxivID
	}
	if paperURL == "" {
		paperURL = "#"
	}

	return domain.Paper{
		ID:            arxivID,
		Title:         title,
		Authors:       authors,
		Abstract:      abstract,
		DOI:           strings.TrimSpace(entry.DOI),
		ArXivID:       arxivID,
		Source:        domain.SourceTypeArXiv,
		Category:      category,
		PublishedDate: normalizeDate(entry.Published),
		URL:           paperURL,
		Keywords:      keywords,
		JournalRef:    domain.NormalizeWhitespace(entry.JournalRef),
		Comments:      domain.NormalizeWhitespace(entry.Comment),
	}, true
}

// extractArXivID returns the last path segment of an entry id without its
// version suffix: "http://arxiv.org/abs/2301.12345v2" -> "2301.12345".
func extractArXivID(rawID string) string {
	rawID = strings.TrimRight(rawID, "/")
	if i := strings.LastIndex(rawID, "/"); i >= 0 {
		rawID = rawID[i+1:]
	}
	return versionSuffix.ReplaceAllString(rawID, "")
}

// normalizeDate reduces an Atom timestamp to YYYY-MM-DD, leaving unparseable
// values empty.
func normalizeDate(published string) string {
	published = strings.TrimSpace(published)
	if published == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, published); err == nil {
		return t.UTC().Format(domain.PublishedDateLayout)
	}
	if len(published) >= 10 {
		if t, err := time.Parse(domain.PublishedDateLayout, published[:10]); err == nil {
			return t.Format(domain.PublishedDateLayout)
		}
	}
	return ""
}
