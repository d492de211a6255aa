// Package biorxiv implements the adapter for the bioRxiv and medRxiv twin
// preprint servers, which share one details API.
package biorxiv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-search-service/internal/domain"
	"github.com/helixir/paper-search-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default details API base URL.
	DefaultBaseURL = "https://api.biorxiv.org"

	// DefaultRateLimit is the default rate limit (5 requests per second).
	DefaultRateLimit = 5.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxPages bounds how many 100-record pages one search scans.
	DefaultMaxPages = 3

	// DefaultMaxRetries is the default number of retries on 429 and 5xx.
	DefaultMaxRetries = 1

	// PageSize is the fixed number of records the details API returns per call.
	PageSize = 100

	doiPrefix = "10.1101/"
)

// Config holds configuration for one bioRxiv-family client.
type Config struct {
	// BaseURL is the details API base URL.
	BaseURL string

	// SourceType selects the server: SourceTypeBioRxiv or SourceTypeMedRxiv.
	SourceType domain.SourceType

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// MaxRetries bounds retries on throttling and server errors.
	MaxRetries int

	// MaxPages bounds the number of details pages scanned per search.
	MaxPages int

	// UserAgent overrides the default User-Agent.
	UserAgent string

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.SourceType == "" {
		c.SourceType = domain.SourceTypeBioRxiv
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
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
}

// Client implements papersources.PaperSource for bioRxiv or medRxiv.
//
// The details API has no free-text parameter, so the client scans
// date-scoped pages and keeps records whose title, abstract or author list
// contains the query (case-insensitive).
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	now        func() time.Time
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates a new bioRxiv-family client with the given configuration.
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

// NewWithHTTPClient creates a new client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Search scans details pages from the start of the date window and pages
// over the filtered matches: page N skips the first (N-1)*limit matching
// records and returns up to limit more, in upstream order. Matches beyond
// MaxPages raw pages are not reachable.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) ([]domain.Paper, error) {
	server := string(c.config.SourceType)
	interval := c.interval(params.DateFilter)
	needle := strings.ToLower(strings.TrimSpace(params.Query))
	logger := zerolog.Ctx(ctx).With().Str("source", server).Logger()

	papers := make([]domain.Paper, 0, params.Limit)
	skip := params.Offset()
	cursor, scanned, matched := 0, 0, 0

scan:
	for pageNum := 0; pageNum < c.config.MaxPages; pageNum++ {
		detailsURL, err := c.buildDetailsURL(interval, cursor)
		if err != nil {
			return nil, fmt.Errorf("building details URL: %w", err)
		}

		logger.Debug().Str("url", detailsURL).Msg("querying upstream")

		body, err := c.httpClient.Get(ctx, server, detailsURL)
		if err != nil {
			return nil, err
		}

		var resp DetailsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}

		scanned += len(resp.Collection)
		for i := range resp.Collection {
			record := &resp.Collection[i]
			if !matches(record, needle) {
				continue
			}
			matched++
			if matched <= skip {
				continue
			}
			papers = append(papers, c.recordToPaper(record))
			if len(papers) >= params.Limit {
				break scan
			}
		}

		if len(resp.Collection) < PageSize {
			break
		}
		cursor += len(resp.Collection)
	}

	logger.Debug().Int("scanned", scanned).Int("matched", matched).Int("returned", len(papers)).Msg("details scan finished")

	return papers, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return c.config.SourceType
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	if c.config.SourceType == domain.SourceTypeMedRxiv {
		return "medRxiv"
	}
	return "bioRxiv"
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// interval renders the details API interval segment for filter.
func (c *Client) interval(filter domain.DateFilter) string {
	now := c.now()

	if filter == domain.DateFilterLast30Days {
		return "30d"
	}
	if filter == domain.DateFilterAny {
		filter = domain.DateFilterLast6Months
	}

	window, ok := papersources.ResolveWindow(filter, now)
	if !ok {
		return "30d"
	}
	return window.From.Format(domain.PublishedDateLayout) + "/" + window.To.Format(domain.PublishedDateLayout)
}

func (c *Client) buildDetailsURL(interval string, cursor int) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") +
		"/details/" + string(c.config.SourceType) + "/" + interval + "/" + strconv.Itoa(cursor) + "/json"
	return baseURL.String(), nil
}

// matches reports whether the lowercased needle occurs in the record's title,
// abstract or author string. An empty needle matches everything.
func matches(record *Record, needle string) bool {
	if needle == "" {
		return true
	}
	for _, field := range []string{record.Title, record.Abstract, record.Authors} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func (c *Client) recordToPaper(record *Record) domain.Paper {
	server := string(c.config.SourceType)
	doi := strings.TrimSpace(record.DOI)
	title := domain.NormalizeWhitespace(record.Title)
	category := strings.TrimSpace(record.Category)

	id := domain.PrimaryID(domain.PaperIdentifiers{DOI: doi})
	if id == "" {
		id = server + "-" + slug(record.Title, 20)
	}

	paperURL := "#"
	if doi != "" {
		paperURL = "https://www." + server + ".org/content/" + strings.TrimPrefix(doi, doiPrefix)
	}

	keywords := []string{}
	if category != "" {
		keywords = append(keywords, category)
	}

	return domain.Paper{
		ID:            id,
		Title:         title,
		Authors:       splitAuthors(record.Authors),
		Abstract:      domain.NormalizeWhitespace(record.Abstract),
		DOI:           doi,
		Source:        c.config.SourceType,
		Category:      category,
		PublishedDate: strings.TrimSpace(record.Date),
		URL:           paperURL,
		Keywords:      keywords,
	}
}

// splitAuthors splits the semicolon-delimited author string into trimmed,
// non-empty names.
func splitAuthors(authors string) []string {
	names := []string{}
	for _, name := range strings.Split(authors, ";") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// slug takes the first n runes of title and replaces whitespace runs with '-'.
func slug(title string, n int) string {
	runes := []rune(title)
	if len(runes) > n {
		runes = runes[:n]
	}
	return strings.Join(strings.Fields(string(runes)), "-")
}
