package pmc

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-search-service/internal/domain"
	"github.com/helixir/paper-search-service/internal/papersources"
)

const (
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultTool is the tool identification parameter NCBI asks for.
	DefaultTool = "PaperSearch"

	// DefaultEmail is the contact address sent with every request.
	DefaultEmail = "developer@helixir.io"

	sourceName = "PMC"

	// pdatLayout is the day precision accepted in [PDAT] ranges.
	pdatLayout = "2006/01/02"
)

var (
	// blockTagPattern matches tags that separate words when removed.
	blockTagPattern = regexp.MustCompile(`</?(?:p|sec|title|label|list-item|break)(?:\s[^>]*)?/?>`)
	tagPattern      = regexp.MustCompile(`<[^>]*>`)
)

// Config holds the configuration for the PMC client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	BaseURL string

	// Tool and Email identify the caller per NCBI policy.
	Tool  string
	Email string

	// UserAgent overrides the default User-Agent.
	UserAgent string

	// Enabled indicates whether this source is enabled.
	Enabled bool
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Tool == "" {
		c.Tool = DefaultTool
	}
	if c.Email == "" {
		c.Email = DefaultEmail
	}
	if c.UserAgent == "" {
		c.UserAgent = papersources.DefaultUserAgent
	}
}

// Client implements papersources.PaperSource for PubMed Central.
type Client struct {
	config Config
	lane   *papersources.Lane
	now    func() time.Time
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates a PMC client. Every upstream call is dispatched through lane,
// which is expected to be shared process-wide.
func New(cfg Config, lane *papersources.Lane) *Client {
	cfg.applyDefaults()
	return &Client{
		config: cfg,
		lane:   lane,
		now:    time.Now,
	}
}

// Search runs esearch for the query and efetch for the returned ids.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) ([]domain.Paper, error) {
	logger := zerolog.Ctx(ctx).With().Str("source", string(domain.SourceTypePMC)).Logger()

	ids, err := c.searchIDs(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}
	if len(ids) == 0 {
		logger.Debug().Msg("esearch returned no ids")
		return []domain.Paper{}, nil
	}
	if len(ids) > params.Limit {
		ids = ids[:params.Limit]
	}

	set, err := c.fetchArticles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("efetch: %w", err)
	}

	papers := make([]domain.Paper, 0, len(set.Articles))
	for i := range set.Articles {
		if paper, ok := articleToPaper(&set.Articles[i]); ok {
			papers = append(papers, paper)
		}
	}

	logger.Debug().Int("ids", len(ids)).Int("papers", len(papers)).Msg("efetch parsed")
	return papers, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypePMC
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) searchIDs(ctx context.Context, params papersources.SearchParams) ([]string, error) {
	query := c.identify()
	query.Set("db", "pmc")
	query.Set("term", c.buildTerm(params))
	query.Set("retmode", "json")
	query.Set("retmax", strconv.Itoa(params.Limit))
	query.Set("retstart", strconv.Itoa(params.Offset()))
	query.Set("sort", "relevance")

	body, err := c.get(ctx, "esearch.fcgi", query)
	if err != nil {
		return nil, err
	}

	var resp ESearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if resp.Result.Error != "" {
		return nil, domain.NewExternalAPIError(sourceName, http.StatusOK, resp.Result.Error, nil)
	}
	return resp.Result.IDList, nil
}

func (c *Client) fetchArticles(ctx context.Context, ids []string) (*ArticleSet, error) {
	query := c.identify()
	query.Set("db", "pmc")
	query.Set("id", strings.Join(ids, ","))
	query.Set("retmode", "xml")

	body, err := c.get(ctx, "efetch.fcgi", query)
	if err != nil {
		return nil, err
	}

	var set ArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &set, nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	reqURL := strings.TrimRight(c.config.BaseURL, "/") + "/" + endpoint + "?" + query.Encode()

	zerolog.Ctx(ctx).Debug().Str("source", string(domain.SourceTypePMC)).Str("url", reqURL).Msg("querying upstream")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.lane.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return papersources.ReadOK(sourceName, resp)
}

func (c *Client) identify() url.Values {
	query := url.Values{}
	query.Set("tool", c.config.Tool)
	query.Set("email", c.config.Email)
	return query
}

// buildTerm appends a [PDAT] clause for date filters that select a concrete
// year or rolling window.
func (c *Client) buildTerm(params papersources.SearchParams) string {
	term := strings.TrimSpace(params.Query)

	window, ok := papersources.ResolveWindow(params.DateFilter, c.now())
	if !ok {
		return term
	}
	if !window.Rolling {
		return fmt.Sprintf("%s AND %d[PDAT]", term, window.From.Year())
	}
	return fmt.Sprintf("%s AND %s[PDAT]:3000[PDAT]", term, window.From.Format(pdatLayout))
}

// articleToPaper converts a JATS article. Articles without a title are
// rejected.
func articleToPaper(article *Article) (domain.Paper, bool) {
	meta := &article.Front.ArticleMeta

	title := stripMarkup(meta.Title.Inner)
	if title == "" {
		return domain.Paper{}, false
	}

	var ids domain.PaperIdentifiers
	for _, aid := range meta.ArticleIDs {
		value := strings.TrimSpace(aid.Value)
		switch aid.Type {
		case "pmid":
			ids.PMID = value
		case "pmc", "pmcid":
			ids.PMCID = normalizePMCID(value)
		case "doi":
			ids.DOI = value
		}
	}

	var abstract string
	if len(meta.Abstracts) > 0 {
		abstract = stripMarkup(meta.Abstracts[0].Inner)
	}

	authors := make([]string, 0, len(meta.Contribs))
	for _, contrib := range meta.Contribs {
		if contrib.Type != "author" {
			continue
		}
		name := domain.NormalizeWhitespace(contrib.GivenNames + " " + contrib.Surname)
		if name != "" {
			authors = append(authors, name)
		}
	}

	keywords := make([]string, 0, len(meta.Subjects))
	for _, subject := range meta.Subjects {
		if s := stripMarkup(subject.Inner); s != "" {
			keywords = append(keywords, s)
		}
	}

	id := domain.PrimaryID(ids)
	if id == "" {
		id = "pmc-" + uuid.NewString()
	}

	return domain.Paper{
		ID:            id,
		Title:         title,
		Authors:       authors,
		Abstract:      abstract,
		DOI:           ids.DOI,
		PMID:          ids.PMID,
		Source:        domain.SourceTypePMC,
		Category:      journalTitle(&article.Front.JournalMeta),
		PublishedDate: publishedDate(meta.PubDates),
		URL:           paperURL(ids),
		Keywords:      keywords,
	}, true
}

func journalTitle(meta *JournalMeta) string {
	for _, titles := range [][]Markup{meta.GroupedTitles, meta.Titles} {
		for _, t := range titles {
			if s := stripMarkup(t.Inner); s != "" {
				return s
			}
		}
	}
	return ""
}

// publishedDate assembles YYYY-MM-DD from the first pub-date with a
// four-digit year. Missing month or day default to 01.
func publishedDate(dates []PubDate) string {
	for _, d := range dates {
		year := strings.TrimSpace(d.Year)
		if len(year) != 4 {
			continue
		}
		if _, err := strconv.Atoi(year); err != nil {
			continue
		}
		return year + "-" + pad2(d.Month) + "-" + pad2(d.Day)
	}
	return ""
}

func pad2(s string) string {
	s = strings.TrimSpace(s)
	switch len(s) {
	case 0:
		return "01"
	case 1:
		return "0" + s
	default:
		return s
	}
}

// paperURL prefers the PMC article page, then PubMed, then the DOI resolver.
func paperURL(ids domain.PaperIdentifiers) string {
	switch {
	case ids.PMCID != "":
		return "https://www.ncbi.nlm.nih.gov/pmc/articles/" + ids.PMCID + "/"
	case ids.PMID != "":
		return "https://www.ncbi.nlm.nih.gov/pubmed/" + ids.PMID
	case ids.DOI != "":
		return "https://doi.org/" + ids.DOI
	default:
		return "#"
	}
}

// normalizePMCID returns id with a canonical "PMC" prefix.
func normalizePMCID(id string) string {
	if id == "" {
		return ""
	}
	if len(id) >= 3 && strings.EqualFold(id[:3], "PMC") {
		id = id[3:]
	}
	return "PMC" + id
}

// stripMarkup removes tags from an inner-XML fragment, decodes entities and
// collapses whitespace.
func stripMarkup(inner string) string {
	text := blockTagPattern.ReplaceAllString(inner, " ")
	text = tagPattern.ReplaceAllString(text, "")
	return domain.NormalizeWhitespace(html.UnescapeString(text))
}
