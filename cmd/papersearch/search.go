package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-search-service/internal/app"
	"github.com/helixir/paper-search-service/internal/config"
	"github.com/helixir/paper-search-service/internal/domain"
	"github.com/helixir/paper-search-service/internal/observability"
)

// summaryTitleLen truncates titles in human-readable output.
const summaryTitleLen = 100

type searchFlags struct {
	query      string
	sources    []string
	dateFilter string
	sortBy     string
	page       int
	limit      int
}

var searchOpts searchFlags

func init() {
	f := searchCmd.Flags()
	f.StringVarP(&searchOpts.query, "query", "q", "", "Search query (required)")
	f.StringSliceVar(&searchOpts.sources, "sources", nil, "Sources to search: arxiv, medrxiv, biorxiv, pmc (default all)")
	f.StringVar(&searchOpts.dateFilter, "date", string(domain.DateFilterAny), "Date filter: any, last_30_days, last_6_months, last_year, 2025, 2024")
	f.StringVar(&searchOpts.sortBy, "sort", string(domain.SortByRelevance), "Sort order: relevance, date_newest, date_oldest, citations")
	f.IntVar(&searchOpts.page, "page", domain.DefaultPage, "Result page")
	f.IntVar(&searchOpts.limit, "limit", domain.DefaultLimit, "Results per source")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one federated search and print the combined response",
	Example: `  papersearch search --query "crispr" --sources pmc,biorxiv
  papersearch search -q "transformers" --date last_year --sort date_newest --human`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, _ []string) error {
	req, err := searchOpts.request()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:  logLevel,
		Format: "console",
		Writer: cmd.ErrOrStderr(),
	})

	stack := app.New(cfg, nil, logger)
	defer func() {
		if err := stack.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close search stack")
		}
	}()

	resp, err := stack.Aggregator.Search(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if humanOutput {
		printHuman(cmd.OutOrStdout(), resp)
		return nil
	}
	return outputJSON(cmd.OutOrStdout(), resp)
}

// request builds and validates the search request described by the flags.
func (f searchFlags) request() (domain.SearchRequest, error) {
	req := domain.NewSearchRequest()
	req.Query = f.query
	if len(f.sources) > 0 {
		req.Sources = make([]domain.SourceType, 0, len(f.sources))
		for _, s := range f.sources {
			req.Sources = append(req.Sources, domain.SourceType(strings.ToLower(strings.TrimSpace(s))))
		}
	}
	req.DateFilter = domain.DateFilter(f.dateFilter)
	req.SortBy = domain.SortBy(f.sortBy)
	req.Page = f.page
	req.Limit = f.limit
	req.Normalize()

	if err := req.Validate(); err != nil {
		var verrs domain.ValidationErrors
		if errors.As(err, &verrs) {
			return req, fmt.Errorf("invalid search request: %s", strings.Join(verrs.Messages(), "; "))
		}
		return req, err
	}
	return req, nil
}

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHuman(w io.Writer, resp domain.SearchResponse) {
	for _, source := range domain.AllSources() {
		status, ok := resp.SourceStatus[source]
		if !ok {
			continue
		}
		switch {
		case status.Status == domain.SourceStateError:
			fmt.Fprintf(w, "%-8s error: %s\n", source, status.Error)
		case status.Count != nil:
			fmt.Fprintf(w, "%-8s %d papers\n", source, *status.Count)
		default:
			fmt.Fprintf(w, "%-8s %s\n", source, status.Status)
		}
	}
	fmt.Fprintln(w)

	if len(resp.Papers) == 0 {
		fmt.Fprintln(w, "No papers found")
		return
	}

	fmt.Fprintf(w, "Found %d papers (page %d):\n\n", resp.Total, resp.Page)
	for i, p := range resp.Papers {
		fmt.Fprintf(w, "[%d] %s  (%s, %s)\n", i+1, truncate(p.Title, summaryTitleLen), p.Source, dateOrUnknown(p.PublishedDate))
		if len(p.Authors) > 0 {
			authors := p.Authors
			suffix := ""
			if len(authors) > 3 {
				authors, suffix = authors[:3], ", et al."
			}
			fmt.Fprintf(w, "    %s%s\n", strings.Join(authors, ", "), suffix)
		}
		fmt.Fprintf(w, "    %s\n\n", p.URL)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func dateOrUnknown(d string) string {
	if d == "" {
		return "undated"
	}
	return d
}
