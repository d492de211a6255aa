package pmc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-search-service/internal/domain"
	"github.com/helixir/paper-search-service/internal/papersources"
)

const esearchJSON = `{
  "header": {"type": "esearch", "version": "0.3"},
  "esearchresult": {"count": "120", "retmax": "3", "retstart": "0", "idlist": ["11111", "22222", "33333"]}
}`

const efetchXML = `<?xml version="1.0" ?>
<!DOCTYPE pmc-articleset PUBLIC "-//NLM//DTD ARTICLE SET 2.0//EN" "https://dtd.nlm.nih.gov/ncbi/pmc/articleset/nlm-articleset-2.0.dtd">
<pmc-articleset>
<article article-type="research-article">
  <front>
    <journal-meta>
      <journal-title-group><journal-title>Cancer Research</journal-title></journal-title-group>
    </journal-meta>
    <article-meta>
      <article-id pub-id-type="pmid">38000001</article-id>
      <article-id pub-id-type="pmc">11111</article-id>
      <article-id pub-id-type="doi">10.1234/cr.2024.1</article-id>
      <article-categories>
        <subj-group subj-group-type="heading"><subject>Oncology</subject></subj-group>
        <subj-group><subject>Genomics</subject></subj-group>
      </article-categories>
      <title-group><article-title>Tumor <italic>in vivo</italic> profiling &amp; more</article-title></title-group>
      <contrib-group>
        <contrib contrib-type="author"><name><surname>Curie</surname><given-names>Marie</given-names></name></contrib>
        <contrib contrib-type="editor"><name><surname>Editor</surname><given-names>Ed</given-names></name></contrib>
        <contrib contrib-type="author"><name><surname>Pasteur</surname></name></contrib>
      </contrib-group>
      <pub-date pub-type="epub"><day>7</day><month>3</month><year>2024</year></pub-date>
      <pub-date pub-type="ppub"><year>2025</year></pub-date>
      <abstract><sec><title>Background</title><p>Tumors grow.</p></sec><sec><title>Results</title><p>They <bold>shrink</bold>.</p></sec></abstract>
    </article-meta>
  </front>
  <back><ref-list><ref><element-citation><article-title>Cited work</article-title></element-citation></ref></ref-list></back>
</article>
<article>
  <front>
    <journal-meta><journal-title>Old Journal</journal-title></journal-meta>
    <article-meta>
      <article-id pub-id-type="pmid">38000002</article-id>
      <title-group><article-title>Second study</article-title></title-group>
      <pub-date><year>20</year></pub-date>
      <pub-date><month>11</month><year>2023</year></pub-date>
    </article-meta>
  </front>
</article>
<article>
  <front>
    <article-meta>
      <article-id pub-id-type="pmc">PMC33333</article-id>
      <title-group><article-title>   </article-title></title-group>
    </article-meta>
  </front>
</article>
</pmc-articleset>`

type fakeEutils struct {
	mu       sync.Mutex
	requests []*http.Request
	esearch  string
	efetch   string
	status   int
}

func (f *fakeEutils) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Clone(context.Background()))
	f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	switch {
	case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
		_, _ = w.Write([]byte(f.esearch))
	case strings.HasSuffix(r.URL.Path, "/efetch.fcgi"):
		_, _ = w.Write([]byte(f.efetch))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeEutils) queries() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]url.Values, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.URL.Query()
	}
	return out
}

func newTestClient(t *testing.T, fake *fakeEutils) *Client {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	lane := papersources.NewLane(server.Client(), papersources.LaneConfig{
		Interval:   time.Millisecond,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})
	t.Cleanup(lane.Close)

	client := New(Config{BaseURL: server.URL, Tool: "TestTool", Email: "test@example.com", Enabled: true}, lane)
	client.now = func() time.Time { return time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC) }
	return client
}

func TestClient_Metadata(t *testing.T) {
	client := New(Config{Enabled: true}, nil)

	assert.Equal(t, domain.SourceTypePMC, client.SourceType())
	assert.Equal(t, "PMC", client.Name())
	assert.True(t, client.IsEnabled())
	assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
	assert.Equal(t, DefaultTool, client.config.Tool)
}

func TestClient_Search(t *testing.T) {
	t.Run("two-step search parses JATS", func(t *testing.T) {
		fake := &fakeEutils{esearch: esearchJSON, efetch: efetchXML}
		client := newTestClient(t, fake)

		papers, err := client.Search(context.Background(), papersources.SearchParams{
			Query:      "tumor",
			DateFilter: domain.DateFilterAny,
			Page:       2,
			Limit:      3,
		})
		require.NoError(t, err)
		require.Len(t, papers, 2)

		first := papers[0]
		assert.Equal(t, "10.1234/cr.2024.1", first.ID)
		assert.Equal(t, "Tumor in vivo profiling & more", first.Title)
		assert.Equal(t, "Background Tumors grow. Results They shrink.", first.Abstract)
		assert.Equal(t, []string{"Marie Curie", "Pasteur"}, first.Authors)
		assert.Equal(t, "38000001", first.PMID)
		assert.Equal(t, "10.1234/cr.2024.1", first.DOI)
		assert.Equal(t, "2024-03-07", first.PublishedDate)
		assert.Equal(t, "Cancer Research", first.Category)
		assert.Equal(t, []string{"Oncology", "Genomics"}, first.Keywords)
		assert.Equal(t, "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC11111/", first.URL)
		assert.Equal(t, domain.SourceTypePMC, first.Source)

		second := papers[1]
		assert.Equal(t, "38000002", second.ID)
		assert.Equal(t, "2023-11-01", second.PublishedDate)
		assert.Equal(t, "Old Journal", second.Category)
		assert.Equal(t, "https://www.ncbi.nlm.nih.gov/pubmed/38000002", second.URL)
		assert.Empty(t, second.Abstract)
		assert.Empty(t, second.Authors)

		queries := fake.queries()
		require.Len(t, queries, 2)

		search := queries[0]
		assert.Equal(t, "pmc", search.Get("db"))
		assert.Equal(t, "tumor", search.Get("term"))
		assert.Equal(t, "json", search.Get("retmode"))
		assert.Equal(t, "3", search.Get("retmax"))
		assert.Equal(t, "3", search.Get("retstart"))
		assert.Equal(t, "relevance", search.Get("sort"))
		assert.Equal(t, "TestTool", search.Get("tool"))
		assert.Equal(t, "test@example.com", search.Get("email"))

		fetch := queries[1]
		assert.Equal(t, "11111,22222,33333", fetch.Get("id"))
		assert.Equal(t, "xml", fetch.Get("retmode"))
		assert.Equal(t, "TestTool", fetch.Get("tool"))
	})

	t.Run("empty id list skips efetch", func(t *testing.T) {
		fake := &fakeEutils{esearch: `{"esearchresult":{"count":"0","idlist":[]}}`}
		client := newTestClient(t, fake)

		papers, err := client.Search(context.Background(), papersources.SearchParams{Query: "zzz", Page: 1, Limit: 20})
		require.NoError(t, err)
		assert.Empty(t, papers)
		assert.Len(t, fake.queries(), 1)
	})

	t.Run("esearch error field is an error", func(t *testing.T) {
		fake := &fakeEutils{esearch: `{"esearchresult":{"ERROR":"Invalid query"}}`}
		client := newTestClient(t, fake)

		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "((", Page: 1, Limit: 20})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid query")
	})

	t.Run("throttled after retries surfaces rate limit", func(t *testing.T) {
		fake := &fakeEutils{status: http.StatusTooManyRequests}
		client := newTestClient(t, fake)

		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "x", Page: 1, Limit: 20})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrRateLimited))
		assert.Len(t, fake.queries(), 2)
	})
}

func TestClient_buildTerm(t *testing.T) {
	client := New(Config{}, nil)
	client.now = func() time.Time { return time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		filter domain.DateFilter
		want   string
	}{
		{domain.DateFilterAny, "cancer"},
		{domain.DateFilterYear2024, "cancer AND 2024[PDAT]"},
		{domain.DateFilterYear2025, "cancer AND 2025[PDAT]"},
		{domain.DateFilterLastYear, "cancer AND 2024/06/10[PDAT]:3000[PDAT]"},
		{domain.DateFilterLast6Months, "cancer AND 2024/12/10[PDAT]:3000[PDAT]"},
		{domain.DateFilterLast30Days, "cancer AND 2025/05/11[PDAT]:3000[PDAT]"},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			got := client.buildTerm(papersources.SearchParams{Query: " cancer ", DateFilter: tt.filter})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPaperURL(t *testing.T) {
	assert.Equal(t, "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC1/", paperURL(domain.PaperIdentifiers{PMCID: "PMC1", PMID: "2", DOI: "3"}))
	assert.Equal(t, "https://www.ncbi.nlm.nih.gov/pubmed/2", paperURL(domain.PaperIdentifiers{PMID: "2", DOI: "3"}))
	assert.Equal(t, "https://doi.org/3", paperURL(domain.PaperIdentifiers{DOI: "3"}))
	assert.Equal(t, "#", paperURL(domain.PaperIdentifiers{}))
}

func TestNormalizePMCID(t *testing.T) {
	assert.Equal(t, "PMC123", normalizePMCID("123"))
	assert.Equal(t, "PMC123", normalizePMCID("PMC123"))
	assert.Equal(t, "PMC123", normalizePMCID("pmc123"))
	assert.Equal(t, "", normalizePMCID(""))
}

func TestArticleToPaper_FallbackID(t *testing.T) {
	paper, ok := articleToPaper(&Article{Front: Front{ArticleMeta: ArticleMeta{Title: Markup{Inner: "Untracked"}}}})
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(paper.ID, "pmc-"))
	assert.Equal(t, "#", paper.URL)
}
