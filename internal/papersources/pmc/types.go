// Package pmc provides a client for PubMed Central through the NCBI
// E-utilities API.
//
// A search is two calls: esearch (JSON) resolves the query to PMC ids and
// efetch returns JATS XML for those ids. Both calls are paced by a shared
// papersources.Lane.
//
// The E-utilities API documentation is available at:
// https://www.ncbi.nlm.nih.gov/books/NBK25499/
package pmc

// ESearchResponse is the JSON envelope returned by esearch.fcgi.
type ESearchResponse struct {
	Result ESearchResult `json:"esearchresult"`
}

// ESearchResult holds the matching ids for one esearch call.
type ESearchResult struct {
	Count    string   `json:"count"`
	RetMax   string   `json:"retmax"`
	RetStart string   `json:"retstart"`
	IDList   []string `json:"idlist"`
	Error    string   `json:"ERROR,omitempty"`
}

// ArticleSet is the <pmc-articleset> document returned by efetch.fcgi.
type ArticleSet struct {
	Articles []Article `xml:"article"`
}

// Article is one JATS <article>. Only front matter is read.
type Article struct {
	Front Front `xml:"front"`
}

// Front holds the journal and article metadata.
type Front struct {
	JournalMeta JournalMeta `xml:"journal-meta"`
	ArticleMeta ArticleMeta `xml:"article-meta"`
}

// JournalMeta identifies the publishing journal. Older JATS versions place
// journal-title directly under journal-meta.
type JournalMeta struct {
	GroupedTitles []Markup `xml:"journal-title-group>journal-title"`
	Titles        []Markup `xml:"journal-title"`
}

// ArticleMeta carries the bibliographic fields of one article.
type ArticleMeta struct {
	ArticleIDs []ArticleID `xml:"article-id"`
	Subjects   []Markup    `xml:"article-categories>subj-group>subject"`
	Title      Markup      `xml:"title-group>article-title"`
	Contribs   []Contrib   `xml:"contrib-group>contrib"`
	PubDates   []PubDate   `xml:"pub-date"`
	Abstracts  []Markup    `xml:"abstract"`
}

// Markup captures an element's raw inner XML so inline tags (<italic>,
// <sup>, <sec>) can be stripped rather than dropped.
type Markup struct {
	Inner string `xml:",innerxml"`
}

// ArticleID is a typed identifier such as pmid, pmc or doi.
type ArticleID struct {
	Type  string `xml:"pub-id-type,attr"`
	Value string `xml:",chardata"`
}

// Contrib is a contributor entry; only contrib-type="author" is used.
type Contrib struct {
	Type       string `xml:"contrib-type,attr"`
	Surname    string `xml:"name>surname"`
	GivenNames string `xml:"name>given-names"`
}

// PubDate is one <pub-date> block. Month and day are optional.
type PubDate struct {
	Type  string `xml:"pub-type,attr"`
	Year  string `xml:"year"`
	Month string `xml:"month"`
	Day   string `xml:"day"`
}
