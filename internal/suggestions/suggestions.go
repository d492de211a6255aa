// Package suggestions provides query autocompletion from a fixed list of
// common academic search terms.
package suggestions

import (
	"slices"
	"strings"
)

const (
	// MinQueryLength is the shortest query that yields suggestions.
	MinQueryLength = 2
	// MaxSuggestions caps the number of returned terms.
	MaxSuggestions = 8
)

// DefaultTerms is the built-in term list.
var DefaultTerms = []string{
	"machine learning", "deep learning", "artificial intelligence", "neural networks",
	"cancer", "cancer research", "oncology", "tumor",
	"covid", "covid-19", "coronavirus", "pandemic",
	"climate change", "global warming", "environmental science",
	"quantum computing", "quantum mechanics", "quantum physics",
	"genomics", "genetics", "dna", "rna",
	"biotechnology", "bioinformatics", "molecular biology",
	"data science", "big data", "statistics", "probability",
	"computer vision", "natural language processing", "nlp",
	"robotics", "automation", "control systems",
	"renewable energy", "solar power", "wind energy",
	"drug discovery", "pharmaceuticals", "medicinal chemistry",
}

// Suggester matches queries against a term list.
type Suggester struct {
	terms []string
}

// New creates a Suggester over terms. A nil slice selects DefaultTerms.
func New(terms []string) *Suggester {
	if terms == nil {
		terms = DefaultTerms
	}
	return &Suggester{terms: terms}
}

// Suggest returns the terms containing query, prefix matches first and
// otherwise in list order. Queries shorter than MinQueryLength after trimming
// return an empty slice.
func (s *Suggester) Suggest(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if len(q) < MinQueryLength {
		return []string{}
	}

	matches := make([]string, 0, MaxSuggestions)
	for _, term := range s.terms {
		if strings.Contains(term, q) {
			matches = append(matches, term)
		}
	}

	slices.SortStableFunc(matches, func(a, b string) int {
		return rank(b, q) - rank(a, q)
	})

	if len(matches) > MaxSuggestions {
		matches = matches[:MaxSuggestions]
	}
	return matches
}

func rank(term, q string) int {
	if strings.HasPrefix(term, q) {
		return 2
	}
	return 1
}
