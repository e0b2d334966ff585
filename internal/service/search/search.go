package search

import (
	"sort"
	"strings"

	"TickerDeck/internal/domain/models"

	"github.com/agnivade/levenshtein"
)

// Ranking tiers. Ties inside a tier break on symbol length then
// lexicographic order, so "A" outranks "AAPL" for the query "a".
const (
	scoreExactSymbol  = 1000
	scoreSymbolPrefix = 800
	scoreNamePrefix   = 600
	scoreSymbolSubstr = 500
	scoreNameSubstr   = 400
	scoreFuzzy        = 200
)

// maxFuzzyDistance bounds the edit distance considered a match.
const maxFuzzyDistance = 2

// Service answers ticker searches over the loaded catalog.
type Service struct {
	listings []models.Listing
}

// New creates a search service over a catalog.
func New(listings []models.Listing) *Service {
	return &Service{listings: listings}
}

// Len returns the catalog size.
func (s *Service) Len() int { return len(s.listings) }

// Search ranks catalog entries against the query. An empty query or a query
// with no matches yields an empty slice, never an error.
func (s *Service) Search(query string, limit int) []models.SearchResult {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return []models.SearchResult{}
	}
	if limit <= 0 {
		limit = 10
	}

	results := make([]models.SearchResult, 0, limit)
	for _, l := range s.listings {
		score := rank(q, l)
		if score == 0 {
			continue
		}
		if !l.Active {
			score -= 50
		}
		results = append(results, models.SearchResult{Listing: l, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if len(results[i].Symbol) != len(results[j].Symbol) {
			return len(results[i].Symbol) < len(results[j].Symbol)
		}
		return results[i].Symbol < results[j].Symbol
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func rank(q string, l models.Listing) int {
	sym := l.Symbol
	name := strings.ToUpper(l.Name)

	switch {
	case sym == q:
		return scoreExactSymbol
	case strings.HasPrefix(sym, q):
		return scoreSymbolPrefix
	case strings.HasPrefix(name, q):
		return scoreNamePrefix
	case strings.Contains(sym, q):
		return scoreSymbolSubstr
	case strings.Contains(name, q):
		return scoreNameSubstr
	}

	// fuzzy fallback for near-miss symbols only; names are too noisy
	if d := levenshtein.ComputeDistance(q, sym); d <= maxFuzzyDistance {
		return scoreFuzzy - d
	}
	return 0
}
