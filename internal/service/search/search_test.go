package search

import (
	"strings"
	"testing"
)

const testCatalog = `symbol,name,market,active
AAPL,Apple Inc.,stocks,true
AAL,American Airlines Group,stocks,true
A,Agilent Technologies,stocks,true
MSFT,Microsoft Corporation,stocks,true
GOOG,Alphabet Inc. Class C,stocks,true
BTC-USD,Bitcoin / US Dollar,crypto,true
ETH-USD,Ethereum / US Dollar,crypto,true
YELP,Yelp Inc.,stocks,true
YHOO,Yahoo! Inc.,stocks,false
`

func testService(t *testing.T) *Service {
	t.Helper()
	listings, err := ParseCatalog(strings.NewReader(testCatalog))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return New(listings)
}

func TestParseCatalog(t *testing.T) {
	s := testService(t)
	if s.Len() != 9 {
		t.Fatalf("listings = %d", s.Len())
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	s := testService(t)
	if got := s.Search("", 10); len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}
	if got := s.Search("   ", 10); len(got) != 0 {
		t.Fatalf("expected no results for blank query, got %d", len(got))
	}
}

func TestSearchExactBeatsPrefix(t *testing.T) {
	s := testService(t)
	got := s.Search("a", 10)
	if len(got) == 0 || got[0].Symbol != "A" {
		t.Fatalf("expected exact match first, got %+v", got)
	}
}

func TestSearchPrefixOrdering(t *testing.T) {
	s := testService(t)
	got := s.Search("AA", 10)
	if len(got) < 2 {
		t.Fatalf("results = %+v", got)
	}
	// both are prefix matches; shorter symbol wins the tie
	if got[0].Symbol != "AAL" || got[1].Symbol != "AAPL" {
		t.Fatalf("ordering = %s, %s", got[0].Symbol, got[1].Symbol)
	}
}

func TestSearchByName(t *testing.T) {
	s := testService(t)
	got := s.Search("microsoft", 10)
	if len(got) == 0 || got[0].Symbol != "MSFT" {
		t.Fatalf("got %+v", got)
	}
}

func TestSearchFuzzy(t *testing.T) {
	s := testService(t)
	got := s.Search("MSTF", 10)
	if len(got) == 0 || got[0].Symbol != "MSFT" {
		t.Fatalf("fuzzy miss: %+v", got)
	}
}

func TestSearchZeroResults(t *testing.T) {
	s := testService(t)
	if got := s.Search("ZZZZZZZZ", 10); len(got) != 0 {
		t.Fatalf("expected empty, got %+v", got)
	}
}

func TestSearchLimit(t *testing.T) {
	s := testService(t)
	if got := s.Search("USD", 1); len(got) != 1 {
		t.Fatalf("limit not applied: %d", len(got))
	}
}

func TestInactiveRankedBelow(t *testing.T) {
	s := testService(t)
	got := s.Search("Y", 10)
	if len(got) < 2 {
		t.Fatalf("results = %+v", got)
	}
	// YELP and YHOO share the prefix tier; the inactive one loses
	if got[0].Symbol != "YELP" || got[1].Symbol != "YHOO" {
		t.Fatalf("ordering = %s, %s", got[0].Symbol, got[1].Symbol)
	}
}
