package models

// Listing is one row of the ticker catalog.
type Listing struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Market string `json:"market"` // "stocks" or "crypto"
	Active bool   `json:"active"`
}

// SearchResult is a ranked catalog match.
type SearchResult struct {
	Listing
	Score int `json:"-"`
}
