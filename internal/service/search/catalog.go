package search

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"TickerDeck/internal/domain/models"
)

// LoadCatalog reads a ticker listing CSV: symbol,name,market,active.
// A header row is detected and skipped; inactive rows are kept but ranked
// below active ones by the searcher.
func LoadCatalog(path string) ([]models.Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return ParseCatalog(f)
}

// ParseCatalog reads catalog rows from r.
func ParseCatalog(r io.Reader) ([]models.Listing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var listings []models.Listing
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		if len(rec) < 2 {
			continue
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(rec[0]), "symbol") {
				continue
			}
		}
		l := models.Listing{
			Symbol: strings.ToUpper(strings.TrimSpace(rec[0])),
			Name:   strings.TrimSpace(rec[1]),
			Market: "stocks",
			Active: true,
		}
		if l.Symbol == "" {
			continue
		}
		if len(rec) > 2 && strings.TrimSpace(rec[2]) != "" {
			l.Market = strings.ToLower(strings.TrimSpace(rec[2]))
		}
		if len(rec) > 3 {
			l.Active = strings.EqualFold(strings.TrimSpace(rec[3]), "true")
		}
		listings = append(listings, l)
	}
	return listings, nil
}
