package polygon

import (
	"strings"

	"TickerDeck/internal/service/feed"
)

// Feeds groups the per-market connection managers. Either may be nil when
// that market is not configured.
type Feeds struct {
	Stocks *feed.Manager
	Crypto *feed.Manager
}

// ForSymbol routes a client-supplied symbol to the feed serving it and
// returns the symbol's canonical form on that feed. Crypto is recognized by
// the X: prefix or a base-quote pair separator.
func (f *Feeds) ForSymbol(symbol string) (*feed.Manager, string) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return nil, ""
	}
	if strings.HasPrefix(s, "X:") || strings.Contains(s, "-") {
		if f.Crypto == nil {
			return nil, ""
		}
		return f.Crypto, normalizeCrypto(s)
	}
	if f.Stocks == nil {
		return nil, ""
	}
	return f.Stocks, normalizeStock(s)
}

// Managers returns the configured managers.
func (f *Feeds) Managers() []*feed.Manager {
	var out []*feed.Manager
	if f.Stocks != nil {
		out = append(out, f.Stocks)
	}
	if f.Crypto != nil {
		out = append(out, f.Crypto)
	}
	return out
}

// Close tears down every configured feed.
func (f *Feeds) Close() {
	for _, m := range f.Managers() {
		m.Close()
	}
}
