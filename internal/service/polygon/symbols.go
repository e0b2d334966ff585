package polygon

import "strings"

// Markets the vendor exposes as separate feeds.
const (
	MarketStocks = "stocks"
	MarketCrypto = "crypto"
)

// Normalizer returns the canonical-symbol function for a market. The
// canonical spelling is the one live trade events carry, so the multiplexer
// registry and inbound fan-out agree on keys.
func Normalizer(market string) func(string) string {
	switch market {
	case MarketCrypto:
		return normalizeCrypto
	default:
		return normalizeStock
	}
}

// ChannelFunc returns the subscription channel builder for a market:
// "T.AAPL" for stock trades, "XT.BTC-USD" for crypto trades. The wildcard
// passes through as "T.*" / "XT.*".
func ChannelFunc(market string) func(string) string {
	prefix := "T."
	if market == MarketCrypto {
		prefix = "XT."
	}
	return func(canonical string) string {
		return prefix + canonical
	}
}

// RESTSymbol converts a canonical feed symbol to the spelling the REST API
// expects: crypto pairs gain the "X:" prefix, stocks are unchanged.
func RESTSymbol(market, canonical string) string {
	if market == MarketCrypto && !strings.HasPrefix(canonical, "X:") {
		return "X:" + canonical
	}
	return canonical
}

func normalizeStock(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func normalizeCrypto(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	// accept the REST spelling on input
	s = strings.TrimPrefix(s, "X:")
	return s
}
