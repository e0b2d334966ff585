package polygon

import "testing"

func TestNormalizeStock(t *testing.T) {
	n := Normalizer(MarketStocks)
	if got := n(" aapl "); got != "AAPL" {
		t.Fatalf("got %q", got)
	}
	if got := n("*"); got != "*" {
		t.Fatalf("wildcard mangled: %q", got)
	}
}

func TestNormalizeCrypto(t *testing.T) {
	n := Normalizer(MarketCrypto)
	if got := n("btc-usd"); got != "BTC-USD" {
		t.Fatalf("got %q", got)
	}
	if got := n("X:BTC-USD"); got != "BTC-USD" {
		t.Fatalf("rest spelling not accepted: %q", got)
	}
}

func TestChannelFunc(t *testing.T) {
	if got := ChannelFunc(MarketStocks)("AAPL"); got != "T.AAPL" {
		t.Fatalf("got %q", got)
	}
	if got := ChannelFunc(MarketCrypto)("BTC-USD"); got != "XT.BTC-USD" {
		t.Fatalf("got %q", got)
	}
	if got := ChannelFunc(MarketCrypto)("*"); got != "XT.*" {
		t.Fatalf("got %q", got)
	}
}

func TestRESTSymbol(t *testing.T) {
	if got := RESTSymbol(MarketCrypto, "BTC-USD"); got != "X:BTC-USD" {
		t.Fatalf("got %q", got)
	}
	if got := RESTSymbol(MarketCrypto, "X:BTC-USD"); got != "X:BTC-USD" {
		t.Fatalf("double prefix: %q", got)
	}
	if got := RESTSymbol(MarketStocks, "AAPL"); got != "AAPL" {
		t.Fatalf("got %q", got)
	}
}
