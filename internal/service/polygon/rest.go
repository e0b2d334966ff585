package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"TickerDeck/internal/domain/models"
	svccache "TickerDeck/internal/service/cache"
	xhttp "TickerDeck/pkg/http"
	"TickerDeck/pkg/logger"
)

// RESTClient consumes the vendor's read-only snapshot and aggregate
// endpoints for one market.
type RESTClient struct {
	http     *xhttp.Client
	baseURL  string
	apiKey   string
	market   string
	log      *logger.Logger
	cache    svccache.BytesCache
	cacheTTL time.Duration
}

// RESTOption configures RESTClient.
type RESTOption func(*RESTClient)

// WithSnapshotCache caches snapshot responses for ttl. Late or repeated
// widget mounts then avoid hammering the vendor.
func WithSnapshotCache(c svccache.BytesCache, ttl time.Duration) RESTOption {
	return func(r *RESTClient) {
		r.cache = c
		r.cacheTTL = ttl
	}
}

// NewRESTClient creates a REST client for one market.
func NewRESTClient(baseURL, apiKey, market string, log *logger.Logger, opts ...RESTOption) *RESTClient {
	r := &RESTClient{
		http:    xhttp.NewClient(xhttp.WithTimeout(15 * time.Second)),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		market:  market,
		log:     log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type aggJSON struct {
	T int64   `json:"t"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

func (a aggJSON) toBar(symbol string) models.Bar {
	return models.Bar{
		Symbol: symbol,
		Bucket: time.UnixMilli(a.T),
		Open:   a.O,
		High:   a.H,
		Low:    a.L,
		Close:  a.C,
		Volume: a.V,
	}
}

type snapshotResponse struct {
	Tickers []struct {
		Ticker    string  `json:"ticker"`
		Day       aggJSON `json:"day"`
		PrevDay   aggJSON `json:"prevDay"`
		LastTrade struct {
			P float64 `json:"p"`
		} `json:"lastTrade"`
	} `json:"tickers"`
}

type aggsResponse struct {
	Ticker  string    `json:"ticker"`
	Results []aggJSON `json:"results"`
}

// Snapshots returns today's bar, the previous session's bar, and the last
// trade price for each requested canonical ticker.
func (r *RESTClient) Snapshots(ctx context.Context, tickers []string) ([]models.Snapshot, error) {
	if len(tickers) == 0 {
		return []models.Snapshot{}, nil
	}
	restTickers := make([]string, len(tickers))
	for i, t := range tickers {
		restTickers[i] = RESTSymbol(r.market, t)
	}
	sort.Strings(restTickers)
	joined := strings.Join(restTickers, ",")

	cacheKey := "snapshots:" + r.market + ":" + joined
	if r.cache != nil {
		if b, ok, err := r.cache.GetBytes(cacheKey); err == nil && ok {
			var cached []models.Snapshot
			if err := json.Unmarshal(b, &cached); err == nil {
				return cached, nil
			}
			// stale/garbage cache entries fall through to the vendor
		}
	}

	locale := "us"
	if r.market == MarketCrypto {
		locale = "global"
	}
	var resp snapshotResponse
	err := r.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/v2/snapshot/locale/%s/markets/%s/tickers", r.baseURL, locale, r.market),
		QueryParams: map[string][]string{
			"tickers": {joined},
			"apiKey":  {r.apiKey},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("polygon snapshots: %w", err)
	}

	snaps := make([]models.Snapshot, 0, len(resp.Tickers))
	for _, t := range resp.Tickers {
		s := models.Snapshot{
			Symbol:    t.Ticker,
			Day:       t.Day.toBar(t.Ticker),
			PrevDay:   t.PrevDay.toBar(t.Ticker),
			LastPrice: t.LastTrade.P,
		}
		s.ComputeChange()
		snaps = append(snaps, s)
	}

	if r.cache != nil {
		if b, err := json.Marshal(snaps); err == nil {
			if err := r.cache.SetBytes(cacheKey, b, r.cacheTTL); err != nil {
				r.log.Warn("snapshot cache write failed", logger.Error(err))
			}
		}
	}
	return snaps, nil
}

// DailyBars returns day-resolution bars for one ticker, oldest first.
func (r *RESTClient) DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]models.Bar, error) {
	sym := RESTSymbol(r.market, ticker)
	var resp aggsResponse
	err := r.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL: fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s",
			r.baseURL, sym, from.Format("2006-01-02"), to.Format("2006-01-02")),
		QueryParams: map[string][]string{
			"adjusted": {"true"},
			"sort":     {"asc"},
			"limit":    {"5000"},
			"apiKey":   {r.apiKey},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("polygon daily bars: %w", err)
	}

	bars := make([]models.Bar, 0, len(resp.Results))
	for _, a := range resp.Results {
		bars = append(bars, a.toBar(ticker))
	}
	return bars, nil
}
