package di

import (
	"context"
	"fmt"
	"time"

	"TickerDeck/internal/domain/repository"
	"TickerDeck/internal/handler/api"
	mid "TickerDeck/internal/middleware"
	internalrepo "TickerDeck/internal/repository"
	svccache "TickerDeck/internal/service/cache"
	"TickerDeck/internal/service/feed"
	"TickerDeck/internal/service/polygon"
	"TickerDeck/internal/service/ratelimit"
	"TickerDeck/internal/service/search"
	"TickerDeck/internal/usecase"
	pkgcache "TickerDeck/pkg/cache"
	pkgch "TickerDeck/pkg/clickhouse"
	"TickerDeck/pkg/config"
	xhttp "TickerDeck/pkg/http"
	pkgkafka "TickerDeck/pkg/kafka"
	"TickerDeck/pkg/logger"
	"TickerDeck/pkg/metrics"
	"TickerDeck/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lc := &logger.Config{Level: "info", Format: "json", Output: "stdout"}
	if cfg.Environment == "development" {
		lc.Level = "debug"
		lc.Format = "console"
	}
	return logger.New(lc)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideLayoutStore selects the layout persistence backend. Redis when
// configured, in-process memory otherwise.
func ProvideLayoutStore(cfg *config.Config, log *logger.Logger) (repository.LayoutStore, error) {
	if !cfg.Redis.Enabled {
		return internalrepo.NewMemoryLayoutStore(), nil
	}
	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "tickerdeck"
	}
	c, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("layout store redis: %w", err)
	}
	return internalrepo.NewCacheLayoutStore(pkgcache.NewLayeredCache(c), log), nil
}

// ProvideSnapshotCache creates the short-TTL cache in front of the vendor
// snapshot endpoint.
func ProvideSnapshotCache(cfg *config.Config) svccache.BytesCache {
	if cfg.Redis.Enabled {
		return svccache.NewRedisCache(svccache.RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return svccache.NewTTLCache()
}

// ProvideMarketData creates the vendor REST client for the stocks market.
func ProvideMarketData(cfg *config.Config, log *logger.Logger, cache svccache.BytesCache) repository.MarketData {
	ttl := cfg.Polygon.SnapshotCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return polygon.NewRESTClient(
		cfg.Polygon.RESTURL,
		cfg.Polygon.APIKey,
		polygon.MarketStocks,
		log,
		polygon.WithSnapshotCache(cache, ttl),
	)
}

// ProvideFeeds creates one connection manager per configured market feed.
func ProvideFeeds(cfg *config.Config, log *logger.Logger, m repository.Metrics) *polygon.Feeds {
	opts := []feed.Option{
		feed.WithBackoff(cfg.Feed.BackoffBase, cfg.Feed.BackoffCap, cfg.Feed.MaxAttempts),
	}
	if cfg.Feed.FlushDelay > 0 {
		opts = append(opts, feed.WithFlushDelay(cfg.Feed.FlushDelay))
	}
	if cfg.Feed.SilentWindow > 0 {
		opts = append(opts, feed.WithSilentWindow(cfg.Feed.SilentWindow))
	}

	build := func(name, wsURL, market string) *feed.Manager {
		mgrOpts := append([]feed.Option{
			feed.WithSymbolFormat(polygon.Normalizer(market), polygon.ChannelFunc(market)),
		}, opts...)
		return feed.NewManager(
			name,
			cfg.Polygon.APIKey,
			polygon.NewDialer(wsURL, cfg.Polygon.PingInterval),
			log,
			m,
			mgrOpts...,
		)
	}

	feeds := &polygon.Feeds{}
	if cfg.Polygon.StocksWSURL != "" {
		feeds.Stocks = build("stocks", cfg.Polygon.StocksWSURL, polygon.MarketStocks)
	}
	if cfg.Polygon.CryptoWSURL != "" {
		feeds.Crypto = build("crypto", cfg.Polygon.CryptoWSURL, polygon.MarketCrypto)
	}
	return feeds
}

// ProvideSearchService loads the ticker catalog. A missing catalog degrades
// to an empty index rather than failing startup.
func ProvideSearchService(cfg *config.Config, log *logger.Logger) *search.Service {
	if cfg.Search.CatalogPath == "" {
		return search.New(nil)
	}
	listings, err := search.LoadCatalog(cfg.Search.CatalogPath)
	if err != nil {
		log.Warn("ticker catalog unavailable", logger.String("path", cfg.Search.CatalogPath), logger.Error(err))
		return search.New(nil)
	}
	log.Info("ticker catalog loaded", logger.Int("listings", len(listings)))
	return search.New(listings)
}

// ProvideLayoutService creates the board layout service.
func ProvideLayoutService(store repository.LayoutStore, log *logger.Logger, m repository.Metrics, cfg *config.Config) *usecase.LayoutService {
	return usecase.NewLayoutService(store, log, m,
		usecase.WithMinWidgetSize(cfg.Layout.MinWidth, cfg.Layout.MinHeight),
	)
}

// ProvideClickHouseClient creates a ClickHouse client when the recorder
// writes there; nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.Recorder.Enabled || cfg.Recorder.Backend != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := append(
		[]string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database)},
		internalrepo.TicksSchema(ticksTable(cfg))...,
	)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func ticksTable(cfg *config.Config) string {
	table := cfg.ClickHouse.TicksTable
	if table == "" {
		table = "ticks"
	}
	return cfg.ClickHouse.Database + "." + table
}

// ProvideKafkaProducer creates a Kafka producer when the recorder publishes
// there; nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Recorder.Enabled || cfg.Recorder.Backend != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideTickStore creates the ClickHouse tick store when available.
func ProvideTickStore(chClient *pkgch.Client, cfg *config.Config) repository.TickStore {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseTickStore(chClient.DB(), ticksTable(cfg))
}

// ProvideTickPublisher creates the Kafka tick publisher when available.
func ProvideTickPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.TickPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaTickPublisher(producer, cfg.Kafka.Topic)
}

// ProvideTickProcessor creates the backend router for recorded ticks.
func ProvideTickProcessor(pub repository.TickPublisher, store repository.TickStore, m repository.Metrics, cfg *config.Config) *usecase.TickProcessor {
	return usecase.NewTickProcessor(pub, store, m, cfg.Recorder.Backend)
}

// ProvideRecorder creates the wildcard feed recorder; nil when disabled.
func ProvideRecorder(cfg *config.Config, feeds *polygon.Feeds, proc *usecase.TickProcessor, m repository.Metrics, log *logger.Logger) *usecase.Recorder {
	if !cfg.Recorder.Enabled {
		return nil
	}
	batch := usecase.NewBatcher(proc, cfg.Recorder.BatchSize, cfg.Recorder.BatchTimeout)
	pipe := mid.NewRealtimePipeline(batch, m,
		mid.WithMaxRPS(cfg.Recorder.MaxRPS),
		mid.WithBufferSize(cfg.Recorder.BufferSize),
	)
	return usecase.NewRecorder(feeds.Managers(), pipe, batch, m, log)
}

// ProvideBarsUseCase creates the chart bars use case.
func ProvideBarsUseCase(store repository.TickStore, market repository.MarketData) *usecase.BarsUseCase {
	return usecase.NewBarsUseCase(store, market)
}

// ProvideLimiter creates the per-client subscribe rate limiter.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideHTTPHandler assembles the API surface.
func ProvideHTTPHandler(
	log *logger.Logger,
	layouts *usecase.LayoutService,
	searchSvc *search.Service,
	market repository.MarketData,
	bars *usecase.BarsUseCase,
	feeds *polygon.Feeds,
	m repository.Metrics,
	limiter *ratelimit.Limiter,
) xhttp.Handler {
	layoutH := api.NewLayoutEchoHandler(log, layouts)
	marketH := api.NewMarketEchoHandler(log, searchSvc, market, bars, polygon.Normalizer(polygon.MarketStocks))
	streamH := api.NewStreamEchoHandler(log, feeds.ForSymbol, m, limiter)
	return api.NewRouter(layoutH, marketH, streamH)
}

// kafkaLogPublisher lets the log collector ship aggregated error logs
// through the shared Kafka producer.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.producer.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server. When a Kafka producer exists,
// error logs are aggregated and shipped on a side topic.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	feeds *polygon.Feeds,
	recorder *usecase.Recorder,
	proc *usecase.TickProcessor,
	handler xhttp.Handler,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
) *server.App {
	if producer != nil {
		log.AddCollector(&logger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.Topic + ".errors",
			Publisher:      kafkaLogPublisher{producer: producer},
		})
	}
	return server.New(cfg, log, feeds, recorder, proc, handler, chClient)
}
