package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TickerDeck/internal/domain/models"
	drepo "TickerDeck/internal/domain/repository"
	pkgkafka "TickerDeck/pkg/kafka"
)

// TicksSchema returns idempotent DDL for the recorded-ticks table.
func TicksSchema(table string) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	ts     DateTime64(3) CODEC(Delta, ZSTD),
	symbol LowCardinality(String),
	price  Float64 CODEC(Gorilla, ZSTD),
	volume Float64 CODEC(Gorilla, ZSTD)
) ENGINE = MergeTree
PARTITION BY toYYYYMMDD(ts)
ORDER BY (symbol, ts)
TTL toDateTime(ts) + INTERVAL 30 DAY`, table)}
}

// ClickHouseTickStore persists recorded ticks and aggregates them into
// intraday bars at query time.
type ClickHouseTickStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseTickStore creates a ClickHouse-backed tick store.
func NewClickHouseTickStore(db *sql.DB, table string) drepo.TickStore {
	return &ClickHouseTickStore{db: db, table: table}
}

func (s *ClickHouseTickStore) Store(ctx context.Context, t *models.Tick) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, volume) VALUES (?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q, t.Time(), t.Symbol, t.Price, t.Volume)
	return err
}

func (s *ClickHouseTickStore) StoreBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	// Multi-row VALUES insert, chunked to bound statement size.
	const chunkSize = 2000
	for start := 0; start < len(ticks); start += chunkSize {
		end := start + chunkSize
		if end > len(ticks) {
			end = len(ticks)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*4)
		for _, t := range ticks[start:end] {
			if t == nil || t.Symbol == "" || t.Timestamp == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?)")
			args = append(args, t.Time(), t.Symbol, t.Price, t.Volume)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, volume) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// QueryBars rolls raw ticks up into OHLCV buckets of the requested
// timeframe. Buckets with no ticks are absent from the result.
func (s *ClickHouseTickStore) QueryBars(ctx context.Context, symbol string, from, to time.Time, tf drepo.Timeframe) ([]models.Bar, error) {
	q := fmt.Sprintf(`SELECT
	toStartOfInterval(ts, INTERVAL %d SECOND) AS bucket,
	argMin(price, ts) AS open,
	max(price)        AS high,
	min(price)        AS low,
	argMax(price, ts) AS close,
	sum(volume)       AS volume
FROM %s
WHERE symbol = ? AND ts >= ? AND ts < ?
GROUP BY bucket
ORDER BY bucket ASC`, tf.Seconds(), s.table)

	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		b := models.Bar{Symbol: symbol}
		if err := rows.Scan(&b.Bucket, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *ClickHouseTickStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseTickStore) Close() error {
	return nil // pool is owned by pkg/clickhouse.Client
}

// KafkaTickPublisher mirrors recorded ticks onto a Kafka topic, keyed by
// symbol so a partition preserves per-symbol order.
type KafkaTickPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaTickPublisher creates a Kafka tick publisher.
func NewKafkaTickPublisher(producer *pkgkafka.Producer, topic string) drepo.TickPublisher {
	return &KafkaTickPublisher{producer: producer, topic: topic}
}

func (p *KafkaTickPublisher) Publish(ctx context.Context, t *models.Tick) error {
	return p.producer.Publish(ctx, p.topic, []byte(t.Symbol), t)
}

func (p *KafkaTickPublisher) PublishBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(ticks))
	for i, t := range ticks {
		msgs[i] = pkgkafka.Message{Key: []byte(t.Symbol), Value: t}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaTickPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
