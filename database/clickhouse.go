package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"webanalytics/api/config"
)

type ClickHouseClient struct {
	Conn clickhouse.Conn
}

// eventsSchema holds the raw, append-only event stream. navigation_data keeps
// the per-page interaction durations exactly as the client reported them so
// aggregates can always be rebuilt from this table.
const eventsSchema = `
CREATE TABLE IF NOT EXISTS analytics_events (
	event_id        UUID,
	timestamp       DateTime64(3, 'UTC'),
	referrer        String,
	screen_width    UInt32,
	is_pwa          Bool,
	navigation_data Map(String, Int64),
	country         LowCardinality(String),
	anonymous_id    FixedString(64),
	browser_info    String,
	browser_name    LowCardinality(String),
	browser_os      LowCardinality(String)
) ENGINE = MergeTree()
ORDER BY (timestamp, event_id)
`

func NewClickHouseDB(cfg *config.Config) (*ClickHouseClient, error) {
	if cfg.ClickHouseHost == "" || cfg.ClickHouseDB == "" {
		return nil, fmt.Errorf("CLICKHOUSE_HOST or CLICKHOUSE_DB_NAME environment variables are not set")
	}

	options := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.ClickHouseHost, cfg.ClickHousePort)},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDB,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: "webanalytics-api", Version: "1.0.0"}},
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: time.Second * 5,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse via Native TCP: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if err := conn.Exec(ctx, eventsSchema); err != nil {
		return nil, fmt.Errorf("failed to create analytics_events table: %w", err)
	}

	log.Println("Successfully connected to ClickHouse database via Native TCP!")
	return &ClickHouseClient{Conn: conn}, nil
}

func (c *ClickHouseClient) Close() {
	if c.Conn != nil {
		c.Conn.Close()
		log.Println("ClickHouse connection closed.")
	}
}
