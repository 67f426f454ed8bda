// api/store/event_store.go
package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"webanalytics/api/database"
	"webanalytics/api/models"
	"webanalytics/api/utils"
)

// EventStore is the append-only home of raw analytics events, backed by
// ClickHouse. Events are never updated or deleted once written.
type EventStore struct {
	DB *database.ClickHouseClient
}

func NewEventStore(chClient *database.ClickHouseClient) *EventStore {
	return &EventStore{
		DB: chClient,
	}
}

// InsertEvent writes a single ingested event. Column order must exactly match
// the analytics_events table schema.
func (s *EventStore) InsertEvent(ctx context.Context, event models.AnalyticsEvent) error {
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO analytics_events (
			event_id, timestamp, referrer, screen_width, is_pwa,
			navigation_data, country, anonymous_id, browser_info,
			browser_name, browser_os
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}

	err = batch.Append(
		event.EventID,
		event.Timestamp,
		event.Referrer,
		uint32(event.ScreenWidth),
		event.IsPWA,
		event.NavigationData,
		event.Country,
		event.AnonymousID,
		event.BrowserInfo,
		event.BrowserName,
		event.BrowserOS,
	)
	if err != nil {
		return fmt.Errorf("failed to append event (EventID: %s): %w", event.EventID, err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send event batch: %w", err)
	}

	return nil
}

// GetEventCountsOverTime returns ingested-event counts bucketed by the given
// ClickHouse interval (e.g. "Day", "Hour") between start and end.
func (s *EventStore) GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time) ([]models.EventCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	query := fmt.Sprintf(`
		SELECT toStartOf%s(timestamp) AS time_bucket, count() AS total_events
		FROM analytics_events
		WHERE timestamp >= ? AND timestamp <= ?
		GROUP BY time_bucket
		ORDER BY time_bucket ASC
	`, interval)

	rows, err := s.DB.Conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts over time: %w", err)
	}
	defer rows.Close()

	var results []models.EventCountByTime
	for rows.Next() {
		var timeBucket time.Time
		var count uint64
		if err := rows.Scan(&timeBucket, &count); err != nil {
			log.Printf("Error scanning row for event counts over time: %v", err)
			continue
		}
		results = append(results, models.EventCountByTime{
			Time:  timeBucket,
			Count: count,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event counts over time query: %w", err)
	}

	return results, nil
}
