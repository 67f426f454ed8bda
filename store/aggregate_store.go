// api/store/aggregate_store.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"webanalytics/api/models"
)

// AggregateStore maintains the derived aggregates in PostgreSQL. All writes
// go through atomic upsert-increments so concurrent ingestions never lose
// updates; there is no read-modify-write anywhere on this path.
type AggregateStore struct {
	DB *sql.DB
}

func NewAggregateStore(db *sql.DB) *AggregateStore {
	return &AggregateStore{
		DB: db,
	}
}

// IncrementCountry adds one visit to the given country, creating the row on
// first sighting.
func (s *AggregateStore) IncrementCountry(ctx context.Context, country string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO country_stats (country, visits) VALUES ($1, 1)
		ON CONFLICT (country) DO UPDATE SET visits = country_stats.visits + 1
	`, country)
	if err != nil {
		return fmt.Errorf("failed to increment country counter for %q: %w", country, err)
	}
	return nil
}

// AddPageInteraction adds duration to the running interaction time of page,
// creating the row on first sighting.
func (s *AggregateStore) AddPageInteraction(ctx context.Context, page string, duration int64) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO page_interactions (page, interaction_time) VALUES ($1, $2)
		ON CONFLICT (page) DO UPDATE
		SET interaction_time = page_interactions.interaction_time + EXCLUDED.interaction_time
	`, page, duration)
	if err != nil {
		return fmt.Errorf("failed to add page interaction for %q: %w", page, err)
	}
	return nil
}

// RecordUniqueVisitor inserts the IP with its first-seen visit date. The
// primary key makes the insert a no-op for IPs seen before, so the stored
// visit date always stays the first one. Returns whether a new row was
// created.
func (s *AggregateStore) RecordUniqueVisitor(ctx context.Context, ip string, visitDate time.Time) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO unique_visitors (ip, visit_date) VALUES ($1, $2)
		ON CONFLICT (ip) DO NOTHING
	`, ip, visitDate)
	if err != nil {
		return false, fmt.Errorf("failed to record unique visitor: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read unique visitor insert result: %w", err)
	}
	return inserted > 0, nil
}

// GetCountryCounts returns visits per country. An empty map (not an error)
// means nothing has been ingested yet.
func (s *AggregateStore) GetCountryCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT country, visits FROM country_stats`)
	if err != nil {
		return nil, fmt.Errorf("failed to query country counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var country string
		var visits int64
		if err := rows.Scan(&country, &visits); err != nil {
			return nil, fmt.Errorf("failed to scan country count row: %w", err)
		}
		counts[country] = visits
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during country counts query: %w", err)
	}

	return counts, nil
}

// GetUniqueVisitorStats returns the total number of distinct visitor IPs and
// the per-day breakdown by first-seen date, sorted ascending.
func (s *AggregateStore) GetUniqueVisitorStats(ctx context.Context) (models.UniqueVisitorStats, error) {
	stats := models.UniqueVisitorStats{
		PerDay: []models.DailyUsers{},
	}

	if err := s.DB.QueryRowContext(ctx, `SELECT count(*) FROM unique_visitors`).Scan(&stats.Total); err != nil {
		return stats, fmt.Errorf("failed to count unique visitors: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT to_char(visit_date AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, count(*)
		FROM unique_visitors
		GROUP BY day
		ORDER BY day ASC
	`)
	if err != nil {
		return stats, fmt.Errorf("failed to query visitors per day: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bucket models.DailyUsers
		if err := rows.Scan(&bucket.Date, &bucket.UserVisited); err != nil {
			return stats, fmt.Errorf("failed to scan visitors per day row: %w", err)
		}
		stats.PerDay = append(stats.PerDay, bucket)
	}

	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("row error during visitors per day query: %w", err)
	}

	return stats, nil
}

// GetPageInteractions returns the cumulative interaction time per page, in no
// particular order.
func (s *AggregateStore) GetPageInteractions(ctx context.Context) ([]models.PageInteraction, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT page, interaction_time FROM page_interactions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query page interactions: %w", err)
	}
	defer rows.Close()

	interactions := []models.PageInteraction{}
	for rows.Next() {
		var pi models.PageInteraction
		if err := rows.Scan(&pi.Page, &pi.InteractionTime); err != nil {
			return nil, fmt.Errorf("failed to scan page interaction row: %w", err)
		}
		interactions = append(interactions, pi)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during page interactions query: %w", err)
	}

	return interactions, nil
}
