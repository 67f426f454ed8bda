package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"webanalytics/api/config"
)

type DBClient struct {
	DB *sql.DB
}

// aggregateSchema creates the three aggregate tables. The primary keys double
// as the uniqueness backstop for the upsert-based increments: concurrent
// writers can race, the constraint cannot.
const aggregateSchema = `
CREATE TABLE IF NOT EXISTS country_stats (
	country TEXT PRIMARY KEY,
	visits  BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS page_interactions (
	page             TEXT PRIMARY KEY,
	interaction_time BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS unique_visitors (
	ip         TEXT PRIMARY KEY,
	visit_date TIMESTAMPTZ NOT NULL
);
`

func NewPostgresDB(cfg *config.Config) (*DBClient, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("error opening database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database (ping failed): %w", err)
	}

	if _, err := db.Exec(aggregateSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating aggregate tables: %w", err)
	}

	log.Println("Successfully connected to PostgreSQL database!")
	return &DBClient{DB: db}, nil
}

func (c *DBClient) Close() {
	if c.DB != nil {
		err := c.DB.Close()
		if err != nil {
			log.Printf("Error closing database connection: %v", err)
		} else {
			log.Println("PostgreSQL database connection closed.")
		}
	}
}
