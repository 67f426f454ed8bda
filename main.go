// api/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"webanalytics/api/config"
	"webanalytics/api/database"
	"webanalytics/api/geoip"
	"webanalytics/api/handlers"
	"webanalytics/api/ingest"
	"webanalytics/api/middleware"
	"webanalytics/api/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Initialize PostgreSQL (aggregate tables) ---
	dbClient, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
	}
	defer dbClient.Close()

	// --- Initialize ClickHouse (raw event stream) ---
	chClient, err := database.NewClickHouseDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize ClickHouse database: %v", err)
	}
	defer chClient.Close()

	// --- Initialize GeoIP resolver ---
	// The database loads in the background; until it is ready (or if the
	// file is missing) every lookup resolves to "unknown" and ingestion
	// carries on.
	geoResolver := geoip.NewResolver()
	go func() {
		if err := geoResolver.Open(cfg.GeoIPDBPath); err != nil {
			log.Printf("GeoIP disabled, country resolution degrades to %q: %v", geoip.Unknown, err)
		} else {
			log.Printf("GeoIP database loaded from %s", cfg.GeoIPDBPath)
		}
	}()
	defer geoResolver.Close()

	// --- Initialize stores, pipeline and handlers ---
	eventStore := store.NewEventStore(chClient)
	aggregateStore := store.NewAggregateStore(dbClient.DB)
	pipeline := ingest.NewPipeline(eventStore, aggregateStore, geoResolver)
	analyticsHandlers := handlers.NewAnalyticsHandlers(pipeline, aggregateStore, eventStore)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware(cfg.FEOrigin))

	r.POST("/analytics", analyticsHandlers.TrackEvent)
	r.GET("/users-by-country", analyticsHandlers.GetUsersByCountry)
	r.GET("/total-users", analyticsHandlers.GetTotalUsers)
	r.GET("/interactions-per-page", analyticsHandlers.GetInteractionsPerPage)

	stats := r.Group("/stats")
	{
		stats.GET("/events-over-time", analyticsHandlers.GetEventCountsOverTime)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Analytics API server starting on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Analytics API server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
