// api/handlers/track_handlers.go
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"webanalytics/api/ingest"
	"webanalytics/api/models"

	"github.com/gin-gonic/gin"
)

// Ingestor is the write path. Satisfied by *ingest.Pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, payload models.EventPayload, clientIP string) (models.AnalyticsEvent, error)
}

// AggregateReader serves the three reporting views. Satisfied by
// *store.AggregateStore.
type AggregateReader interface {
	GetCountryCounts(ctx context.Context) (map[string]int64, error)
	GetUniqueVisitorStats(ctx context.Context) (models.UniqueVisitorStats, error)
	GetPageInteractions(ctx context.Context) ([]models.PageInteraction, error)
}

// EventReader serves queries over the raw event stream. Satisfied by
// *store.EventStore.
type EventReader interface {
	GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time) ([]models.EventCountByTime, error)
}

type AnalyticsHandlers struct {
	Pipeline   Ingestor
	Aggregates AggregateReader
	Events     EventReader
}

func NewAnalyticsHandlers(pipeline Ingestor, aggregates AggregateReader, events EventReader) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		Pipeline:   pipeline,
		Aggregates: aggregates,
		Events:     events,
	}
}

// TrackEvent handles POST /analytics. The caller IP comes from the transport
// layer (forwarded-for aware via gin), never from the body.
func (h *AnalyticsHandlers) TrackEvent(c *gin.Context) {
	var payload models.EventPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("Error binding incoming analytics JSON: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	event, err := h.Pipeline.Ingest(ctx, payload, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrMissingClientIdentity), errors.Is(err, ingest.ErrInvalidEventPayload):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Printf("Error ingesting analytics event: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record analytics event"})
		}
		return
	}

	c.JSON(http.StatusCreated, event)
}

// GetUsersByCountry handles GET /users-by-country. An uninitialized aggregate
// reads as an empty object, not an error.
func (h *AnalyticsHandlers) GetUsersByCountry(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	counts, err := h.Aggregates.GetCountryCounts(ctx)
	if err != nil {
		log.Printf("Error getting country counts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve country statistics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"countries": counts})
}

// GetTotalUsers handles GET /total-users.
func (h *AnalyticsHandlers) GetTotalUsers(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	stats, err := h.Aggregates.GetUniqueVisitorStats(ctx)
	if err != nil {
		log.Printf("Error getting unique visitor stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve unique visitor statistics"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetInteractionsPerPage handles GET /interactions-per-page.
func (h *AnalyticsHandlers) GetInteractionsPerPage(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	interactions, err := h.Aggregates.GetPageInteractions(ctx)
	if err != nil {
		log.Printf("Error getting page interactions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve page interaction statistics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"interactions": interactions})
}

// GetEventCountsOverTime handles GET /stats/events-over-time.
func (h *AnalyticsHandlers) GetEventCountsOverTime(c *gin.Context) {
	interval := c.Query("interval")
	if interval == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval query parameter is required (e.g., 'Day', 'Hour')"})
		return
	}

	var start, end time.Time
	var err error

	startParam := c.Query("start")
	if startParam != "" {
		start, err = time.Parse(time.RFC3339, startParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'start' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return
		}
	} else {
		start = time.Now().UTC().Add(-7 * 24 * time.Hour) // Default to 7 days ago
	}

	endParam := c.Query("end")
	if endParam != "" {
		end, err = time.Parse(time.RFC3339, endParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'end' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return
		}
	} else {
		end = time.Now().UTC() // Default to now
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Events.GetEventCountsOverTime(ctx, interval, start, end)
	if err != nil {
		log.Printf("Error getting event counts over time: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve event statistics"})
		return
	}

	c.JSON(http.StatusOK, results)
}
