package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webanalytics/api/ingest"
	"webanalytics/api/models"
)

type stubIngestor struct {
	event      models.AnalyticsEvent
	err        error
	gotIP      string
	gotPayload models.EventPayload
}

func (s *stubIngestor) Ingest(_ context.Context, payload models.EventPayload, clientIP string) (models.AnalyticsEvent, error) {
	s.gotPayload = payload
	s.gotIP = clientIP
	return s.event, s.err
}

type stubAggregates struct {
	counts       map[string]int64
	stats        models.UniqueVisitorStats
	interactions []models.PageInteraction
	err          error
}

func (s *stubAggregates) GetCountryCounts(context.Context) (map[string]int64, error) {
	return s.counts, s.err
}

func (s *stubAggregates) GetUniqueVisitorStats(context.Context) (models.UniqueVisitorStats, error) {
	return s.stats, s.err
}

func (s *stubAggregates) GetPageInteractions(context.Context) ([]models.PageInteraction, error) {
	return s.interactions, s.err
}

type stubEvents struct {
	results []models.EventCountByTime
	err     error
}

func (s *stubEvents) GetEventCountsOverTime(context.Context, string, time.Time, time.Time) ([]models.EventCountByTime, error) {
	return s.results, s.err
}

func newTestRouter(h *AnalyticsHandlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/analytics", h.TrackEvent)
	r.GET("/users-by-country", h.GetUsersByCountry)
	r.GET("/total-users", h.GetTotalUsers)
	r.GET("/interactions-per-page", h.GetInteractionsPerPage)
	r.GET("/stats/events-over-time", h.GetEventCountsOverTime)
	return r
}

const trackBody = `{
	"timestamp": "2024-01-01T10:00:00Z",
	"referrer": "https://example.com",
	"screenWidth": 1920,
	"isPWA": false,
	"navigationData": {"/home": 30, "/about": 10},
	"browserInfo": "UA-X"
}`

func TestTrackEvent_Created(t *testing.T) {
	ingestor := &stubIngestor{
		event: models.AnalyticsEvent{
			EventID:     "e-1",
			Country:     "US",
			AnonymousID: "abc123",
		},
	}
	r := newTestRouter(NewAnalyticsHandlers(ingestor, &stubAggregates{}, &stubEvents{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analytics", strings.NewReader(trackBody))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "1.2.3.4:5678"
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1.2.3.4", ingestor.gotIP)
	assert.Equal(t, int64(1920), ingestor.gotPayload.ScreenWidth)

	var got models.AnalyticsEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "US", got.Country)
	assert.Equal(t, "abc123", got.AnonymousID)
}

func TestTrackEvent_MalformedJSON(t *testing.T) {
	r := newTestRouter(NewAnalyticsHandlers(&stubIngestor{}, &stubAggregates{}, &stubEvents{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analytics", strings.NewReader(`{"timestamp": not-json`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestTrackEvent_ValidationErrors(t *testing.T) {
	tests := []struct {
		name       string
		ingestErr  error
		wantStatus int
	}{
		{"invalid payload", ingest.ErrInvalidEventPayload, http.StatusBadRequest},
		{"missing client identity", ingest.ErrMissingClientIdentity, http.StatusBadRequest},
		{"persistence failure", ingest.ErrPersistenceFailure, http.StatusInternalServerError},
		{"unexpected error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(NewAnalyticsHandlers(&stubIngestor{err: tt.ingestErr}, &stubAggregates{}, &stubEvents{}))

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/analytics", strings.NewReader(trackBody))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestGetUsersByCountry(t *testing.T) {
	aggregates := &stubAggregates{counts: map[string]int64{"US": 2, "unknown": 1}}
	r := newTestRouter(NewAnalyticsHandlers(&stubIngestor{}, aggregates, &stubEvents{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users-by-country", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"countries": {"US": 2, "unknown": 1}}`, w.Body.String())
}

func TestGetUsersByCountry_Empty(t *testing.T) {
	aggregates := &stubAggregates{counts: map[string]int64{}}
	r := newTestRouter(NewAnalyticsHandlers(&stubIngestor{}, aggregates, &stubEvents{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users-by-country", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"countries": {}}`, w.Body.String())
}

func TestGetTotalUsers(t *testing.T) {
	aggregates := &stubAggregates{
		stats: models.UniqueVisitorStats{
			Total: 3,
			PerDay: []models.DailyUsers{
				{Date: "2024-01-01", UserVisited: 1},
				{Date: "2024-01-02", UserVisited: 2},
			},
		},
	}
	r := newTestRouter(NewAnalyticsHandlers(&stubIngestor{}, aggregates, &stubEvents{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/total-users", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"totalUsers": 3,
		"usersPerDate": [
			{"date": "2024-01-01", "userVisited": 1},
			{"date": "2024-01-02", "userVisited": 2}
		]
	}`, w.Body.String())
}

func TestGetInteractionsPerPage(t *testing.T) {
	aggregates := &stubAggregates{
		interactions: []models.PageInteraction{
			{Page: "/home", InteractionTime: 30},
			{Page: "/about", InteractionTime: 10},
		},
	}
	r := newTestRouter(NewAnalyticsHandlers(&stubIngestor{}, aggregates, &stubEvents{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/interactions-per-page", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"interactions": [
		{"page": "/home", "interactionTime": 30},
		{"page": "/about", "interactionTime": 10}
	]}`, w.Body.String())
}

func TestGetInteractionsPerPage_StoreError(t *testing.T) {
	aggregates := &stubAggregates{err: errors.New("postgres down")}
	r := newTestRouter(NewAnalyticsHandlers(&stubIngestor{}, aggregates, &stubEvents{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/interactions-per-page", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetEventCountsOverTime_RequiresInterval(t *testing.T) {
	r := newTestRouter(NewAnalyticsHandlers(&stubIngestor{}, &stubAggregates{}, &stubEvents{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats/events-over-time", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetEventCountsOverTime_OK(t *testing.T) {
	events := &stubEvents{
		results: []models.EventCountByTime{
			{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Count: 5},
		},
	}
	r := newTestRouter(NewAnalyticsHandlers(&stubIngestor{}, &stubAggregates{}, events))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats/events-over-time?interval=Day", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":5`)
}
