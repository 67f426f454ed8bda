// Package ingest orchestrates the write path: validate an incoming event,
// enrich it with country and anonymous visitor id, persist it, then update
// the derived aggregates.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mileusna/useragent"

	"webanalytics/api/models"
	"webanalytics/api/privacy"
)

var (
	// ErrMissingClientIdentity means the transport layer could not supply a
	// caller IP. Nothing is persisted.
	ErrMissingClientIdentity = errors.New("client IP not found")

	// ErrInvalidEventPayload means a required field is missing or malformed.
	// Nothing is persisted.
	ErrInvalidEventPayload = errors.New("invalid event payload")

	// ErrPersistenceFailure means the raw event could not be stored. No
	// aggregate is touched in that case, so aggregates never outlive their
	// source events.
	ErrPersistenceFailure = errors.New("failed to persist event")
)

// EventStore persists raw events, append-only.
type EventStore interface {
	InsertEvent(ctx context.Context, event models.AnalyticsEvent) error
}

// AggregateStore maintains the three derived aggregates. Each write must be
// an atomic increment-or-create on the store side.
type AggregateStore interface {
	IncrementCountry(ctx context.Context, country string) error
	AddPageInteraction(ctx context.Context, page string, duration int64) error
	RecordUniqueVisitor(ctx context.Context, ip string, visitDate time.Time) (bool, error)
}

// GeoResolver maps an IP to a country code, degrading to "unknown" instead
// of failing.
type GeoResolver interface {
	Resolve(ip string) string
	Ready() bool
}

const defaultOpTimeout = 5 * time.Second

// Pipeline wires the resolver and stores together for the ingestion path.
type Pipeline struct {
	events     EventStore
	aggregates AggregateStore
	geo        GeoResolver

	// now is a field so tests can pin the calendar day the anonymous id is
	// derived from.
	now       func() time.Time
	opTimeout time.Duration
}

func NewPipeline(events EventStore, aggregates AggregateStore, geo GeoResolver) *Pipeline {
	return &Pipeline{
		events:     events,
		aggregates: aggregates,
		geo:        geo,
		now:        time.Now,
		opTimeout:  defaultOpTimeout,
	}
}

// Ingest processes one incoming event end to end and returns the stored
// event. The event insert is the one fatal step; once the raw event is
// durable, aggregate failures are logged and the request still succeeds,
// since aggregates can be rebuilt from the event stream.
func (p *Pipeline) Ingest(ctx context.Context, payload models.EventPayload, clientIP string) (models.AnalyticsEvent, error) {
	if clientIP == "" {
		return models.AnalyticsEvent{}, ErrMissingClientIdentity
	}
	if err := validatePayload(payload); err != nil {
		return models.AnalyticsEvent{}, err
	}

	country := p.geo.Resolve(clientIP)
	if !p.geo.Ready() {
		log.Printf("GeoIP database not loaded yet; recording country as %q", country)
	}

	event := p.composeEvent(payload, clientIP, country)

	insertCtx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()
	if err := p.events.InsertEvent(insertCtx, event); err != nil {
		return models.AnalyticsEvent{}, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	p.updateAggregates(ctx, event, clientIP)

	return event, nil
}

func (p *Pipeline) composeEvent(payload models.EventPayload, clientIP, country string) models.AnalyticsEvent {
	ua := useragent.Parse(payload.BrowserInfo)

	return models.AnalyticsEvent{
		EventID:        uuid.New().String(),
		Timestamp:      payload.Timestamp,
		Referrer:       payload.Referrer,
		ScreenWidth:    payload.ScreenWidth,
		IsPWA:          *payload.IsPWA,
		NavigationData: payload.NavigationData,
		Country:        country,
		AnonymousID:    privacy.AnonymousID(clientIP, payload.BrowserInfo, p.now()),
		BrowserInfo:    payload.BrowserInfo,
		BrowserName:    ua.Name,
		BrowserOS:      ua.OS,
	}
}

// updateAggregates runs the best-effort secondary writes. The three aggregate
// kinds are independent of each other; a failure in one is logged and never
// rolls back the others or fails the request.
func (p *Pipeline) updateAggregates(ctx context.Context, event models.AnalyticsEvent, clientIP string) {
	for page, duration := range event.NavigationData {
		opCtx, cancel := context.WithTimeout(ctx, p.opTimeout)
		err := p.aggregates.AddPageInteraction(opCtx, page, duration)
		cancel()
		if err != nil {
			log.Printf("Aggregate update failure (page interaction %q): %v", page, err)
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, p.opTimeout)
	_, err := p.aggregates.RecordUniqueVisitor(opCtx, clientIP, event.Timestamp)
	cancel()
	if err != nil {
		log.Printf("Aggregate update failure (unique visitor): %v", err)
	}

	opCtx, cancel = context.WithTimeout(ctx, p.opTimeout)
	err = p.aggregates.IncrementCountry(opCtx, event.Country)
	cancel()
	if err != nil {
		log.Printf("Aggregate update failure (country counter %q): %v", event.Country, err)
	}
}

func validatePayload(payload models.EventPayload) error {
	if payload.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidEventPayload)
	}
	if payload.ScreenWidth <= 0 {
		return fmt.Errorf("%w: screenWidth must be a positive integer", ErrInvalidEventPayload)
	}
	if payload.IsPWA == nil {
		return fmt.Errorf("%w: isPWA is required", ErrInvalidEventPayload)
	}
	if payload.NavigationData == nil {
		return fmt.Errorf("%w: navigationData is required", ErrInvalidEventPayload)
	}
	for page, duration := range payload.NavigationData {
		if duration < 0 {
			return fmt.Errorf("%w: navigationData[%q] must be non-negative", ErrInvalidEventPayload, page)
		}
	}
	if payload.BrowserInfo == "" {
		return fmt.Errorf("%w: browserInfo is required", ErrInvalidEventPayload)
	}
	return nil
}
