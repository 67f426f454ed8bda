// Package geoip resolves caller IPs to ISO country codes using a local
// MaxMind GeoLite2-Country database.
package geoip

import (
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/maxminddb-golang"
)

// Unknown is returned whenever a country cannot be determined: database not
// loaded yet, database missing, unparseable IP, or plain lookup miss.
const Unknown = "unknown"

// Resolver wraps a GeoLite2-Country reader. The zero-value-like state (no
// database) is fully usable; every lookup just degrades to Unknown. Open may
// run in the background after the server has started accepting traffic.
type Resolver struct {
	mu sync.RWMutex
	db *maxminddb.Reader
}

// geoRecord matches the GeoLite2-Country database structure.
type geoRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Open loads the database at path. On error the resolver keeps resolving
// everything to Unknown; the caller decides whether to log or retry.
func (r *Resolver) Open(path string) error {
	db, err := maxminddb.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open GeoIP database: %w", err)
	}

	r.mu.Lock()
	if r.db != nil {
		_ = r.db.Close()
	}
	r.db = db
	r.mu.Unlock()
	return nil
}

// Ready reports whether a database has been loaded.
func (r *Resolver) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.db != nil
}

// Resolve returns the 2-letter ISO country code for ip, or Unknown. It never
// fails the caller and never blocks waiting for the database to load.
func (r *Resolver) Resolve(ip string) string {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return Unknown
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.db == nil {
		return Unknown
	}

	var record geoRecord
	if err := r.db.Lookup(parsedIP, &record); err != nil {
		return Unknown
	}
	if record.Country.ISOCode == "" {
		return Unknown
	}
	return record.Country.ISOCode
}

func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db != nil {
		err := r.db.Close()
		r.db = nil
		return err
	}
	return nil
}
