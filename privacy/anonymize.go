// Package privacy derives the per-day anonymous visitor identifier.
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// AnonymousID derives a stable, non-reversible visitor identifier from the
// caller IP, the reported browser info and the calendar day. The same visitor
// hashes to the same id within a day and to a different id the next day, so
// visitors cannot be tracked across days.
//
// No secret salt goes into the hash, so an id is guessable by anyone who
// knows IP, browser info and date. Acceptable for this service, but worth
// knowing before reusing elsewhere.
func AnonymousID(ip, browserInfo string, day time.Time) string {
	hash := sha256.Sum256([]byte(ip + browserInfo + day.Format("2006-01-02")))
	return hex.EncodeToString(hash[:])
}
