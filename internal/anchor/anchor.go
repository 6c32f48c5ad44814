// Package anchor establishes and holds the reference "price to beat" for one
// market session from the live price feed.
package anchor

import "github.com/rewired-gh/polyflip/internal/models"

// Anchor tracks the session's price to beat and the latest observed price.
// The anchor normally arrives inside a historical batch carrying the point at
// the session boundary; a live tick stamped exactly at a boundary instant
// force-resets it, tolerating batch delivery jitter.
type Anchor struct {
	sessionStart int64
	sessionEnd   int64

	priceToBeat  float64
	currentPrice float64
}

// New creates an anchor scoped to one session's boundary timestamps
// (unix seconds).
func New(sessionStart, sessionEnd int64) *Anchor {
	return &Anchor{sessionStart: sessionStart, sessionEnd: sessionEnd}
}

// ApplyHistory scans a historical batch for the point stamped at the session
// start or end and adopts its value as the price to beat. Absence is not an
// error; the anchor may arrive on a later batch.
func (a *Anchor) ApplyHistory(points []models.PricePoint) {
	for _, p := range points {
		if p.Timestamp == a.sessionStart || p.Timestamp == a.sessionEnd {
			a.priceToBeat = p.Value
			return
		}
	}
}

// ApplyLive records a live scalar tick. The current price is updated
// unconditionally; a tick stamped exactly at the session start or end instant
// (feed timestamps are milliseconds) also overwrites the price to beat.
func (a *Anchor) ApplyLive(timestampMS int64, value float64) {
	a.currentPrice = value
	if timestampMS == a.sessionStart*1000 || timestampMS == a.sessionEnd*1000 {
		a.priceToBeat = value
	}
}

// PriceToBeat returns the session reference price, zero until established.
func (a *Anchor) PriceToBeat() float64 {
	return a.priceToBeat
}

// CurrentPrice returns the latest observed price.
func (a *Anchor) CurrentPrice() float64 {
	return a.currentPrice
}
