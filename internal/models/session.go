// Package models defines the core domain entities: sessions, entry rules,
// price samples, and order records.
package models

import (
	"errors"
	"time"
)

// Outcome is the resolution of an up/down market session.
type Outcome string

const (
	OutcomeUp      Outcome = "up"
	OutcomeDown    Outcome = "down"
	OutcomeUnknown Outcome = "unknown"
)

// Side identifies which token of the up/down pair an order targets.
type Side string

const (
	SideUp   Side = "up"
	SideDown Side = "down"
)

// Session describes one up-or-down market cycle. Constructed at market
// discovery and replaced wholesale when the next cycle begins.
type Session struct {
	Slug        string
	UpTokenID   string
	DownTokenID string
	Start       int64 // unix seconds
	End         int64 // unix seconds
}

// Remaining returns seconds left until session end for an event observed at
// timestampMS (feed timestamps are in milliseconds).
func (s *Session) Remaining(timestampMS int64) float64 {
	return float64(s.End) - float64(timestampMS)/1000.0
}

// Period returns the session length in seconds.
func (s *Session) Period() int64 {
	return s.End - s.Start
}

// TokenFor maps a side to its token ID.
func (s *Session) TokenFor(side Side) string {
	if side == SideUp {
		return s.UpTokenID
	}
	return s.DownTokenID
}

// Validate checks session field constraints.
func (s *Session) Validate() error {
	if s.Slug == "" {
		return errors.New("session slug must not be empty")
	}
	if s.UpTokenID == "" || s.DownTokenID == "" {
		return errors.New("session token IDs must not be empty")
	}
	if s.UpTokenID == s.DownTokenID {
		return errors.New("up and down token IDs must differ")
	}
	if s.End <= s.Start {
		return errors.New("session end must be after start")
	}
	return nil
}

// OrderRecord is a journal entry for one dispatched buy order.
type OrderRecord struct {
	ID          string
	SessionSlug string
	TokenID     string
	Side        Side
	Price       float64
	Size        float64
	Status      string // "submitted", "accepted", "failed"
	Detail      string
	CreatedAt   time.Time
}
