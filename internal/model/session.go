package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus represents the lifecycle state of an import session.
type SessionStatus string

const (
	SessionEnProceso  SessionStatus = "EN_PROCESO"
	SessionCompletada SessionStatus = "COMPLETADA"
	SessionCancelada  SessionStatus = "CANCELADA"
	SessionError      SessionStatus = "ERROR"
)

// Terminal reports whether the session can no longer change state.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompletada || s == SessionCancelada || s == SessionError
}

// LineCounters holds the per-state line counts of a session. The counters
// are derived from the lines and recomputed after every transition; they are
// never the authoritative source.
type LineCounters struct {
	Total       int
	Conciliated int
	Pending     int
	Suggested   int
	Discarded   int
}

// Consistent reports whether the four state counters add up to the total.
func (c LineCounters) Consistent() bool {
	return c.Conciliated+c.Pending+c.Suggested+c.Discarded == c.Total
}

// Resolved returns the number of lines in a terminal state.
func (c LineCounters) Resolved() int {
	return c.Conciliated + c.Discarded
}

// ImportSession groups all statement lines imported from one statement file.
type ImportSession struct {
	ID             string
	AccountID      string
	SourceFormat   string // format tag of the parsed file: csv, norma43, ofx, qfx
	ContentHash    string // SHA-256 of the raw file, hex
	StatementStart time.Time
	StatementEnd   time.Time
	OpeningBalance *decimal.Decimal
	ClosingBalance *decimal.Decimal
	Counters       LineCounters
	Status         SessionStatus
	ErrorMessage   string
	CreatedBy      string
	CreatedAt      time.Time
	FinalizedBy    string
	FinalizedAt    *time.Time
}

// Progress returns the fraction of lines resolved (conciliated or
// discarded), in [0,1]. Computed, never stored.
func (s *ImportSession) Progress() float64 {
	if s.Counters.Total == 0 {
		return 0
	}
	return float64(s.Counters.Resolved()) / float64(s.Counters.Total)
}
