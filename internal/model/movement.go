package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerMovement is an internally recorded treasury movement, owned by the
// ledger subsystem. Reconciliation only reads its matchable attributes and
// claims it; it never creates or deletes these records.
type LedgerMovement struct {
	ID          string
	AccountID   string
	Direction   Direction
	Date        time.Time
	Amount      decimal.Decimal // unsigned magnitude
	Description string
	Reference   string
	Reconciled  bool
	// ReconciledLineID is the statement line that claimed this movement,
	// empty while unclaimed.
	ReconciledLineID string
}

// Available reports whether the movement can still be claimed.
func (m *LedgerMovement) Available() bool {
	return !m.Reconciled
}

// DateDistance returns the absolute number of days between the movement
// date and t, ignoring the time of day.
func (m *LedgerMovement) DateDistance(t time.Time) int {
	d := int(dateOnly(m.Date).Sub(dateOnly(t)).Hours() / 24)
	if d < 0 {
		d = -d
	}
	return d
}

// dateOnly collapses a timestamp to UTC midnight of its calendar day, so
// distances stay in whole days regardless of zone or time of day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
