// Package ledger defines the contract against the treasury subsystem that
// owns internal movements. Reconciliation consumes this gateway; it never
// creates or deletes movements.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/model"
)

// CandidateQuery selects movements that could match one statement line.
// Account, direction and amount are hard filters; the date is a window of
// MarginDays around Date.
type CandidateQuery struct {
	AccountID  string
	Direction  model.Direction
	Amount     decimal.Decimal
	Date       time.Time
	MarginDays int
}

// Gateway is the reconciliation-facing surface of the ledger subsystem.
type Gateway interface {
	// Candidates returns unclaimed movements matching the query, in no
	// particular order.
	Candidates(ctx context.Context, q CandidateQuery) ([]model.LedgerMovement, error)

	// GetMovement returns a movement by id, or NotFoundError.
	GetMovement(ctx context.Context, id string) (*model.LedgerMovement, error)

	// Claim atomically marks the movement as reconciled by lineID. It is a
	// compare-and-set: if the movement is already claimed it returns
	// ConflictError immediately, it never blocks waiting for the holder.
	Claim(ctx context.Context, movementID, lineID string) error

	// Release undoes a claim held by lineID, used to compensate when the
	// paired line update cannot be applied. Releasing a claim held by a
	// different line is a ConflictError.
	Release(ctx context.Context, movementID, lineID string) error
}
