package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction indicates whether a movement takes money out of the account
// (CARGO) or brings money in (ABONO).
type Direction string

const (
	DirectionCargo Direction = "CARGO"
	DirectionAbono Direction = "ABONO"
)

// IsValid reports whether the direction is one of the two known values.
func (d Direction) IsValid() bool {
	return d == DirectionCargo || d == DirectionAbono
}

// LineState represents the match state of a statement line.
type LineState string

const (
	LinePendiente  LineState = "PENDIENTE"
	LineSugerido   LineState = "SUGERIDO"
	LineConciliado LineState = "CONCILIADO"
	LineDescartado LineState = "DESCARTADO"
)

// lineTransitions is the closed transition table for statement lines.
// CONCILIADO and DESCARTADO are terminal.
var lineTransitions = map[LineState][]LineState{
	LinePendiente:  {LineSugerido, LineConciliado, LineDescartado},
	LineSugerido:   {LinePendiente, LineConciliado, LineDescartado},
	LineConciliado: {},
	LineDescartado: {},
}

// CanTransition reports whether the state machine permits moving from s to
// the target state.
func (s LineState) CanTransition(to LineState) bool {
	for _, t := range lineTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are permitted.
func (s LineState) Terminal() bool {
	return len(lineTransitions[s]) == 0
}

// MatchProposal is the engine's suggestion for a line: the candidate
// movement, a confidence score in [0,100], a human-readable rationale and
// the criteria that contributed.
type MatchProposal struct {
	MovementID string
	Score      int
	Rationale  string
	Criteria   []string
}

// CriteriaTags returns the criteria joined for persistence, semicolon
// separated.
func (p MatchProposal) CriteriaTags() string {
	return strings.Join(p.Criteria, ";")
}

// StatementLine is one row from an imported bank statement.
type StatementLine struct {
	ID             string
	SessionID      string
	AccountID      string
	LineNumber     int // source order, unique within the session
	Direction      Direction
	Date           time.Time
	ValueDate      *time.Time
	Description    string // cleaned description
	RawDescription string // original text from the statement
	Amount         decimal.Decimal // unsigned magnitude
	Balance        *decimal.Decimal
	Reference      string // bank-assigned reference or operation code
	State          LineState
	Proposal       *MatchProposal
	DiscardReason  string
	ReconciledBy   string
	ReconciledAt   *time.Time
}

// Validate enforces the line-level invariants that must hold regardless of
// state.
func (l *StatementLine) Validate() error {
	if l.SessionID == "" {
		return ValidationError{Field: "session_id", Reason: "must not be empty"}
	}
	if l.AccountID == "" {
		return ValidationError{Field: "account_id", Reason: "must not be empty"}
	}
	if !l.Direction.IsValid() {
		return ValidationError{Field: "direction", Reason: "must be CARGO or ABONO"}
	}
	if l.Amount.IsNegative() {
		return ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if l.Date.IsZero() {
		return ValidationError{Field: "date", Reason: "must be set"}
	}
	switch l.State {
	case LineSugerido:
		if l.Proposal == nil || l.Proposal.MovementID == "" {
			return ValidationError{Field: "proposal", Reason: "SUGERIDO line must carry a candidate movement"}
		}
	case LineConciliado:
		if l.Proposal == nil || l.Proposal.MovementID == "" {
			return ValidationError{Field: "proposal", Reason: "CONCILIADO line must carry a movement"}
		}
		if l.ReconciledAt == nil || l.ReconciledBy == "" {
			return ValidationError{Field: "reconciled", Reason: "CONCILIADO line must record actor and timestamp"}
		}
	case LineDescartado:
		if strings.TrimSpace(l.DiscardReason) == "" {
			return ValidationError{Field: "discard_reason", Reason: "DESCARTADO line must carry a reason"}
		}
	}
	return nil
}
