package model

import "fmt"

// NotFoundError indicates an unknown session, line or ledger movement.
type NotFoundError struct {
	Kind string // "session", "line" or "movement"
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InvalidStateError indicates a transition attempted from a state that does
// not permit it, on a line or on a session.
type InvalidStateError struct {
	Kind string // "line" or "session"
	ID   string
	From string
	Op   string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s: cannot %s from state %s", e.Kind, e.ID, e.Op, e.From)
}

// ValidationError indicates malformed or missing input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ConflictError indicates the target ledger movement was claimed by a
// concurrent reconciliation.
type ConflictError struct {
	MovementID string
	ClaimedBy  string // statement line holding the claim
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("movement %s already reconciled by line %s", e.MovementID, e.ClaimedBy)
}

// StaleProposalError indicates the proposal stored on a line no longer
// cites the movement an approval was issued for. The line was re-matched
// between the read and the transition.
type StaleProposalError struct {
	LineID   string
	Expected string // movement the approval claimed
	Found    string // movement on the stored proposal, empty if cleared
}

func (e StaleProposalError) Error() string {
	if e.Found == "" {
		return fmt.Sprintf("line %s: proposal for movement %s was withdrawn", e.LineID, e.Expected)
	}
	return fmt.Sprintf("line %s: proposal changed from movement %s to %s", e.LineID, e.Expected, e.Found)
}

// DuplicateImportError indicates a statement file with the same content
// hash was already imported for the account.
type DuplicateImportError struct {
	ContentHash string
	AccountID   string
	SessionID   string // the existing session
}

func (e DuplicateImportError) Error() string {
	return fmt.Sprintf("statement already imported for account %s in session %s (hash %s)", e.AccountID, e.SessionID, e.ContentHash)
}
