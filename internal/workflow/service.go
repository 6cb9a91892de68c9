// Package workflow implements the statement-line state machine: suggest,
// approve, reject, manual reconcile and discard. Every transition goes
// through the line store's compare-and-set update and triggers a counter
// recompute on the owning session.
package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/concilia-dev/concilia/internal/ledger"
	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/store"
)

// CounterRecomputer re-derives a session's line counters. The session
// manager implements this.
type CounterRecomputer interface {
	RecomputeCounters(ctx context.Context, sessionID string) (model.LineCounters, error)
}

// Auditor records workflow actions for the audit trail. May be nil.
type Auditor interface {
	Record(ctx context.Context, action, sessionID, lineID, actor, detail string)
}

// Service performs workflow transitions on statement lines.
type Service struct {
	lines    store.LineStore
	gateway  ledger.Gateway
	counters CounterRecomputer
	auditor  Auditor
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a workflow Service. auditor may be nil.
func NewService(lines store.LineStore, gateway ledger.Gateway, counters CounterRecomputer, auditor Auditor, log zerolog.Logger) *Service {
	return &Service{
		lines:    lines,
		gateway:  gateway,
		counters: counters,
		auditor:  auditor,
		log:      log,
		now:      time.Now,
	}
}

// Suggest records an engine proposal on a PENDIENTE line, moving it to
// SUGERIDO. The candidate movement is not claimed; the same movement may
// be suggested on several lines until one is approved.
func (s *Service) Suggest(ctx context.Context, lineID string, p model.MatchProposal) (*model.StatementLine, error) {
	if p.MovementID == "" {
		return nil, model.ValidationError{Field: "movement_id", Reason: "proposal must carry a candidate movement"}
	}
	if p.Score < 0 || p.Score > 100 {
		return nil, model.ValidationError{Field: "score", Reason: "must be in [0,100]"}
	}

	updated, err := s.lines.UpdateLine(ctx, lineID, "suggest", []model.LineState{model.LinePendiente}, func(l *model.StatementLine) error {
		l.State = model.LineSugerido
		l.Proposal = &p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, updated, "suggest", "", p.Rationale)
	return updated, nil
}

// Approve claims the suggested candidate and moves the line to CONCILIADO.
// Claim and line update succeed or fail together: if the line slipped out
// of SUGERIDO, or its proposal no longer cites the claimed movement, the
// claim is released again.
func (s *Service) Approve(ctx context.Context, lineID, actor string) (*model.StatementLine, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, model.ValidationError{Field: "actor", Reason: "must not be empty"}
	}

	line, err := s.lines.GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line.State != model.LineSugerido || line.Proposal == nil {
		return nil, model.InvalidStateError{Kind: "line", ID: lineID, From: string(line.State), Op: "approve"}
	}

	movementID := line.Proposal.MovementID
	return s.claimAndConciliate(ctx, lineID, movementID, actor, "approve",
		[]model.LineState{model.LineSugerido}, nil)
}

// Reject returns a SUGERIDO line to PENDIENTE, clearing the stored
// candidate, score and rationale so the next matching batch re-evaluates
// it. Nothing is released on the gateway because suggestions never claim.
func (s *Service) Reject(ctx context.Context, lineID string) (*model.StatementLine, error) {
	var dropped string
	updated, err := s.lines.UpdateLine(ctx, lineID, "reject", []model.LineState{model.LineSugerido}, func(l *model.StatementLine) error {
		if l.Proposal != nil {
			dropped = l.Proposal.MovementID
		}
		l.State = model.LinePendiente
		l.Proposal = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, updated, "reject", "", "dropped candidate "+dropped)
	return updated, nil
}

// ReconcileManually claims an explicitly chosen movement for the line,
// overriding any prior suggestion, and moves it straight to CONCILIADO.
// Valid from PENDIENTE or SUGERIDO.
func (s *Service) ReconcileManually(ctx context.Context, lineID, movementID, actor string) (*model.StatementLine, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, model.ValidationError{Field: "actor", Reason: "must not be empty"}
	}

	line, err := s.lines.GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line.State != model.LinePendiente && line.State != model.LineSugerido {
		return nil, model.InvalidStateError{Kind: "line", ID: lineID, From: string(line.State), Op: "reconcile manually"}
	}

	movement, err := s.gateway.GetMovement(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if !movement.Available() {
		return nil, model.ConflictError{MovementID: movementID, ClaimedBy: movement.ReconciledLineID}
	}
	if movement.AccountID != line.AccountID {
		return nil, model.ValidationError{Field: "movement_id", Reason: "movement belongs to a different account"}
	}
	if movement.Direction != line.Direction {
		return nil, model.ValidationError{Field: "movement_id", Reason: "movement direction does not match the line"}
	}

	manual := &model.MatchProposal{
		MovementID: movementID,
		Score:      100,
		Rationale:  "conciliación manual",
		Criteria:   []string{"manual"},
	}
	return s.claimAndConciliate(ctx, lineID, movementID, actor, "manual",
		[]model.LineState{model.LinePendiente, model.LineSugerido}, manual)
}

// Discard excludes a line from reconciliation. A non-empty reason is
// required. Any suggested candidate is simply dropped; the proposal stays
// on the record for audit.
func (s *Service) Discard(ctx context.Context, lineID, reason, actor string) (*model.StatementLine, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, model.ValidationError{Field: "reason", Reason: "must not be empty"}
	}

	updated, err := s.lines.UpdateLine(ctx, lineID, "discard", []model.LineState{model.LinePendiente, model.LineSugerido}, func(l *model.StatementLine) error {
		l.State = model.LineDescartado
		l.DiscardReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, updated, "discard", actor, reason)
	return updated, nil
}

// claimAndConciliate is the shared atomic step behind Approve and
// ReconcileManually: claim the movement, then transition the line. When no
// replacement proposal is given (the approve path) the stored proposal must
// still cite movementID at transition time, otherwise the update is vetoed
// with StaleProposalError. If the line update fails after the claim was
// taken, the claim is released so neither side is left half-applied.
func (s *Service) claimAndConciliate(ctx context.Context, lineID, movementID, actor, op string, expect []model.LineState, proposal *model.MatchProposal) (*model.StatementLine, error) {
	if err := s.gateway.Claim(ctx, movementID, lineID); err != nil {
		return nil, err
	}

	ts := s.now()
	updated, err := s.lines.UpdateLine(ctx, lineID, op, expect, func(l *model.StatementLine) error {
		if proposal != nil {
			l.Proposal = proposal
		} else if l.Proposal == nil || l.Proposal.MovementID != movementID {
			// The proposal was swapped or withdrawn after it was read. The
			// claim covers movementID only, so conciliating against the new
			// proposal would desynchronize line and ledger.
			found := ""
			if l.Proposal != nil {
				found = l.Proposal.MovementID
			}
			return model.StaleProposalError{LineID: lineID, Expected: movementID, Found: found}
		}
		l.State = model.LineConciliado
		l.ReconciledBy = actor
		l.ReconciledAt = &ts
		return nil
	})
	if err != nil {
		if relErr := s.gateway.Release(ctx, movementID, lineID); relErr != nil {
			s.log.Error().Err(relErr).
				Str("movement_id", movementID).
				Str("line_id", lineID).
				Msg("failed to release claim after aborted transition")
		}
		return nil, err
	}

	s.afterTransition(ctx, updated, op, actor, "movement "+movementID)
	return updated, nil
}

// afterTransition recomputes the owning session's counters and records the
// audit entry. Both are best-effort: a recompute failure never undoes the
// transition, counters converge on the next recompute.
func (s *Service) afterTransition(ctx context.Context, line *model.StatementLine, action, actor, detail string) {
	if _, err := s.counters.RecomputeCounters(ctx, line.SessionID); err != nil {
		s.log.Warn().Err(err).
			Str("session_id", line.SessionID).
			Msg("counter recompute failed, will converge on next transition")
	}
	if s.auditor != nil {
		s.auditor.Record(ctx, action, line.SessionID, line.ID, actor, detail)
	}
	s.log.Info().
		Str("line_id", line.ID).
		Str("session_id", line.SessionID).
		Str("action", action).
		Str("state", string(line.State)).
		Msg("line transition")
}

func (s *Service) setNow(now func() time.Time) { s.now = now }
