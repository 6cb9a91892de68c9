// Package session owns the import-session lifecycle: duplicate-guarded
// creation, counter aggregation, finalize and cancel.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/id"
	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/store"
)

// Meta describes the statement file behind a new import session.
type Meta struct {
	AccountID      string
	SourceFormat   string // csv, norma43, ofx, qfx
	ContentHash    string // SHA-256 of the raw file, hex
	StatementStart time.Time
	StatementEnd   time.Time
	OpeningBalance *decimal.Decimal
	ClosingBalance *decimal.Decimal
	CreatedBy      string
}

// LineInput is one normalized statement row, as handed over by the parsing
// layer. Ids and state are assigned here.
type LineInput struct {
	LineNumber     int
	Direction      model.Direction
	Date           time.Time
	ValueDate      *time.Time
	Description    string
	RawDescription string
	Amount         decimal.Decimal
	Balance        *decimal.Decimal
	Reference      string
}

// Manager owns session lifecycle and the derived line counters.
type Manager struct {
	sessions store.SessionStore
	lines    store.LineStore
	log      zerolog.Logger
	now      func() time.Time
}

// NewManager creates a session Manager.
func NewManager(sessions store.SessionStore, lines store.LineStore, log zerolog.Logger) *Manager {
	return &Manager{sessions: sessions, lines: lines, log: log, now: time.Now}
}

// Start creates a session in EN_PROCESO and bulk-inserts its lines, all
// PENDIENTE. A prior session for the same account and content hash in a
// non-CANCELADA/ERROR state rejects the import with DuplicateImportError
// before anything is written. If line ingestion fails the session is left
// in ERROR with the failure message stored.
func (m *Manager) Start(ctx context.Context, meta Meta, inputs []LineInput) (*model.ImportSession, error) {
	if err := validateMeta(meta); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, model.ValidationError{Field: "lines", Reason: "statement has no lines"}
	}

	existing, err := m.sessions.FindActiveByHash(ctx, meta.AccountID, meta.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("checking for duplicate import: %w", err)
	}
	if existing != nil {
		return nil, model.DuplicateImportError{
			ContentHash: meta.ContentHash,
			AccountID:   meta.AccountID,
			SessionID:   existing.ID,
		}
	}

	sess := &model.ImportSession{
		ID:             id.NewSession(),
		AccountID:      meta.AccountID,
		SourceFormat:   meta.SourceFormat,
		ContentHash:    meta.ContentHash,
		StatementStart: meta.StatementStart,
		StatementEnd:   meta.StatementEnd,
		OpeningBalance: meta.OpeningBalance,
		ClosingBalance: meta.ClosingBalance,
		Counters:       model.LineCounters{Total: len(inputs), Pending: len(inputs)},
		Status:         model.SessionEnProceso,
		CreatedBy:      meta.CreatedBy,
		CreatedAt:      m.now(),
	}
	if err := m.sessions.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	lines := make([]*model.StatementLine, 0, len(inputs))
	for _, in := range inputs {
		lines = append(lines, &model.StatementLine{
			ID:             id.NewLine(),
			SessionID:      sess.ID,
			AccountID:      meta.AccountID,
			LineNumber:     in.LineNumber,
			Direction:      in.Direction,
			Date:           in.Date,
			ValueDate:      in.ValueDate,
			Description:    in.Description,
			RawDescription: in.RawDescription,
			Amount:         in.Amount,
			Balance:        in.Balance,
			Reference:      in.Reference,
			State:          model.LinePendiente,
		})
	}

	if err := m.lines.InsertLines(ctx, lines); err != nil {
		sess.Status = model.SessionError
		sess.ErrorMessage = err.Error()
		if saveErr := m.sessions.SaveSession(ctx, sess); saveErr != nil {
			m.log.Error().Err(saveErr).Str("session_id", sess.ID).Msg("failed to mark session as ERROR")
		}
		return nil, fmt.Errorf("inserting lines: %w", err)
	}

	m.log.Info().
		Str("session_id", sess.ID).
		Str("account_id", sess.AccountID).
		Int("lines", len(lines)).
		Msg("import session started")
	return sess, nil
}

// RecomputeCounters re-derives the four state counters from a full scan of
// the session's lines and stores them. Counters are derived, not
// authoritative, so concurrent recomputes resolve last-writer-wins.
func (m *Manager) RecomputeCounters(ctx context.Context, sessionID string) (model.LineCounters, error) {
	sess, err := m.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return model.LineCounters{}, err
	}

	lines, err := m.lines.LinesBySession(ctx, sessionID)
	if err != nil {
		return model.LineCounters{}, fmt.Errorf("scanning lines: %w", err)
	}

	var c model.LineCounters
	c.Total = len(lines)
	for _, l := range lines {
		switch l.State {
		case model.LinePendiente:
			c.Pending++
		case model.LineSugerido:
			c.Suggested++
		case model.LineConciliado:
			c.Conciliated++
		case model.LineDescartado:
			c.Discarded++
		}
	}

	sess.Counters = c
	if err := m.sessions.SaveSession(ctx, sess); err != nil {
		return c, fmt.Errorf("saving counters: %w", err)
	}
	return c, nil
}

// Finalize closes the batch, EN_PROCESO to COMPLETADA, recording actor and
// timestamp. Finalization is administrative: PENDIENTE or SUGERIDO lines
// do not block it.
func (m *Manager) Finalize(ctx context.Context, sessionID, actor string) (*model.ImportSession, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, model.ValidationError{Field: "actor", Reason: "must not be empty"}
	}

	sess, err := m.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.SessionEnProceso {
		return nil, model.InvalidStateError{Kind: "session", ID: sessionID, From: string(sess.Status), Op: "finalize"}
	}

	ts := m.now()
	sess.Status = model.SessionCompletada
	sess.FinalizedBy = actor
	sess.FinalizedAt = &ts
	if err := m.sessions.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	m.log.Info().Str("session_id", sessionID).Str("actor", actor).Msg("session finalized")
	return sess, nil
}

// Cancel moves an EN_PROCESO session to CANCELADA. Lines already
// CONCILIADO are not reverted.
func (m *Manager) Cancel(ctx context.Context, sessionID string) (*model.ImportSession, error) {
	sess, err := m.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.SessionEnProceso {
		return nil, model.InvalidStateError{Kind: "session", ID: sessionID, From: string(sess.Status), Op: "cancel"}
	}

	sess.Status = model.SessionCancelada
	if err := m.sessions.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	m.log.Info().Str("session_id", sessionID).Msg("session cancelled")
	return sess, nil
}

// Get returns a session by id.
func (m *Manager) Get(ctx context.Context, sessionID string) (*model.ImportSession, error) {
	return m.sessions.GetSession(ctx, sessionID)
}

// List returns all sessions, newest first.
func (m *Manager) List(ctx context.Context) ([]model.ImportSession, error) {
	return m.sessions.ListSessions(ctx)
}

func validateMeta(meta Meta) error {
	if meta.AccountID == "" {
		return model.ValidationError{Field: "account_id", Reason: "must not be empty"}
	}
	if meta.ContentHash == "" {
		return model.ValidationError{Field: "content_hash", Reason: "must not be empty"}
	}
	switch meta.SourceFormat {
	case "csv", "norma43", "ofx", "qfx":
	default:
		return model.ValidationError{Field: "source_format", Reason: "unknown format tag " + meta.SourceFormat}
	}
	return nil
}
