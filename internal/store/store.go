package store

import (
	"context"

	"github.com/concilia-dev/concilia/internal/model"
)

// LineFilter narrows a line listing. Zero value matches every line.
type LineFilter struct {
	State model.LineState
}

// PageRequest is a limit/offset pagination window. Limit 0 means no limit.
type PageRequest struct {
	Limit  int
	Offset int
}

// LinePage is one page of statement lines plus the unpaginated total.
type LinePage struct {
	Lines  []model.StatementLine
	Total  int
	Limit  int
	Offset int
}

// SessionStore persists import sessions.
type SessionStore interface {
	// SaveSession inserts or replaces a session record.
	SaveSession(ctx context.Context, s *model.ImportSession) error

	// GetSession returns a session by id, or NotFoundError.
	GetSession(ctx context.Context, id string) (*model.ImportSession, error)

	// FindActiveByHash returns a session for the account with the given
	// content hash whose status is not CANCELADA or ERROR, or nil if none
	// exists. Used by the duplicate-import guard.
	FindActiveByHash(ctx context.Context, accountID, contentHash string) (*model.ImportSession, error)

	// ListSessions returns all sessions, newest first.
	ListSessions(ctx context.Context) ([]model.ImportSession, error)
}

// LineStore persists statement lines. Lines are never deleted, only
// state-transitioned.
type LineStore interface {
	// InsertLines stores a batch of new lines. Line numbers must be unique
	// within their session.
	InsertLines(ctx context.Context, lines []*model.StatementLine) error

	// GetLine returns a line by id, or NotFoundError.
	GetLine(ctx context.Context, id string) (*model.StatementLine, error)

	// ListLines returns the session's lines ordered by line number,
	// filtered and paginated.
	ListLines(ctx context.Context, sessionID string, f LineFilter, p PageRequest) (LinePage, error)

	// LinesBySession returns all of the session's lines ordered by line
	// number.
	LinesBySession(ctx context.Context, sessionID string) ([]model.StatementLine, error)

	// UpdateLine applies mutate to the line under the store lock, but only
	// if the line's current state is one of expect; otherwise it returns
	// InvalidStateError naming op. mutate may veto the update by returning
	// an error, which leaves the stored line untouched. The mutated line is
	// validated before the update becomes visible.
	UpdateLine(ctx context.Context, lineID, op string, expect []model.LineState, mutate func(*model.StatementLine) error) (*model.StatementLine, error)
}
