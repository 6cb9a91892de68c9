package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/store"
)

// Store is an in-memory implementation of store.SessionStore and
// store.LineStore, safe for concurrent use. Data is lost on process exit;
// the CLI layer loads and persists it through the project directory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*model.ImportSession
	lines    map[string]*model.StatementLine
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*model.ImportSession),
		lines:    make(map[string]*model.StatementLine),
	}
}

// SaveSession implements store.SessionStore.
func (s *Store) SaveSession(ctx context.Context, sess *model.ImportSession) error {
	if sess.ID == "" {
		return model.ValidationError{Field: "session_id", Reason: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

// GetSession implements store.SessionStore.
func (s *Store) GetSession(ctx context.Context, id string) (*model.ImportSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, model.NotFoundError{Kind: "session", ID: id}
	}
	cp := *sess
	return &cp, nil
}

// FindActiveByHash implements store.SessionStore.
func (s *Store) FindActiveByHash(ctx context.Context, accountID, contentHash string) (*model.ImportSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.AccountID != accountID || sess.ContentHash != contentHash {
			continue
		}
		if sess.Status == model.SessionCancelada || sess.Status == model.SessionError {
			continue
		}
		cp := *sess
		return &cp, nil
	}
	return nil, nil
}

// ListSessions implements store.SessionStore.
func (s *Store) ListSessions(ctx context.Context) ([]model.ImportSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.ImportSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		result = append(result, *sess)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// InsertLines implements store.LineStore.
func (s *Store) InsertLines(ctx context.Context, lines []*model.StatementLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before any line becomes visible.
	seen := make(map[string]map[int]bool)
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return err
		}
		if _, exists := s.lines[l.ID]; exists {
			return model.ValidationError{Field: "line_id", Reason: "duplicate id " + l.ID}
		}
		nums := seen[l.SessionID]
		if nums == nil {
			nums = make(map[int]bool)
			seen[l.SessionID] = nums
		}
		if nums[l.LineNumber] || s.lineNumberTaken(l.SessionID, l.LineNumber) {
			return model.ValidationError{Field: "line_number", Reason: "duplicate within session"}
		}
		nums[l.LineNumber] = true
	}

	for _, l := range lines {
		cp := copyLine(l)
		s.lines[l.ID] = cp
	}
	return nil
}

func (s *Store) lineNumberTaken(sessionID string, n int) bool {
	for _, l := range s.lines {
		if l.SessionID == sessionID && l.LineNumber == n {
			return true
		}
	}
	return false
}

// GetLine implements store.LineStore.
func (s *Store) GetLine(ctx context.Context, id string) (*model.StatementLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lines[id]
	if !ok {
		return nil, model.NotFoundError{Kind: "line", ID: id}
	}
	return copyLine(l), nil
}

// ListLines implements store.LineStore.
func (s *Store) ListLines(ctx context.Context, sessionID string, f store.LineFilter, p store.PageRequest) (store.LinePage, error) {
	all, err := s.LinesBySession(ctx, sessionID)
	if err != nil {
		return store.LinePage{}, err
	}

	var filtered []model.StatementLine
	for _, l := range all {
		if f.State != "" && l.State != f.State {
			continue
		}
		filtered = append(filtered, l)
	}

	page := store.LinePage{Total: len(filtered), Limit: p.Limit, Offset: p.Offset}
	if p.Offset >= len(filtered) {
		return page, nil
	}
	filtered = filtered[p.Offset:]
	if p.Limit > 0 && p.Limit < len(filtered) {
		filtered = filtered[:p.Limit]
	}
	page.Lines = filtered
	return page, nil
}

// LinesBySession implements store.LineStore.
func (s *Store) LinesBySession(ctx context.Context, sessionID string) ([]model.StatementLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.StatementLine
	for _, l := range s.lines {
		if l.SessionID == sessionID {
			result = append(result, *copyLine(l))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LineNumber < result[j].LineNumber
	})
	return result, nil
}

// UpdateLine implements store.LineStore.
func (s *Store) UpdateLine(ctx context.Context, lineID, op string, expect []model.LineState, mutate func(*model.StatementLine) error) (*model.StatementLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lines[lineID]
	if !ok {
		return nil, model.NotFoundError{Kind: "line", ID: lineID}
	}

	allowed := false
	for _, st := range expect {
		if l.State == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, model.InvalidStateError{Kind: "line", ID: lineID, From: string(l.State), Op: op}
	}

	// Mutate a copy so a veto or validation failure leaves the stored line
	// intact.
	cp := copyLine(l)
	if err := mutate(cp); err != nil {
		return nil, err
	}
	if err := cp.Validate(); err != nil {
		return nil, err
	}

	s.lines[lineID] = cp
	return copyLine(cp), nil
}

// copyLine deep-copies a line, including its proposal and pointer fields.
func copyLine(l *model.StatementLine) *model.StatementLine {
	cp := *l
	if l.Proposal != nil {
		p := *l.Proposal
		p.Criteria = append([]string(nil), l.Proposal.Criteria...)
		cp.Proposal = &p
	}
	if l.ValueDate != nil {
		v := *l.ValueDate
		cp.ValueDate = &v
	}
	if l.Balance != nil {
		b := *l.Balance
		cp.Balance = &b
	}
	return &cp
}

var (
	_ store.SessionStore = (*Store)(nil)
	_ store.LineStore    = (*Store)(nil)
)
