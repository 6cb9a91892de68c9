package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/concilia-dev/concilia/internal/model"
)

// Memory is an in-memory Gateway backed by a movement map, safe for
// concurrent use. The CLI loads it from the project's movements.csv.
type Memory struct {
	mu        sync.Mutex
	movements map[string]*model.LedgerMovement
}

// NewMemory creates a gateway serving the given movements.
func NewMemory(movements []model.LedgerMovement) *Memory {
	m := &Memory{movements: make(map[string]*model.LedgerMovement, len(movements))}
	for i := range movements {
		cp := movements[i]
		m.movements[cp.ID] = &cp
	}
	return m
}

// Candidates implements Gateway.
func (m *Memory) Candidates(ctx context.Context, q CandidateQuery) ([]model.LedgerMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.LedgerMovement
	for _, mov := range m.movements {
		if !mov.Available() {
			continue
		}
		if mov.AccountID != q.AccountID || mov.Direction != q.Direction {
			continue
		}
		if !mov.Amount.Equal(q.Amount) {
			continue
		}
		if mov.DateDistance(q.Date) > q.MarginDays {
			continue
		}
		result = append(result, *mov)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// GetMovement implements Gateway.
func (m *Memory) GetMovement(ctx context.Context, id string) (*model.LedgerMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mov, ok := m.movements[id]
	if !ok {
		return nil, model.NotFoundError{Kind: "movement", ID: id}
	}
	cp := *mov
	return &cp, nil
}

// Claim implements Gateway.
func (m *Memory) Claim(ctx context.Context, movementID, lineID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mov, ok := m.movements[movementID]
	if !ok {
		return model.NotFoundError{Kind: "movement", ID: movementID}
	}
	if mov.Reconciled {
		return model.ConflictError{MovementID: movementID, ClaimedBy: mov.ReconciledLineID}
	}
	mov.Reconciled = true
	mov.ReconciledLineID = lineID
	return nil
}

// Release implements Gateway.
func (m *Memory) Release(ctx context.Context, movementID, lineID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mov, ok := m.movements[movementID]
	if !ok {
		return model.NotFoundError{Kind: "movement", ID: movementID}
	}
	if !mov.Reconciled {
		return nil
	}
	if mov.ReconciledLineID != lineID {
		return model.ConflictError{MovementID: movementID, ClaimedBy: mov.ReconciledLineID}
	}
	mov.Reconciled = false
	mov.ReconciledLineID = ""
	return nil
}

// Movements returns a sorted snapshot of every movement, for persistence.
func (m *Memory) Movements() []model.LedgerMovement {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]model.LedgerMovement, 0, len(m.movements))
	for _, mov := range m.movements {
		result = append(result, *mov)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

var _ Gateway = (*Memory)(nil)
