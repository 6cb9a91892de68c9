package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concilia-dev/concilia/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func fixtureMovements() []model.LedgerMovement {
	return []model.LedgerMovement{
		{ID: "mov_1", AccountID: "bank-main", Direction: model.DirectionCargo, Date: date(2025, 3, 10), Amount: dec("84.20"), Description: "recibo luz"},
		{ID: "mov_2", AccountID: "bank-main", Direction: model.DirectionCargo, Date: date(2025, 3, 25), Amount: dec("84.20"), Description: "recibo gas"},
		{ID: "mov_3", AccountID: "bank-main", Direction: model.DirectionAbono, Date: date(2025, 3, 10), Amount: dec("84.20"), Description: "abono cliente"},
		{ID: "mov_4", AccountID: "bank-other", Direction: model.DirectionCargo, Date: date(2025, 3, 10), Amount: dec("84.20"), Description: "otra cuenta"},
		{ID: "mov_5", AccountID: "bank-main", Direction: model.DirectionCargo, Date: date(2025, 3, 10), Amount: dec("99.99"), Description: "otro importe"},
	}
}

func TestCandidates_HardFilters(t *testing.T) {
	m := NewMemory(fixtureMovements())
	ctx := context.Background()

	got, err := m.Candidates(ctx, CandidateQuery{
		AccountID:  "bank-main",
		Direction:  model.DirectionCargo,
		Amount:     dec("84.20"),
		Date:       date(2025, 3, 10),
		MarginDays: 10,
	})
	require.NoError(t, err)

	// mov_2 is 15 days out, mov_3 has the wrong direction, mov_4 the wrong
	// account, mov_5 the wrong amount.
	require.Len(t, got, 1)
	assert.Equal(t, "mov_1", got[0].ID)
}

func TestCandidates_DateWindow(t *testing.T) {
	m := NewMemory(fixtureMovements())
	ctx := context.Background()

	got, err := m.Candidates(ctx, CandidateQuery{
		AccountID:  "bank-main",
		Direction:  model.DirectionCargo,
		Amount:     dec("84.20"),
		Date:       date(2025, 3, 18),
		MarginDays: 10,
	})
	require.NoError(t, err)
	require.Len(t, got, 2, "both CARGO movements fall inside the window")
	assert.Equal(t, "mov_1", got[0].ID, "results sorted by id")
	assert.Equal(t, "mov_2", got[1].ID)
}

func TestCandidates_ExcludesClaimed(t *testing.T) {
	m := NewMemory(fixtureMovements())
	ctx := context.Background()
	require.NoError(t, m.Claim(ctx, "mov_1", "lin_1"))

	got, err := m.Candidates(ctx, CandidateQuery{
		AccountID:  "bank-main",
		Direction:  model.DirectionCargo,
		Amount:     dec("84.20"),
		Date:       date(2025, 3, 10),
		MarginDays: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClaim_Conflict(t *testing.T) {
	m := NewMemory(fixtureMovements())
	ctx := context.Background()

	require.NoError(t, m.Claim(ctx, "mov_1", "lin_1"))

	err := m.Claim(ctx, "mov_1", "lin_2")
	var conflict model.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "mov_1", conflict.MovementID)
	assert.Equal(t, "lin_1", conflict.ClaimedBy)
}

func TestClaim_ConcurrentSingleWinner(t *testing.T) {
	m := NewMemory(fixtureMovements())
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Claim(ctx, "mov_1", "lin_1")
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		}
	}
	assert.Equal(t, 1, won, "exactly one claim may succeed")
}

func TestRelease(t *testing.T) {
	m := NewMemory(fixtureMovements())
	ctx := context.Background()

	require.NoError(t, m.Claim(ctx, "mov_1", "lin_1"))

	// A different line cannot release the claim.
	err := m.Release(ctx, "mov_1", "lin_2")
	var conflict model.ConflictError
	require.ErrorAs(t, err, &conflict)

	require.NoError(t, m.Release(ctx, "mov_1", "lin_1"))

	mov, err := m.GetMovement(ctx, "mov_1")
	require.NoError(t, err)
	assert.True(t, mov.Available())

	// Releasing an unclaimed movement is a no-op.
	require.NoError(t, m.Release(ctx, "mov_1", "lin_1"))
}

func TestGetMovement_NotFound(t *testing.T) {
	m := NewMemory(nil)
	_, err := m.GetMovement(context.Background(), "mov_missing")
	var nf model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "movement", nf.Kind)
}

func TestMovements_Snapshot(t *testing.T) {
	m := NewMemory(fixtureMovements())
	require.NoError(t, m.Claim(context.Background(), "mov_1", "lin_1"))

	movements := m.Movements()
	require.Len(t, movements, 5)
	assert.Equal(t, "mov_1", movements[0].ID, "snapshot sorted by id")
	assert.True(t, movements[0].Reconciled)
	assert.Equal(t, "lin_1", movements[0].ReconciledLineID)
}
