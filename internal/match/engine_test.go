package match

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concilia-dev/concilia/internal/ledger"
	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/session"
	"github.com/concilia-dev/concilia/internal/store/inmemory"
	"github.com/concilia-dev/concilia/internal/workflow"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func testLine(desc, ref string) model.StatementLine {
	return model.StatementLine{
		ID:          "lin_1",
		SessionID:   "ses_1",
		AccountID:   "bank-main",
		LineNumber:  1,
		Direction:   model.DirectionCargo,
		Date:        date(2025, 3, 10),
		Description: desc,
		Reference:   ref,
		Amount:      dec("84.20"),
		State:       model.LinePendiente,
	}
}

func movement(id string, d time.Time, desc, ref string) model.LedgerMovement {
	return model.LedgerMovement{
		ID:          id,
		AccountID:   "bank-main",
		Direction:   model.DirectionCargo,
		Date:        d,
		Amount:      dec("84.20"),
		Description: desc,
		Reference:   ref,
	}
}

func newTestEngine() *Engine {
	return &Engine{cfg: DefaultConfig(), log: zerolog.Nop()}
}

func TestScore_AllCriteria(t *testing.T) {
	e := newTestEngine()
	line := testLine("recibo luz iberdrola", "REF-445")
	mov := movement("mov_1", date(2025, 3, 10), "recibo luz iberdrola contrato", "ref-445")

	score, criteria := e.score(line, mov)
	assert.Equal(t, 100, score)
	assert.Equal(t, []string{
		CriterionAmount, CriterionExactDate, CriterionReference, CriterionDescription,
	}, criteria)
}

func TestScore_AmountOnly(t *testing.T) {
	e := newTestEngine()
	line := testLine("recibo luz iberdrola", "")
	mov := movement("mov_1", date(2025, 3, 14), "alquiler oficina centro", "")

	score, criteria := e.score(line, mov)
	assert.Equal(t, 40, score)
	assert.Equal(t, []string{CriterionAmount}, criteria)
}

func TestScore_ReferenceRequiresBothSides(t *testing.T) {
	e := newTestEngine()
	line := testLine("pago proveedor", "")
	mov := movement("mov_1", date(2025, 3, 10), "cobro cliente otro", "REF-445")

	score, _ := e.score(line, mov)
	assert.Equal(t, 70, score, "empty line reference never grants the reference weight")
}

func TestPickBest_HighestScoreWins(t *testing.T) {
	e := newTestEngine()
	line := testLine("recibo luz iberdrola", "")

	low := movement("mov_a", date(2025, 3, 14), "sin relacion alguna", "")
	high := movement("mov_b", date(2025, 3, 10), "recibo luz iberdrola", "")

	best := e.pickBest(line, []model.LedgerMovement{low, high})
	assert.Equal(t, "mov_b", best.movement.ID)
	assert.Equal(t, 80, best.score)
}

func TestPickBest_TieBreakByDateDistance(t *testing.T) {
	e := newTestEngine()
	line := testLine("pago generico", "")

	far := movement("mov_a", date(2025, 3, 17), "otra cosa distinta", "")
	near := movement("mov_b", date(2025, 3, 12), "texto sin parecido", "")

	best := e.pickBest(line, []model.LedgerMovement{far, near})
	assert.Equal(t, "mov_b", best.movement.ID, "same score, closer date wins")
}

func TestPickBest_TieBreakByID(t *testing.T) {
	e := newTestEngine()
	line := testLine("pago generico", "")

	// Identical score and date distance; the smaller id must win, in both
	// input orders.
	m1 := movement("mov_a", date(2025, 3, 12), "texto uno distinto", "")
	m2 := movement("mov_b", date(2025, 3, 12), "texto dos distinto", "")

	best := e.pickBest(line, []model.LedgerMovement{m2, m1})
	assert.Equal(t, "mov_a", best.movement.ID)

	best = e.pickBest(line, []model.LedgerMovement{m1, m2})
	assert.Equal(t, "mov_a", best.movement.ID)
}

// harness wires the engine against real stores so batch runs exercise the
// same transition path the CLI uses.
type harness struct {
	store    *inmemory.Store
	gateway  *ledger.Memory
	manager  *session.Manager
	workflow *workflow.Service
	engine   *Engine
}

func newHarness(t *testing.T, movements []model.LedgerMovement) *harness {
	t.Helper()
	st := inmemory.NewStore()
	gw := ledger.NewMemory(movements)
	log := zerolog.Nop()
	mgr := session.NewManager(st, st, log)
	wf := workflow.NewService(st, gw, mgr, nil, log)
	eng := NewEngine(st, gw, wf, DefaultConfig(), log)
	return &harness{store: st, gateway: gw, manager: mgr, workflow: wf, engine: eng}
}

func (h *harness) startSession(t *testing.T, inputs []session.LineInput) *model.ImportSession {
	t.Helper()
	sess, err := h.manager.Start(context.Background(), session.Meta{
		AccountID:    "bank-main",
		SourceFormat: "csv",
		ContentHash:  "deadbeef",
		CreatedBy:    "maria",
	}, inputs)
	require.NoError(t, err)
	return sess
}

func input(n int, d time.Time, amount, desc string) session.LineInput {
	return session.LineInput{
		LineNumber:  n,
		Direction:   model.DirectionCargo,
		Date:        d,
		Description: desc,
		Amount:      dec(amount),
	}
}

func TestRunBatch_SuggestsPendingLines(t *testing.T) {
	h := newHarness(t, []model.LedgerMovement{
		movement("mov_1", date(2025, 3, 10), "recibo luz iberdrola", ""),
	})
	sess := h.startSession(t, []session.LineInput{
		input(1, date(2025, 3, 10), "84.20", "recibo luz iberdrola"),
		input(2, date(2025, 3, 12), "500.00", "alquiler oficina"),
	})

	suggested, err := h.engine.RunBatch(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, suggested, 1, "only the line with a candidate gets a suggestion")

	got := suggested[0]
	assert.Equal(t, model.LineSugerido, got.State)
	require.NotNil(t, got.Proposal)
	assert.Equal(t, "mov_1", got.Proposal.MovementID)
	assert.Equal(t, 80, got.Proposal.Score)
	assert.Contains(t, got.Proposal.Rationale, "confianza 80/100")

	// Counters follow the transition.
	updated, err := h.manager.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Counters.Suggested)
	assert.Equal(t, 1, updated.Counters.Pending)
	assert.True(t, updated.Counters.Consistent())
}

func TestRunBatch_NoCandidateLeavesPendiente(t *testing.T) {
	h := newHarness(t, nil)
	sess := h.startSession(t, []session.LineInput{
		input(1, date(2025, 3, 10), "84.20", "recibo luz iberdrola"),
	})

	suggested, err := h.engine.RunBatch(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Empty(t, suggested)

	lines, err := h.store.LinesBySession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LinePendiente, lines[0].State)
}

func TestRunBatch_Idempotent(t *testing.T) {
	h := newHarness(t, []model.LedgerMovement{
		movement("mov_1", date(2025, 3, 10), "recibo luz iberdrola", ""),
	})
	sess := h.startSession(t, []session.LineInput{
		input(1, date(2025, 3, 10), "84.20", "recibo luz iberdrola"),
	})

	first, err := h.engine.RunBatch(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A second run skips the already suggested line.
	second, err := h.engine.RunBatch(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestRunBatch_SameMovementMaySuggestTwice(t *testing.T) {
	// Suggestions never claim, so one movement can back several proposals
	// until an approval takes it.
	h := newHarness(t, []model.LedgerMovement{
		movement("mov_1", date(2025, 3, 10), "recibo luz iberdrola", ""),
	})
	sess := h.startSession(t, []session.LineInput{
		input(1, date(2025, 3, 10), "84.20", "recibo luz iberdrola"),
		input(2, date(2025, 3, 11), "84.20", "recibo luz iberdrola"),
	})

	suggested, err := h.engine.RunBatch(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, suggested, 2)
	assert.Equal(t, "mov_1", suggested[0].Proposal.MovementID)
	assert.Equal(t, "mov_1", suggested[1].Proposal.MovementID)
}

func TestRunBatch_CancelledContextKeepsPartialResult(t *testing.T) {
	h := newHarness(t, []model.LedgerMovement{
		movement("mov_1", date(2025, 3, 10), "recibo luz iberdrola", ""),
	})
	sess := h.startSession(t, []session.LineInput{
		input(1, date(2025, 3, 10), "84.20", "recibo luz iberdrola"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	suggested, err := h.engine.RunBatch(ctx, sess.ID)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, suggested)

	// The line is untouched and a fresh run picks it up.
	suggested, err = h.engine.RunBatch(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Len(t, suggested, 1)
}

func TestSetMarginDays(t *testing.T) {
	h := newHarness(t, []model.LedgerMovement{
		movement("mov_1", date(2025, 3, 30), "recibo luz iberdrola", ""),
	})
	sess := h.startSession(t, []session.LineInput{
		input(1, date(2025, 3, 10), "84.20", "recibo luz iberdrola"),
	})

	// 20 days out, beyond the default window.
	suggested, err := h.engine.RunBatch(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Empty(t, suggested)

	h.engine.SetMarginDays(25)
	suggested, err = h.engine.RunBatch(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Len(t, suggested, 1)

	// Zero and negative values are ignored.
	h.engine.SetMarginDays(0)
	assert.Equal(t, 25, h.engine.cfg.MarginDays)
}
