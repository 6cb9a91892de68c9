package project

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concilia-dev/concilia/internal/config"
	"github.com/concilia-dev/concilia/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestLinesRoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 11, 17, 4, 5, 0, time.UTC)
	valueDate := date(2025, 3, 11)
	balance := dec("1204.55")
	lines := []model.StatementLine{
		{
			ID:             "lin_1",
			LineNumber:     1,
			Direction:      model.DirectionCargo,
			Date:           date(2025, 3, 10),
			ValueDate:      &valueDate,
			Description:    "recibo luz iberdrola",
			RawDescription: "RECIBO  LUZ   IBERDROLA",
			Amount:         dec("84.20"),
			Balance:        &balance,
			Reference:      "REF-445",
			State:          model.LineConciliado,
			Proposal: &model.MatchProposal{
				MovementID: "mov_1",
				Score:      80,
				Rationale:  "confianza 80/100: importe exacto, fecha exacta, concepto similar",
				Criteria:   []string{"importe exacto", "fecha exacta", "concepto similar"},
			},
			ReconciledBy: "maria",
			ReconciledAt: &ts,
		},
		{
			ID:          "lin_2",
			LineNumber:  2,
			Direction:   model.DirectionAbono,
			Date:        date(2025, 3, 12),
			Description: "transferencia cliente",
			Amount:      dec("500.00"),
			State:       model.LinePendiente,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteLines(&buf, lines))
	assert.True(t, strings.HasPrefix(buf.String(), LinesHeader))

	got, err := ReadLines(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "lin_1", got[0].ID)
	assert.Equal(t, model.LineConciliado, got[0].State)
	require.NotNil(t, got[0].Proposal)
	assert.Equal(t, "mov_1", got[0].Proposal.MovementID)
	assert.Equal(t, 80, got[0].Proposal.Score)
	assert.Equal(t, lines[0].Proposal.Criteria, got[0].Proposal.Criteria)
	assert.True(t, got[0].Amount.Equal(dec("84.20")))
	require.NotNil(t, got[0].Balance)
	assert.True(t, got[0].Balance.Equal(balance))
	require.NotNil(t, got[0].ReconciledAt)
	assert.True(t, got[0].ReconciledAt.Equal(ts))
	assert.Equal(t, "RECIBO  LUZ   IBERDROLA", got[0].RawDescription)

	assert.Nil(t, got[1].Proposal)
	assert.Nil(t, got[1].ValueDate)
	assert.Nil(t, got[1].Balance)
}

func TestMovementsRoundTrip(t *testing.T) {
	movements := []model.LedgerMovement{
		{
			ID:               "mov_1",
			AccountID:        "bank-main",
			Direction:        model.DirectionCargo,
			Date:             date(2025, 3, 10),
			Amount:           dec("84.20"),
			Description:      "recibo luz",
			Reference:        "REF-445",
			Reconciled:       true,
			ReconciledLineID: "lin_1",
		},
		{
			ID:        "mov_2",
			AccountID: "bank-main",
			Direction: model.DirectionAbono,
			Date:      date(2025, 3, 12),
			Amount:    dec("500.00"),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMovements(&buf, movements))

	got, err := ReadMovements(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Reconciled)
	assert.Equal(t, "lin_1", got[0].ReconciledLineID)
	assert.False(t, got[1].Reconciled)
	assert.True(t, got[1].Amount.Equal(dec("500.00")))
}

func TestMetaRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")

	opening := dec("1000.00")
	closing := dec("915.80")
	finalized := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)
	sess := &model.ImportSession{
		ID:             "ses_1",
		AccountID:      "bank-main",
		SourceFormat:   "csv",
		ContentHash:    "deadbeef",
		StatementStart: date(2025, 3, 1),
		StatementEnd:   date(2025, 3, 31),
		OpeningBalance: &opening,
		ClosingBalance: &closing,
		Counters:       model.LineCounters{Total: 4, Conciliated: 2, Pending: 1, Discarded: 1},
		Status:         model.SessionCompletada,
		CreatedBy:      "maria",
		CreatedAt:      time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC),
		FinalizedBy:    "maria",
		FinalizedAt:    &finalized,
	}

	require.NoError(t, saveMeta(path, sess))

	got, err := loadMeta(path)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.Counters, got.Counters)
	assert.Equal(t, model.SessionCompletada, got.Status)
	assert.True(t, got.StatementStart.Equal(sess.StatementStart))
	require.NotNil(t, got.OpeningBalance)
	assert.True(t, got.OpeningBalance.Equal(opening))
	require.NotNil(t, got.FinalizedAt)
	assert.True(t, got.FinalizedAt.Equal(finalized))
	assert.True(t, got.CreatedAt.Equal(sess.CreatedAt))
}

func TestMetaRoundTrip_Minimal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")

	sess := &model.ImportSession{
		ID:           "ses_1",
		AccountID:    "bank-main",
		SourceFormat: "csv",
		ContentHash:  "deadbeef",
		Counters:     model.LineCounters{Total: 1, Pending: 1},
		Status:       model.SessionEnProceso,
		CreatedBy:    "maria",
		CreatedAt:    time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC),
	}
	require.NoError(t, saveMeta(path, sess))

	got, err := loadMeta(path)
	require.NoError(t, err)
	assert.Nil(t, got.OpeningBalance)
	assert.Nil(t, got.ClosingBalance)
	assert.Nil(t, got.FinalizedAt)
	assert.True(t, got.StatementStart.IsZero())
}

func TestOpenSaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	require.NoError(t, config.Save(filepath.Join(root, ConfigFile), config.Default("Gestoría Pérez")))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ledger"), 0o755))
	movementsCSV := MovementsHeader + "\n" +
		"mov_1,bank-main,CARGO,2025-03-10,84.20,recibo luz,REF-445,false,\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "ledger", "movements.csv"), []byte(movementsCSV), 0o644))

	p, err := Open(root)
	require.NoError(t, err)
	assert.Equal(t, "Gestoría Pérez", p.Config.Business.Name)

	mov, err := p.Gateway.GetMovement(ctx, "mov_1")
	require.NoError(t, err)
	assert.True(t, mov.Available())

	// Create a session with one line, claim the movement, save.
	sess := &model.ImportSession{
		ID:           "ses_1",
		AccountID:    "bank-main",
		SourceFormat: "csv",
		ContentHash:  "deadbeef",
		Counters:     model.LineCounters{Total: 1, Pending: 1},
		Status:       model.SessionEnProceso,
		CreatedBy:    "maria",
		CreatedAt:    time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC),
	}
	require.NoError(t, p.Store.SaveSession(ctx, sess))
	require.NoError(t, p.Store.InsertLines(ctx, []*model.StatementLine{{
		ID:          "lin_1",
		SessionID:   "ses_1",
		AccountID:   "bank-main",
		LineNumber:  1,
		Direction:   model.DirectionCargo,
		Date:        date(2025, 3, 10),
		Description: "recibo luz",
		Amount:      dec("84.20"),
		State:       model.LinePendiente,
	}}))
	require.NoError(t, p.Gateway.Claim(ctx, "mov_1", "lin_1"))
	require.NoError(t, p.Save(ctx))

	// Reopen and verify everything came back.
	p2, err := Open(root)
	require.NoError(t, err)

	sess2, err := p2.Store.GetSession(ctx, "ses_1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionEnProceso, sess2.Status)

	lines, err := p2.Store.LinesBySession(ctx, "ses_1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "ses_1", lines[0].SessionID, "session id restored from meta")
	assert.Equal(t, "bank-main", lines[0].AccountID)

	mov2, err := p2.Gateway.GetMovement(ctx, "mov_1")
	require.NoError(t, err)
	assert.False(t, mov2.Available())
	assert.Equal(t, "lin_1", mov2.ReconciledLineID)
}

func TestOpen_MissingConfig(t *testing.T) {
	_, err := Open(t.TempDir())
	require.Error(t, err)
}

func TestOpen_NoMovementsFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, config.Save(filepath.Join(root, ConfigFile), config.Default("Test")))

	p, err := Open(root)
	require.NoError(t, err)
	assert.Empty(t, p.Gateway.Movements())
}

func TestHashContent(t *testing.T) {
	a := HashContent([]byte("extracto marzo"))
	b := HashContent([]byte("extracto marzo"))
	c := HashContent([]byte("extracto abril"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64, "sha-256 hex")
}
