package project

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/model"
)

// MovementsHeader is the CSV header for ledger/movements.csv.
const MovementsHeader = "movement_id,account_id,direction,date,amount,description,reference,reconciled,reconciled_line_id"

const (
	movNumFields         = 9
	colMovID             = 0
	colMovAccountID      = 1
	colMovDirection      = 2
	colMovDate           = 3
	colMovAmount         = 4
	colMovDescription    = 5
	colMovReference      = 6
	colMovReconciled     = 7
	colMovReconciledLine = 8
)

// ReadMovements reads all ledger movements from a movements.csv reader.
func ReadMovements(r io.Reader) ([]model.LedgerMovement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = movNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading movements CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var movements []model.LedgerMovement
	for i, rec := range records[1:] {
		m, err := UnmarshalMovement(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		movements = append(movements, m)
	}
	return movements, nil
}

// WriteMovements writes movements to a movements.csv writer (including
// header).
func WriteMovements(w io.Writer, movements []model.LedgerMovement) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(MovementsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, m := range movements {
		if err := cw.Write(MarshalMovement(m)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalMovement converts a LedgerMovement to a CSV row.
func MarshalMovement(m model.LedgerMovement) []string {
	row := make([]string, movNumFields)
	row[colMovID] = m.ID
	row[colMovAccountID] = m.AccountID
	row[colMovDirection] = string(m.Direction)
	row[colMovDate] = m.Date.Format(dateFormat)
	row[colMovAmount] = m.Amount.StringFixed(2)
	row[colMovDescription] = m.Description
	row[colMovReference] = m.Reference
	if m.Reconciled {
		row[colMovReconciled] = "true"
	} else {
		row[colMovReconciled] = "false"
	}
	row[colMovReconciledLine] = m.ReconciledLineID
	return row
}

// UnmarshalMovement converts a CSV row to a LedgerMovement.
func UnmarshalMovement(record []string) (model.LedgerMovement, error) {
	if len(record) != movNumFields {
		return model.LedgerMovement{}, fmt.Errorf("expected %d fields, got %d", movNumFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colMovDate])
	if err != nil {
		return model.LedgerMovement{}, fmt.Errorf("parsing date %q: %w", record[colMovDate], err)
	}

	amount, err := decimal.NewFromString(record[colMovAmount])
	if err != nil {
		return model.LedgerMovement{}, fmt.Errorf("parsing amount %q: %w", record[colMovAmount], err)
	}

	var reconciled bool
	switch record[colMovReconciled] {
	case "true":
		reconciled = true
	case "false", "":
		reconciled = false
	default:
		return model.LedgerMovement{}, fmt.Errorf("parsing reconciled %q: expected true or false", record[colMovReconciled])
	}

	return model.LedgerMovement{
		ID:               record[colMovID],
		AccountID:        record[colMovAccountID],
		Direction:        model.Direction(record[colMovDirection]),
		Date:             date,
		Amount:           amount,
		Description:      record[colMovDescription],
		Reference:        record[colMovReference],
		Reconciled:       reconciled,
		ReconciledLineID: record[colMovReconciledLine],
	}, nil
}
