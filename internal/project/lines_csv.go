package project

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/model"
)

// LinesHeader is the CSV header for a session's lines.csv.
const LinesHeader = "line_id,line_number,direction,date,value_date,description,raw_description,amount,balance,reference,state,movement_id,score,rationale,criteria,discard_reason,reconciled_by,reconciled_at"

const (
	lineNumFields     = 18
	dateFormat        = "2006-01-02"
	colLineID         = 0
	colLineNumber     = 1
	colDirection      = 2
	colDate           = 3
	colValueDate      = 4
	colDescription    = 5
	colRawDescription = 6
	colAmount         = 7
	colBalance        = 8
	colReference      = 9
	colState          = 10
	colMovementID     = 11
	colScore          = 12
	colRationale      = 13
	colCriteria       = 14
	colDiscardReason  = 15
	colReconciledBy   = 16
	colReconciledAt   = 17
)

// ReadLines reads all statement lines from a lines.csv reader. Session and
// account ids are not stored per row; the caller fills them in from the
// session metadata.
func ReadLines(r io.Reader) ([]model.StatementLine, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = lineNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading lines CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var lines []model.StatementLine
	for i, rec := range records[1:] {
		l, err := UnmarshalLine(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// WriteLines writes lines to a lines.csv writer (including header).
func WriteLines(w io.Writer, lines []model.StatementLine) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(LinesHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, l := range lines {
		if err := cw.Write(MarshalLine(l)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalLine converts a StatementLine to a CSV row.
func MarshalLine(l model.StatementLine) []string {
	row := make([]string, lineNumFields)
	row[colLineID] = l.ID
	row[colLineNumber] = strconv.Itoa(l.LineNumber)
	row[colDirection] = string(l.Direction)
	row[colDate] = l.Date.Format(dateFormat)
	if l.ValueDate != nil {
		row[colValueDate] = l.ValueDate.Format(dateFormat)
	}
	row[colDescription] = l.Description
	row[colRawDescription] = l.RawDescription
	row[colAmount] = l.Amount.StringFixed(2)
	if l.Balance != nil {
		row[colBalance] = l.Balance.StringFixed(2)
	}
	row[colReference] = l.Reference
	row[colState] = string(l.State)
	if l.Proposal != nil {
		row[colMovementID] = l.Proposal.MovementID
		row[colScore] = strconv.Itoa(l.Proposal.Score)
		row[colRationale] = l.Proposal.Rationale
		row[colCriteria] = l.Proposal.CriteriaTags()
	}
	row[colDiscardReason] = l.DiscardReason
	row[colReconciledBy] = l.ReconciledBy
	if l.ReconciledAt != nil {
		row[colReconciledAt] = l.ReconciledAt.Format(time.RFC3339)
	}
	return row
}

// UnmarshalLine converts a CSV row to a StatementLine.
func UnmarshalLine(record []string) (model.StatementLine, error) {
	if len(record) != lineNumFields {
		return model.StatementLine{}, fmt.Errorf("expected %d fields, got %d", lineNumFields, len(record))
	}

	lineNumber, err := strconv.Atoi(record[colLineNumber])
	if err != nil {
		return model.StatementLine{}, fmt.Errorf("parsing line_number %q: %w", record[colLineNumber], err)
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.StatementLine{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	var valueDate *time.Time
	if record[colValueDate] != "" {
		v, err := time.Parse(dateFormat, record[colValueDate])
		if err != nil {
			return model.StatementLine{}, fmt.Errorf("parsing value_date %q: %w", record[colValueDate], err)
		}
		valueDate = &v
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.StatementLine{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	var balance *decimal.Decimal
	if record[colBalance] != "" {
		b, err := decimal.NewFromString(record[colBalance])
		if err != nil {
			return model.StatementLine{}, fmt.Errorf("parsing balance %q: %w", record[colBalance], err)
		}
		balance = &b
	}

	var proposal *model.MatchProposal
	if record[colMovementID] != "" {
		score := 0
		if record[colScore] != "" {
			score, err = strconv.Atoi(record[colScore])
			if err != nil {
				return model.StatementLine{}, fmt.Errorf("parsing score %q: %w", record[colScore], err)
			}
		}
		var criteria []string
		if record[colCriteria] != "" {
			criteria = strings.Split(record[colCriteria], ";")
		}
		proposal = &model.MatchProposal{
			MovementID: record[colMovementID],
			Score:      score,
			Rationale:  record[colRationale],
			Criteria:   criteria,
		}
	}

	var reconciledAt *time.Time
	if record[colReconciledAt] != "" {
		ts, err := time.Parse(time.RFC3339, record[colReconciledAt])
		if err != nil {
			return model.StatementLine{}, fmt.Errorf("parsing reconciled_at %q: %w", record[colReconciledAt], err)
		}
		reconciledAt = &ts
	}

	return model.StatementLine{
		ID:             record[colLineID],
		LineNumber:     lineNumber,
		Direction:      model.Direction(record[colDirection]),
		Date:           date,
		ValueDate:      valueDate,
		Description:    record[colDescription],
		RawDescription: record[colRawDescription],
		Amount:         amount,
		Balance:        balance,
		Reference:      record[colReference],
		State:          model.LineState(record[colState]),
		Proposal:       proposal,
		DiscardReason:  record[colDiscardReason],
		ReconciledBy:   record[colReconciledBy],
		ReconciledAt:   reconciledAt,
	}, nil
}
