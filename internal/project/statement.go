package project

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/session"
)

// StatementHeader is the header of the normalized statement interchange
// CSV consumed by the import command. Format-specific parsing
// (Norma43/OFX/QFX) happens upstream; this file format is concilia's own.
const StatementHeader = "date,value_date,direction,amount,description,reference,balance"

const (
	stmtNumFields    = 7
	stmtColDate      = 0
	stmtColValueDate = 1
	stmtColDirection = 2
	stmtColAmount    = 3
	stmtColDesc      = 4
	stmtColReference = 5
	stmtColBalance   = 6
)

// ParseStatement reads a normalized statement CSV into line inputs. Line
// numbers follow source order, starting at 1.
func ParseStatement(r io.Reader) ([]session.LineInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = stmtNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading statement CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var inputs []session.LineInput
	for i, rec := range records[1:] {
		in, err := parseStatementRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		in.LineNumber = i + 1
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func parseStatementRow(rec []string) (session.LineInput, error) {
	date, err := time.Parse(dateFormat, rec[stmtColDate])
	if err != nil {
		return session.LineInput{}, fmt.Errorf("parsing date %q: %w", rec[stmtColDate], err)
	}

	var valueDate *time.Time
	if rec[stmtColValueDate] != "" {
		v, err := time.Parse(dateFormat, rec[stmtColValueDate])
		if err != nil {
			return session.LineInput{}, fmt.Errorf("parsing value_date %q: %w", rec[stmtColValueDate], err)
		}
		valueDate = &v
	}

	direction := model.Direction(strings.ToUpper(strings.TrimSpace(rec[stmtColDirection])))
	if !direction.IsValid() {
		return session.LineInput{}, fmt.Errorf("unknown direction %q", rec[stmtColDirection])
	}

	amount, err := decimal.NewFromString(rec[stmtColAmount])
	if err != nil {
		return session.LineInput{}, fmt.Errorf("parsing amount %q: %w", rec[stmtColAmount], err)
	}

	var balance *decimal.Decimal
	if rec[stmtColBalance] != "" {
		b, err := decimal.NewFromString(rec[stmtColBalance])
		if err != nil {
			return session.LineInput{}, fmt.Errorf("parsing balance %q: %w", rec[stmtColBalance], err)
		}
		balance = &b
	}

	raw := rec[stmtColDesc]
	return session.LineInput{
		Direction:      direction,
		Date:           date,
		ValueDate:      valueDate,
		Description:    CleanDescription(raw),
		RawDescription: raw,
		Amount:         amount,
		Balance:        balance,
		Reference:      strings.TrimSpace(rec[stmtColReference]),
	}, nil
}

// CleanDescription collapses runs of whitespace and trims the result,
// leaving the raw text untouched elsewhere.
func CleanDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
