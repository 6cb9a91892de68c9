package importer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/project"
	"github.com/concilia-dev/concilia/internal/session"
)

// Norma43Parser reads AEB Cuaderno 43 statement files, the fixed-width
// format Spanish banks use for account statements. Record 22 carries one
// movement; the 23 records that follow it carry the free-text concept.
type Norma43Parser struct{}

const norma43DateFormat = "060102" // AAMMDD

// Record codes.
const (
	n43Header   = "11"
	n43Movement = "22"
	n43Concept  = "23"
	n43Summary  = "33"
	n43EOF      = "88"
)

// Format returns the parser name.
func (p *Norma43Parser) Format() string { return "norma43" }

// Parse reads a Norma 43 file and returns normalized line inputs.
func (p *Norma43Parser) Parse(r io.Reader) ([]session.LineInput, error) {
	sc := bufio.NewScanner(r)

	var inputs []session.LineInput
	var current *session.LineInput
	var concepts []string
	lineNo := 0
	row := 0

	flush := func() {
		if current == nil {
			return
		}
		raw := strings.Join(concepts, " ")
		current.RawDescription = raw
		current.Description = project.CleanDescription(raw)
		inputs = append(inputs, *current)
		current = nil
		concepts = nil
	}

	for sc.Scan() {
		row++
		line := sc.Text()
		if len(line) < 2 {
			continue
		}

		switch line[:2] {
		case n43Movement:
			flush()
			lineNo++
			in, err := parseN43Movement(line)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", row, err)
			}
			in.LineNumber = lineNo
			current = &in
		case n43Concept:
			if current == nil {
				return nil, fmt.Errorf("record %d: concept record without a preceding movement", row)
			}
			concepts = append(concepts, strings.TrimSpace(n43Field(line, 5, 80)))
		case n43Header, n43Summary, n43EOF:
			// Account header, summary and end records carry no movements.
		default:
			return nil, fmt.Errorf("record %d: unknown record code %q", row, line[:2])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading norma43 file: %w", err)
	}
	flush()

	return inputs, nil
}

// parseN43Movement decodes a record 22. Field positions follow the AEB
// layout: operation date 11-16, value date 17-22, shared concept 23-24,
// debit/credit key 28, amount 29-42 (two implied decimals), document
// number 43-52, reference 53-64.
func parseN43Movement(line string) (session.LineInput, error) {
	opDate, err := time.Parse(norma43DateFormat, n43Field(line, 11, 16))
	if err != nil {
		return session.LineInput{}, fmt.Errorf("parsing operation date %q: %w", n43Field(line, 11, 16), err)
	}

	var valueDate *time.Time
	if raw := n43Field(line, 17, 22); strings.TrimSpace(raw) != "" && raw != "000000" {
		v, err := time.Parse(norma43DateFormat, raw)
		if err != nil {
			return session.LineInput{}, fmt.Errorf("parsing value date %q: %w", raw, err)
		}
		valueDate = &v
	}

	var direction model.Direction
	switch n43Field(line, 28, 28) {
	case "1":
		direction = model.DirectionCargo
	case "2":
		direction = model.DirectionAbono
	default:
		return session.LineInput{}, fmt.Errorf("unknown debit/credit key %q", n43Field(line, 28, 28))
	}

	cents, err := strconv.ParseInt(n43Field(line, 29, 42), 10, 64)
	if err != nil {
		return session.LineInput{}, fmt.Errorf("parsing amount %q: %w", n43Field(line, 29, 42), err)
	}

	reference := strings.TrimSpace(n43Field(line, 53, 64))
	if reference == "" {
		reference = strings.TrimLeft(strings.TrimSpace(n43Field(line, 43, 52)), "0")
	}

	return session.LineInput{
		Direction: direction,
		Date:      opDate,
		ValueDate: valueDate,
		Amount:    decimal.New(cents, -2),
		Reference: reference,
	}, nil
}

// n43Field extracts the 1-based inclusive character range, tolerating
// short lines.
func n43Field(line string, from, to int) string {
	if from > len(line) {
		return ""
	}
	if to > len(line) {
		to = len(line)
	}
	return line[from-1 : to]
}
