package project

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/concilia-dev/concilia/internal/model"
)

// metaFile is the on-disk shape of a session's session.yaml. Amounts and
// dates are stored as strings so the file stays human-editable and the
// round-trip is exact.
type metaFile struct {
	ID             string `yaml:"id"`
	AccountID      string `yaml:"account_id"`
	SourceFormat   string `yaml:"source_format"`
	ContentHash    string `yaml:"content_hash"`
	StatementStart string `yaml:"statement_start,omitempty"`
	StatementEnd   string `yaml:"statement_end,omitempty"`
	OpeningBalance string `yaml:"opening_balance,omitempty"`
	ClosingBalance string `yaml:"closing_balance,omitempty"`
	Status         string `yaml:"status"`
	ErrorMessage   string `yaml:"error_message,omitempty"`
	CreatedBy      string `yaml:"created_by"`
	CreatedAt      string `yaml:"created_at"`
	FinalizedBy    string `yaml:"finalized_by,omitempty"`
	FinalizedAt    string `yaml:"finalized_at,omitempty"`

	Counters metaCounters `yaml:"counters"`
}

type metaCounters struct {
	Total       int `yaml:"total"`
	Conciliated int `yaml:"conciliated"`
	Pending     int `yaml:"pending"`
	Suggested   int `yaml:"suggested"`
	Discarded   int `yaml:"discarded"`
}

func saveMeta(path string, s *model.ImportSession) error {
	mf := metaFile{
		ID:           s.ID,
		AccountID:    s.AccountID,
		SourceFormat: s.SourceFormat,
		ContentHash:  s.ContentHash,
		Status:       string(s.Status),
		ErrorMessage: s.ErrorMessage,
		CreatedBy:    s.CreatedBy,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
		FinalizedBy:  s.FinalizedBy,
		Counters: metaCounters{
			Total:       s.Counters.Total,
			Conciliated: s.Counters.Conciliated,
			Pending:     s.Counters.Pending,
			Suggested:   s.Counters.Suggested,
			Discarded:   s.Counters.Discarded,
		},
	}
	if !s.StatementStart.IsZero() {
		mf.StatementStart = s.StatementStart.Format(dateFormat)
	}
	if !s.StatementEnd.IsZero() {
		mf.StatementEnd = s.StatementEnd.Format(dateFormat)
	}
	if s.OpeningBalance != nil {
		mf.OpeningBalance = s.OpeningBalance.StringFixed(2)
	}
	if s.ClosingBalance != nil {
		mf.ClosingBalance = s.ClosingBalance.StringFixed(2)
	}
	if s.FinalizedAt != nil {
		mf.FinalizedAt = s.FinalizedAt.Format(time.RFC3339)
	}

	data, err := yaml.Marshal(&mf)
	if err != nil {
		return fmt.Errorf("marshaling session meta: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing session meta: %w", err)
	}
	return nil
}

func loadMeta(path string) (*model.ImportSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading session meta: %w", err)
	}

	var mf metaFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parsing session meta: %w", err)
	}

	s := &model.ImportSession{
		ID:           mf.ID,
		AccountID:    mf.AccountID,
		SourceFormat: mf.SourceFormat,
		ContentHash:  mf.ContentHash,
		Status:       model.SessionStatus(mf.Status),
		ErrorMessage: mf.ErrorMessage,
		CreatedBy:    mf.CreatedBy,
		FinalizedBy:  mf.FinalizedBy,
		Counters: model.LineCounters{
			Total:       mf.Counters.Total,
			Conciliated: mf.Counters.Conciliated,
			Pending:     mf.Counters.Pending,
			Suggested:   mf.Counters.Suggested,
			Discarded:   mf.Counters.Discarded,
		},
	}

	if mf.CreatedAt != "" {
		ts, err := time.Parse(time.RFC3339, mf.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at %q: %w", mf.CreatedAt, err)
		}
		s.CreatedAt = ts
	}
	if mf.FinalizedAt != "" {
		ts, err := time.Parse(time.RFC3339, mf.FinalizedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing finalized_at %q: %w", mf.FinalizedAt, err)
		}
		s.FinalizedAt = &ts
	}
	if mf.StatementStart != "" {
		d, err := time.Parse(dateFormat, mf.StatementStart)
		if err != nil {
			return nil, fmt.Errorf("parsing statement_start %q: %w", mf.StatementStart, err)
		}
		s.StatementStart = d
	}
	if mf.StatementEnd != "" {
		d, err := time.Parse(dateFormat, mf.StatementEnd)
		if err != nil {
			return nil, fmt.Errorf("parsing statement_end %q: %w", mf.StatementEnd, err)
		}
		s.StatementEnd = d
	}
	if mf.OpeningBalance != "" {
		b, err := decimal.NewFromString(mf.OpeningBalance)
		if err != nil {
			return nil, fmt.Errorf("parsing opening_balance %q: %w", mf.OpeningBalance, err)
		}
		s.OpeningBalance = &b
	}
	if mf.ClosingBalance != "" {
		b, err := decimal.NewFromString(mf.ClosingBalance)
		if err != nil {
			return nil, fmt.Errorf("parsing closing_balance %q: %w", mf.ClosingBalance, err)
		}
		s.ClosingBalance = &b
	}

	return s, nil
}
