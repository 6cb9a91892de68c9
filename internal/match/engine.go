// Package match implements the candidate search and scoring algorithm that
// turns pending statement lines into ranked reconciliation suggestions.
package match

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/concilia-dev/concilia/internal/ledger"
	"github.com/concilia-dev/concilia/internal/model"
)

// Criteria tags recorded on a proposal for each rule that contributed to
// its score.
const (
	CriterionAmount      = "importe exacto"
	CriterionExactDate   = "fecha exacta"
	CriterionReference   = "referencia coincide"
	CriterionDescription = "concepto similar"
)

// Config holds the scoring weights and search margins. Weights sum to 100
// so the score doubles as a confidence percentage.
type Config struct {
	// MarginDays is the half-width of the candidate date window around the
	// statement date.
	MarginDays int

	WeightAmount      int
	WeightExactDate   int
	WeightReference   int
	WeightDescription int

	// SimilarityThreshold is the minimum normalized token overlap for the
	// description criterion to hold.
	SimilarityThreshold float64
}

// DefaultConfig returns the standard weights: amount 40, exact date 30,
// reference 20, description 10, over a 10-day window.
func DefaultConfig() Config {
	return Config{
		MarginDays:          10,
		WeightAmount:        40,
		WeightExactDate:     30,
		WeightReference:     20,
		WeightDescription:   10,
		SimilarityThreshold: 0.5,
	}
}

// LineSource lists a session's statement lines.
type LineSource interface {
	LinesBySession(ctx context.Context, sessionID string) ([]model.StatementLine, error)
}

// CandidateSource serves matchable ledger movements.
type CandidateSource interface {
	Candidates(ctx context.Context, q ledger.CandidateQuery) ([]model.LedgerMovement, error)
}

// ProposalWriter records a suggestion on a pending line. The workflow
// implements this so every transition goes through the same state machine
// and counter recompute.
type ProposalWriter interface {
	Suggest(ctx context.Context, lineID string, p model.MatchProposal) (*model.StatementLine, error)
}

// Engine produces zero or one scored proposal per pending line.
type Engine struct {
	lines      LineSource
	candidates CandidateSource
	writer     ProposalWriter
	cfg        Config
	log        zerolog.Logger
}

// NewEngine creates a matching engine.
func NewEngine(lines LineSource, candidates CandidateSource, writer ProposalWriter, cfg Config, log zerolog.Logger) *Engine {
	return &Engine{lines: lines, candidates: candidates, writer: writer, cfg: cfg, log: log}
}

// SetMarginDays overrides the candidate date window, for callers that need
// a wider or narrower search than the configured default.
func (e *Engine) SetMarginDays(days int) {
	if days > 0 {
		e.cfg.MarginDays = days
	}
}

// RunBatch applies the per-line matching algorithm to every PENDIENTE line
// of the session and returns the newly suggested lines. Each line's update
// is independent; cancellation or an error mid-batch leaves already
// suggested lines valid and the rest untouched, so the batch is safe to
// resume.
func (e *Engine) RunBatch(ctx context.Context, sessionID string) ([]model.StatementLine, error) {
	lines, err := e.lines.LinesBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing lines for session %s: %w", sessionID, err)
	}

	var suggested []model.StatementLine
	for _, line := range lines {
		if line.State != model.LinePendiente {
			continue
		}
		if err := ctx.Err(); err != nil {
			return suggested, err
		}

		updated, err := e.MatchLine(ctx, line)
		if err != nil {
			return suggested, fmt.Errorf("matching line %s: %w", line.ID, err)
		}
		if updated != nil {
			suggested = append(suggested, *updated)
		}
	}

	e.log.Info().
		Str("session_id", sessionID).
		Int("suggested", len(suggested)).
		Msg("matching batch finished")
	return suggested, nil
}

// MatchLine runs the matching algorithm for a single pending line. It
// returns the updated line when a suggestion was written, or nil when no
// candidate exists and the line stays PENDIENTE.
func (e *Engine) MatchLine(ctx context.Context, line model.StatementLine) (*model.StatementLine, error) {
	candidates, err := e.candidates.Candidates(ctx, ledger.CandidateQuery{
		AccountID:  line.AccountID,
		Direction:  line.Direction,
		Amount:     line.Amount,
		Date:       line.Date,
		MarginDays: e.cfg.MarginDays,
	})
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	best := e.pickBest(line, candidates)
	proposal := e.buildProposal(line, best)

	updated, err := e.writer.Suggest(ctx, line.ID, proposal)
	if err != nil {
		return nil, err
	}

	e.log.Debug().
		Str("line_id", line.ID).
		Str("movement_id", proposal.MovementID).
		Int("score", proposal.Score).
		Msg("suggestion written")
	return updated, nil
}

// scored pairs one candidate with its score for ranking.
type scored struct {
	movement model.LedgerMovement
	score    int
	criteria []string
	distance int // days between statement date and movement date
}

// pickBest scores every candidate and applies the deterministic tie-break:
// highest score, then smallest date distance, then smallest id.
func (e *Engine) pickBest(line model.StatementLine, candidates []model.LedgerMovement) scored {
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		score, criteria := e.score(line, c)
		ranked = append(ranked, scored{
			movement: c,
			score:    score,
			criteria: criteria,
			distance: c.DateDistance(line.Date),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].distance != ranked[j].distance {
			return ranked[i].distance < ranked[j].distance
		}
		return ranked[i].movement.ID < ranked[j].movement.ID
	})
	return ranked[0]
}

// score sums the fixed weights of every criterion that holds. The amount
// criterion always holds because amount equality is a hard filter on the
// candidate query.
func (e *Engine) score(line model.StatementLine, c model.LedgerMovement) (int, []string) {
	score := e.cfg.WeightAmount
	criteria := []string{CriterionAmount}

	if c.DateDistance(line.Date) == 0 {
		score += e.cfg.WeightExactDate
		criteria = append(criteria, CriterionExactDate)
	}
	if line.Reference != "" && c.Reference != "" && strings.EqualFold(line.Reference, c.Reference) {
		score += e.cfg.WeightReference
		criteria = append(criteria, CriterionReference)
	}
	if Similarity(line.Description, c.Description) >= e.cfg.SimilarityThreshold {
		score += e.cfg.WeightDescription
		criteria = append(criteria, CriterionDescription)
	}
	return score, criteria
}

func (e *Engine) buildProposal(line model.StatementLine, best scored) model.MatchProposal {
	return model.MatchProposal{
		MovementID: best.movement.ID,
		Score:      best.score,
		Rationale:  fmt.Sprintf("confianza %d/100: %s", best.score, strings.Join(best.criteria, ", ")),
		Criteria:   best.criteria,
	}
}
