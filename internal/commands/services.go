package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/auditlog"
	"github.com/concilia-dev/concilia/internal/config"
	"github.com/concilia-dev/concilia/internal/gitops"
	"github.com/concilia-dev/concilia/internal/logger"
	"github.com/concilia-dev/concilia/internal/match"
	"github.com/concilia-dev/concilia/internal/project"
	"github.com/concilia-dev/concilia/internal/session"
	"github.com/concilia-dev/concilia/internal/workflow"
)

// services bundles the opened project with the wired core services.
type services struct {
	project  *project.Project
	manager  *session.Manager
	workflow *workflow.Service
	engine   *match.Engine
	log      zerolog.Logger
}

// openServices resolves the --project flag, opens the project directory
// and wires stores, gateway, manager, workflow and engine together.
func openServices(cmd *cobra.Command) (*services, error) {
	dir, err := cmd.Flags().GetString("project")
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	p, err := project.Open(root)
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(p.Config.Logging.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	log := logger.New(level)

	manager := session.NewManager(p.Store, p.Store, log)
	auditor := &fileAuditor{root: root, log: log}
	wf := workflow.NewService(p.Store, p.Gateway, manager, auditor, log)
	engine := match.NewEngine(p.Store, p.Gateway, wf, engineConfig(p.Config.Matching), log)

	return &services{
		project:  p,
		manager:  manager,
		workflow: wf,
		engine:   engine,
		log:      log,
	}, nil
}

// saveAndCommit flushes the project to disk and auto-commits when the
// config asks for it.
func (s *services) saveAndCommit(ctx context.Context, message string) error {
	if err := s.project.Save(ctx); err != nil {
		return err
	}
	hash, err := gitops.AutoCommit(s.project.Root, message, s.project.Config.Git)
	if err != nil {
		return fmt.Errorf("auto-commit: %w", err)
	}
	if hash != "" {
		s.log.Debug().Str("commit", hash).Msg("project committed")
	}
	return nil
}

// engineConfig maps the YAML matching block onto the engine config,
// falling back to the defaults for unset values.
func engineConfig(mc config.MatchingConfig) match.Config {
	cfg := match.DefaultConfig()
	if mc.MarginDays > 0 {
		cfg.MarginDays = mc.MarginDays
	}
	if mc.SimilarityThreshold > 0 {
		cfg.SimilarityThreshold = mc.SimilarityThreshold
	}
	w := mc.Weights
	if w.Amount+w.ExactDate+w.Reference+w.Description > 0 {
		cfg.WeightAmount = w.Amount
		cfg.WeightExactDate = w.ExactDate
		cfg.WeightReference = w.Reference
		cfg.WeightDescription = w.Description
	}
	return cfg
}

// fileAuditor appends workflow actions to the project's audit log.
// Recording is best-effort: a write failure never fails the transition.
type fileAuditor struct {
	root string
	log  zerolog.Logger
}

func (a *fileAuditor) Record(ctx context.Context, action, sessionID, lineID, actor, detail string) {
	entry := auditlog.Entry{
		Timestamp: time.Now(),
		Actor:     actor,
		Action:    action,
		SessionID: sessionID,
		LineID:    lineID,
		Detail:    detail,
	}
	if err := auditlog.Append(a.root, []auditlog.Entry{entry}); err != nil {
		a.log.Warn().Err(err).Str("action", action).Msg("failed to write audit log")
	}
}

var _ workflow.Auditor = (*fileAuditor)(nil)
