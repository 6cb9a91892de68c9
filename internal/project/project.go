// Package project loads and persists a concilia project directory: the
// YAML config, the ledger movements fixture and one directory per import
// session. All core services run against the in-memory stores built here;
// commands call Save to flush their changes back to disk.
package project

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/concilia-dev/concilia/internal/config"
	"github.com/concilia-dev/concilia/internal/ledger"
	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/store/inmemory"
)

const (
	// ConfigFile is the project configuration file name.
	ConfigFile = "concilia.yaml"

	ledgerDir     = "ledger"
	movementsFile = "ledger/movements.csv"
	sessionsDir   = "sessions"
	metaFileName  = "session.yaml"
	linesFileName = "lines.csv"
)

// Project is one opened concilia project directory.
type Project struct {
	Root    string
	Config  *config.Config
	Store   *inmemory.Store
	Gateway *ledger.Memory
}

// Open loads the project at root: config, ledger movements and every
// session with its lines.
func Open(root string) (*Project, error) {
	cfg, err := config.Load(filepath.Join(root, ConfigFile))
	if err != nil {
		return nil, err
	}

	movements, err := loadMovements(root)
	if err != nil {
		return nil, err
	}

	p := &Project{
		Root:    root,
		Config:  cfg,
		Store:   inmemory.NewStore(),
		Gateway: ledger.NewMemory(movements),
	}

	if err := p.loadSessions(); err != nil {
		return nil, err
	}
	return p, nil
}

func loadMovements(root string) ([]model.LedgerMovement, error) {
	path := filepath.Join(root, movementsFile)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", movementsFile, err)
	}
	defer f.Close()

	movements, err := ReadMovements(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", movementsFile, err)
	}
	return movements, nil
}

func (p *Project) loadSessions() error {
	dir := filepath.Join(p.Root, sessionsDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading sessions dir: %w", err)
	}

	ctx := context.Background()
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := p.loadSession(ctx, filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("loading session %s: %w", e.Name(), err)
		}
	}
	return nil
}

func (p *Project) loadSession(ctx context.Context, dir string) error {
	sess, err := loadMeta(filepath.Join(dir, metaFileName))
	if err != nil {
		return err
	}
	if err := p.Store.SaveSession(ctx, sess); err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(dir, linesFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening lines: %w", err)
	}
	defer f.Close()

	lines, err := ReadLines(f)
	if err != nil {
		return fmt.Errorf("reading lines: %w", err)
	}

	refs := make([]*model.StatementLine, 0, len(lines))
	for i := range lines {
		lines[i].SessionID = sess.ID
		lines[i].AccountID = sess.AccountID
		refs = append(refs, &lines[i])
	}
	return p.Store.InsertLines(ctx, refs)
}

// Save flushes every session, its lines and the ledger movements back to
// the project directory.
func (p *Project) Save(ctx context.Context) error {
	if err := p.saveMovements(); err != nil {
		return err
	}

	sessions, err := p.Store.ListSessions(ctx)
	if err != nil {
		return err
	}
	for i := range sessions {
		if err := p.saveSession(ctx, &sessions[i]); err != nil {
			return fmt.Errorf("saving session %s: %w", sessions[i].ID, err)
		}
	}
	return nil
}

func (p *Project) saveMovements() error {
	dir := filepath.Join(p.Root, ledgerDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}

	f, err := os.Create(filepath.Join(p.Root, movementsFile))
	if err != nil {
		return fmt.Errorf("creating %s: %w", movementsFile, err)
	}
	defer f.Close()

	return WriteMovements(f, p.Gateway.Movements())
}

func (p *Project) saveSession(ctx context.Context, sess *model.ImportSession) error {
	dir := filepath.Join(p.Root, sessionsDir, sess.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	if err := saveMeta(filepath.Join(dir, metaFileName), sess); err != nil {
		return err
	}

	lines, err := p.Store.LinesBySession(ctx, sess.ID)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, linesFileName))
	if err != nil {
		return fmt.Errorf("creating lines file: %w", err)
	}
	defer f.Close()

	return WriteLines(f, lines)
}

// HashContent returns the SHA-256 of a statement file's raw bytes as hex,
// used for duplicate-import detection.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
