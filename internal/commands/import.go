package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/id"
	"github.com/concilia-dev/concilia/internal/importer"
	"github.com/concilia-dev/concilia/internal/model"
	"github.com/concilia-dev/concilia/internal/project"
	"github.com/concilia-dev/concilia/internal/session"
)

func newImportCommand() *cobra.Command {
	var account string
	var format string
	var actor string
	var start, end string
	var opening, closing string

	cmd := &cobra.Command{
		Use:   "import <statement.csv>",
		Short: "Import a normalized statement file as a new session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := openServices(cmd)
			if err != nil {
				return err
			}

			meta := session.Meta{
				AccountID:    account,
				SourceFormat: format,
				CreatedBy:    actor,
			}
			if meta.StatementStart, err = parseOptionalDate(start); err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			if meta.StatementEnd, err = parseOptionalDate(end); err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			if meta.OpeningBalance, err = parseOptionalAmount(opening); err != nil {
				return fmt.Errorf("--opening: %w", err)
			}
			if meta.ClosingBalance, err = parseOptionalAmount(closing); err != nil {
				return fmt.Errorf("--closing: %w", err)
			}

			return runImport(cmd, svcs, args[0], meta)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "bank account id (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&format, "format", "csv", "source format: csv, norma43")
	cmd.Flags().StringVar(&actor, "by", "", "importing user (required)")
	_ = cmd.MarkFlagRequired("by")
	cmd.Flags().StringVar(&start, "start", "", "statement start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "statement end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opening, "opening", "", "opening balance")
	cmd.Flags().StringVar(&closing, "closing", "", "closing balance")

	return cmd
}

func runImport(cmd *cobra.Command, svcs *services, path string, meta session.Meta) error {
	if !svcs.project.Config.HasAccount(meta.AccountID) {
		return model.ValidationError{Field: "account", Reason: "not declared in " + project.ConfigFile}
	}

	parser, err := importer.DefaultRegistry().Get(meta.SourceFormat)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading statement: %w", err)
	}
	meta.ContentHash = project.HashContent(data)

	inputs, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	sess, err := svcs.manager.Start(ctx, meta, inputs)
	if err != nil {
		return err
	}

	// Files imported straight from the project inbox move to processed so
	// a directory scan shows only what is still to do.
	if inInbox, name := inboxFile(svcs.project.Root, path); inInbox {
		if err := importer.MarkProcessed(svcs.project.Root, name); err != nil {
			svcs.log.Warn().Err(err).Str("file", name).Msg("could not move statement to processed")
		}
	}

	if err := svcs.saveAndCommit(ctx, "import: session "+id.Short(sess.ID)); err != nil {
		return err
	}

	fmt.Printf("Imported session %s: %d lines, account %s\n", sess.ID, sess.Counters.Total, sess.AccountID)
	return nil
}

// inboxFile reports whether path points directly into <root>/import/ and
// returns the bare file name.
func inboxFile(root, path string) (bool, string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, ""
	}
	if filepath.Dir(abs) != filepath.Join(root, "import") {
		return false, ""
	}
	return true, filepath.Base(abs)
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

func parseOptionalAmount(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
