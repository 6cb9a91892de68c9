package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/config"
	"github.com/concilia-dev/concilia/internal/gitops"
	"github.com/concilia-dev/concilia/internal/project"
)

func newInitCommand() *cobra.Command {
	var name string
	var accounts []string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new concilia project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(absDir, name, accounts)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringSliceVar(&accounts, "account", nil, "bank account as id:name, repeatable")

	return cmd
}

func runInit(dir, name string, accounts []string) error {
	// Create directory structure.
	dirs := []string{
		"ledger",
		"sessions",
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write concilia.yaml.
	cfg := config.Default(name)
	for _, a := range accounts {
		id, accName, ok := strings.Cut(a, ":")
		if !ok {
			accName = id
		}
		cfg.Accounts = append(cfg.Accounts, config.BankAccount{ID: id, Name: accName})
	}
	if err := config.Save(filepath.Join(dir, project.ConfigFile), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write an empty movements file so the ledger fixture has a template.
	movementsPath := filepath.Join(dir, "ledger", "movements.csv")
	if err := os.WriteFile(movementsPath, []byte(project.MovementsHeader+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing movements: %w", err)
	}

	// Write .gitignore.
	gitignore := "import/\n.concilia-cache/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	// Write import/.gitkeep.
	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	// Initialize git and create initial commit.
	if err := gitops.Init(dir); err != nil {
		return fmt.Errorf("git init: %w", err)
	}

	hash, err := gitops.CommitAll(dir, "init: "+name, cfg.Git.AuthorName, cfg.Git.AuthorEmail)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Printf("Initialized concilia project at %s (%s)\n", dir, hash)
	return nil
}
