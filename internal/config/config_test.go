package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Gestoría Pérez")
	cfg.Business.TaxID = "B12345678"
	cfg.Accounts = []BankAccount{
		{ID: "bank-main", Name: "BBVA Principal", LastFour: "4455"},
	}

	path := filepath.Join(t.TempDir(), "concilia.yaml")
	err := Save(path, cfg)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Business.Name, got.Business.Name)
	assert.Equal(t, cfg.Business.TaxID, got.Business.TaxID)
	assert.Equal(t, cfg.Matching.MarginDays, got.Matching.MarginDays)
	assert.InDelta(t, cfg.Matching.SimilarityThreshold, got.Matching.SimilarityThreshold, 0.001)
	assert.Equal(t, cfg.Matching.Weights, got.Matching.Weights)
	assert.Equal(t, cfg.Git.AutoCommit, got.Git.AutoCommit)
	assert.Equal(t, cfg.Git.AuthorName, got.Git.AuthorName)
	assert.Equal(t, cfg.Git.AuthorEmail, got.Git.AuthorEmail)
	require.Len(t, got.Accounts, 1)
	assert.Equal(t, "bank-main", got.Accounts[0].ID)
	assert.Equal(t, "4455", got.Accounts[0].LastFour)
}

func TestDefaults(t *testing.T) {
	cfg := Default("Gestoría Pérez")

	assert.Equal(t, "Gestoría Pérez", cfg.Business.Name)
	assert.Equal(t, 10, cfg.Matching.MarginDays)
	assert.InDelta(t, 0.5, cfg.Matching.SimilarityThreshold, 0.001)

	w := cfg.Matching.Weights
	assert.Equal(t, 100, w.Amount+w.ExactDate+w.Reference+w.Description,
		"weights sum to 100 so scores read as percentages")

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Git.AutoCommit)
}

func TestHasAccount(t *testing.T) {
	cfg := Default("Test")
	cfg.Accounts = []BankAccount{{ID: "bank-main", Name: "BBVA"}}

	assert.True(t, cfg.HasAccount("bank-main"))
	assert.False(t, cfg.HasAccount("bank-other"))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "concilia.yaml"))
	require.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concilia.yaml")
	require.NoError(t, os.WriteFile(path, []byte("business: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
