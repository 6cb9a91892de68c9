package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level concilia.yaml configuration.
type Config struct {
	Business BusinessConfig `yaml:"business"`
	Accounts []BankAccount  `yaml:"bank_accounts,omitempty"`
	Matching MatchingConfig `yaml:"matching"`
	Logging  LoggingConfig  `yaml:"logging"`
	Git      GitConfig      `yaml:"git"`
}

// BusinessConfig identifies the business entity.
type BusinessConfig struct {
	Name  string `yaml:"name"`
	TaxID string `yaml:"tax_id,omitempty"`
}

// BankAccount names a bank account whose statements get reconciled.
type BankAccount struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	LastFour string `yaml:"last_four,omitempty"`
}

// MatchingConfig controls the candidate search and scoring weights.
type MatchingConfig struct {
	MarginDays          int            `yaml:"margin_days"`
	SimilarityThreshold float64        `yaml:"similarity_threshold"`
	Weights             MatchingWeight `yaml:"weights"`
}

// MatchingWeight holds the per-criterion score contributions. They should
// sum to 100 so the score reads as a confidence percentage.
type MatchingWeight struct {
	Amount      int `yaml:"amount"`
	ExactDate   int `yaml:"exact_date"`
	Reference   int `yaml:"reference"`
	Description int `yaml:"description"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// HasAccount reports whether an account id is declared in the config.
func (c *Config) HasAccount(id string) bool {
	for _, a := range c.Accounts {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Load reads a concilia.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(businessName string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name: businessName,
		},
		Matching: MatchingConfig{
			MarginDays:          10,
			SimilarityThreshold: 0.5,
			Weights: MatchingWeight{
				Amount:      40,
				ExactDate:   30,
				Reference:   20,
				Description: 10,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Concilia",
			AuthorEmail: "bot@concilia.dev",
		},
	}
}
