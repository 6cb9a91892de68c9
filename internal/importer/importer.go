// Package importer turns bank statement files into normalized line inputs.
// Each supported source format registers a parser; the import command looks
// the parser up by the session's format tag.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/concilia-dev/concilia/internal/project"
	"github.com/concilia-dev/concilia/internal/session"
)

// Parser converts one statement file into normalized line inputs.
type Parser interface {
	Parse(r io.Reader) ([]session.LineInput, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a statement file in the import inbox.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or an error naming the formats that
// do have one.
func (r *Registry) Get(format string) (Parser, error) {
	p, ok := r.parsers[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("no parser for format %q (available: %s)", format, strings.Join(r.Formats(), ", "))
	}
	return p, nil
}

// Formats returns the registered format tags, sorted.
func (r *Registry) Formats() []string {
	keys := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&CSVParser{})
	r.Register(&Norma43Parser{})
	return r
}

// CSVParser reads the normalized statement interchange CSV.
type CSVParser struct{}

// Format returns the parser name.
func (p *CSVParser) Format() string { return "csv" }

// Parse delegates to the project-level interchange codec.
func (p *CSVParser) Parse(r io.Reader) ([]session.LineInput, error) {
	return project.ParseStatement(r)
}

// importDir is the inbox subdirectory for statement files.
const importDir = "import"

// processedDir is where imported files are moved.
const processedDir = "import/processed"

// Scan returns statement files in <projectRoot>/import/.
func Scan(projectRoot string) ([]FileInfo, error) {
	dir := filepath.Join(projectRoot, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(projectRoot, fileName string) error {
	src := filepath.Join(projectRoot, importDir, fileName)
	dstDir := filepath.Join(projectRoot, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
