package storage

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/codeindex/pkg/types"
)

// Storage is the full-text index of project documents. Reads go straight to
// the database; every mutation of documents goes through a Writer.
type Storage interface {
	// Project operations
	CreateProject(ctx context.Context, project *types.Project) error
	GetProject(ctx context.Context, id string) (*types.Project, error)
	GetProjectByPath(ctx context.Context, rootPath string) (*types.Project, error)
	ListProjects(ctx context.Context) ([]*types.Project, error)
	UpdateProject(ctx context.Context, project *types.Project) error
	DeleteProject(ctx context.Context, id string) error

	// Document operations
	OpenWriter(ctx context.Context) (Writer, error)
	ListDocuments(ctx context.Context, projectID string) ([]*Document, error)

	// Search operations
	SearchDocuments(ctx context.Context, q DocumentQuery) ([]DocumentHit, error)
	SearchSymbols(ctx context.Context, q SymbolQuery) ([]types.SymbolHit, error)
	SearchReferences(ctx context.Context, q ReferenceQuery) ([]types.ReferenceHit, error)

	// Status operations
	GetStats(ctx context.Context) (*Stats, error)

	Close() error
}

// Writer is the single mutator of the index. Submissions are queued to one
// goroutine owning the transaction; nothing is visible to readers until
// Commit. A Writer must end with exactly one Commit or Rollback.
type Writer interface {
	// Put replaces the document of a file
	Put(ctx context.Context, doc *Document) error
	// DeleteDocument removes the document of one file
	DeleteDocument(ctx context.Context, fileID string) error
	// DeleteProjectDocuments removes every document of a project
	DeleteProjectDocuments(ctx context.Context, projectID string) error
	// SaveProject updates a project row in the same transaction
	SaveProject(ctx context.Context, project *types.Project) error

	Commit() error
	Rollback() error
}

// Document is the index record of one file: its metadata, full content and
// the symbols and references found in it
type Document struct {
	File       types.IndexedFile
	Content    string
	Symbols    []types.Symbol
	References []types.Reference
}

// Name returns the base name of the file
func (d *Document) Name() string {
	return filepath.Base(d.File.RelativePath)
}

// Extension returns the file extension without the dot
func (d *Document) Extension() string {
	return strings.TrimPrefix(filepath.Ext(d.File.RelativePath), ".")
}

// NumberLines renders content as "<line>:<text>" per line
func NumberLines(content string) string {
	if content == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	var b strings.Builder
	b.Grow(len(content) + len(lines)*4)
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte(':')
		b.WriteString(strings.TrimSuffix(line, "\r"))
	}
	return b.String()
}

// DocumentQuery selects documents by free text
type DocumentQuery struct {
	Text      string
	ProjectID string         // Optional
	Language  types.Language // Optional
	PathGlob  string         // Optional, matched against the relative path
	Limit     int
}

// DocumentHit is one matching document, best first
type DocumentHit struct {
	FileID       string
	ProjectID    string
	Path         string
	RelativePath string
	Language     types.Language
	Score        float64 // Higher is better
	Content      string
}

// SymbolQuery selects symbols by name, signature or scope text and kind
type SymbolQuery struct {
	Text      string
	Kind      types.SymbolKind // Optional
	ProjectID string           // Optional
	Limit     int
}

// ReferenceQuery selects stored references by the exact name of the symbol
// they resolve to
type ReferenceQuery struct {
	Name      string
	ProjectID string              // Optional
	Kind      types.ReferenceKind // Optional
	Limit     int
}

// Stats summarizes the index contents
type Stats struct {
	Projects   int
	Documents  int
	Symbols    int
	References int
	Lines      int
	SizeBytes  int64
	LastUpdate time.Time
}

const defaultLimit = 20
