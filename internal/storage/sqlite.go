package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/codeindex/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
	// ErrWriterClosed is returned when a finished writer is used
	ErrWriterClosed = errors.New("index writer closed")
)

// SQLiteStorage implements Storage on SQLite FTS5
type SQLiteStorage struct {
	db *sql.DB
	// writerSlot holds a token while a Writer is open
	writerSlot chan struct{}
}

var _ Storage = (*SQLiteStorage)(nil)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn(dbPath))
	if err != nil {
		return nil, err
	}

	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		// WAL lets readers run beside the writer transaction
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	}
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return db, nil
}

// NewSQLiteStorage opens or creates the index at dbPath and applies pending
// migrations. ":memory:" opens a private in-memory index.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db, writerSlot: make(chan struct{}, 1)}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Project operations

const projectColumns = `id, name, root_path, description, indexed, last_indexed_at,
	repository_kind, branch, remote_url, created_at`

func (s *SQLiteStorage) CreateProject(ctx context.Context, project *types.Project) error {
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO projects (id, name, root_path, description, indexed, last_indexed_at,
		                      repository_kind, branch, remote_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		project.ID, project.Name, project.RootPath, project.Description, project.Indexed,
		nullTime(project.LastIndexed), string(project.RepositoryKind), project.Branch,
		project.RemoteURL, project.CreatedAt, time.Now())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("project %s: %w", project.RootPath, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) GetProject(ctx context.Context, id string) (*types.Project, error) {
	return scanProject(s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id))
}

func (s *SQLiteStorage) GetProjectByPath(ctx context.Context, rootPath string) (*types.Project, error) {
	return scanProject(s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE root_path = ?", rootPath))
}

func (s *SQLiteStorage) ListProjects(ctx context.Context) ([]*types.Project, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	projects := make([]*types.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLiteStorage) UpdateProject(ctx context.Context, project *types.Project) error {
	return updateProjectWithQuerier(ctx, s.db, project)
}

// updateProjectWithQuerier is shared by the storage and the writer transaction
func updateProjectWithQuerier(ctx context.Context, q querier, project *types.Project) error {
	query := `
		UPDATE projects
		SET name = ?, description = ?, indexed = ?, last_indexed_at = ?,
		    repository_kind = ?, branch = ?, remote_url = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := q.ExecContext(ctx, query,
		project.Name, project.Description, project.Indexed, nullTime(project.LastIndexed),
		string(project.RepositoryKind), project.Branch, project.RemoteURL, time.Now(), project.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("project %s: %w", project.ID, ErrNotFound)
	}
	return nil
}

// DeleteProject removes a project row. Its documents go with it.
func (s *SQLiteStorage) DeleteProject(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*types.Project, error) {
	var p types.Project
	var kind string
	var lastIndexed sql.NullTime
	err := row.Scan(&p.ID, &p.Name, &p.RootPath, &p.Description, &p.Indexed, &lastIndexed,
		&kind, &p.Branch, &p.RemoteURL, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.RepositoryKind = types.RepositoryKind(kind)
	if lastIndexed.Valid {
		p.LastIndexed = lastIndexed.Time
	}
	return &p, nil
}

// Document operations

// ListDocuments loads the documents of a project with their symbols and
// references but without content
func (s *SQLiteStorage) ListDocuments(ctx context.Context, projectID string) ([]*Document, error) {
	query := `
		SELECT id, file_id, project_id, path, relative_path, language, file_type, size,
		       line_count, encoding, last_modified, last_indexed, checksum
		FROM documents
		WHERE project_id = ?
		ORDER BY relative_path
	`
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}

	docs := make([]*Document, 0)
	byRow := make(map[int64]*Document)
	for rows.Next() {
		var rowID int64
		var doc Document
		var lang, fileType string
		var modified, indexed sql.NullTime
		f := &doc.File
		if err := rows.Scan(&rowID, &f.ID, &f.ProjectID, &f.Path, &f.RelativePath, &lang, &fileType,
			&f.Size, &f.LineCount, &f.Encoding, &modified, &indexed, &f.Checksum); err != nil {
			_ = rows.Close()
			return nil, err
		}
		f.Language = types.Language(lang)
		f.FileType = types.FileType(fileType)
		f.LastModified = modified.Time
		f.LastIndexed = indexed.Time
		docs = append(docs, &doc)
		byRow[rowID] = &doc
	}
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return nil, err
	}

	if err := s.loadSymbols(ctx, projectID, byRow); err != nil {
		return nil, err
	}
	if err := s.loadReferences(ctx, projectID, byRow); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *SQLiteStorage) loadSymbols(ctx context.Context, projectID string, byRow map[int64]*Document) error {
	query := `
		SELECT s.document_id, s.symbol_id, s.name, s.kind, s.line, s.col, s.end_line, s.end_col,
		       s.signature, s.scope, s.namespace, s.tags
		FROM doc_symbols s
		JOIN documents d ON s.document_id = d.id
		WHERE d.project_id = ?
		ORDER BY s.id
	`
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var rowID int64
		var sym types.Symbol
		var kind, tags string
		if err := rows.Scan(&rowID, &sym.ID, &sym.Name, &kind, &sym.Start.Line, &sym.Start.Column,
			&sym.End.Line, &sym.End.Column, &sym.Signature, &sym.Scope, &sym.Namespace, &tags); err != nil {
			return err
		}
		doc, ok := byRow[rowID]
		if !ok {
			continue
		}
		sym.Kind = types.SymbolKind(kind)
		sym.FileID = doc.File.ID
		if tags != "" {
			sym.Tags = strings.Split(tags, ",")
		}
		doc.Symbols = append(doc.Symbols, sym)
	}
	return rows.Err()
}

func (s *SQLiteStorage) loadReferences(ctx context.Context, projectID string, byRow map[int64]*Document) error {
	query := `
		SELECT r.document_id, r.reference_id, r.symbol_id, r.kind, r.line, r.col, r.end_line, r.end_col, r.context
		FROM doc_references r
		JOIN documents d ON r.document_id = d.id
		WHERE d.project_id = ?
		ORDER BY r.id
	`
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var rowID int64
		var ref types.Reference
		var kind string
		loc := &ref.Location
		if err := rows.Scan(&rowID, &ref.ID, &ref.SymbolID, &kind, &loc.Start.Line, &loc.Start.Column,
			&loc.End.Line, &loc.End.Column, &ref.Context); err != nil {
			return err
		}
		doc, ok := byRow[rowID]
		if !ok {
			continue
		}
		ref.Kind = types.ReferenceKind(kind)
		ref.FileID = doc.File.ID
		loc.FileID = doc.File.ID
		doc.References = append(doc.References, ref)
	}
	return rows.Err()
}

// Status operations

func (s *SQLiteStorage) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM projects", &stats.Projects},
		{"SELECT COUNT(*) FROM documents", &stats.Documents},
		{"SELECT COUNT(*) FROM doc_symbols", &stats.Symbols},
		{"SELECT COUNT(*) FROM doc_references", &stats.References},
		{"SELECT COALESCE(SUM(line_count), 0) FROM documents", &stats.Lines},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to read stats: %w", err)
		}
	}

	var last sql.NullString
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(last_indexed) FROM documents").Scan(&last); err == nil && last.Valid {
		stats.LastUpdate = parseTime(last.String)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.SizeBytes = pageCount * pageSize
	}

	return &stats, nil
}

// Helpers

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// parseTime reads an aggregate timestamp, which drivers return as text
func parseTime(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999 -0700 MST",
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
