package storage

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/dshills/codeindex/pkg/types"
)

// ftsQuery turns free text into a safe FTS5 expression: every word becomes
// a quoted term and terms are and-ed. A trailing '*' on a word keeps prefix
// matching. Operators and punctuation never reach FTS5 unquoted.
func ftsQuery(text string) string {
	var terms []string
	for _, field := range strings.Fields(text) {
		prefix := strings.HasSuffix(field, "*")
		words := strings.FieldsFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		for i, w := range words {
			term := `"` + strings.ReplaceAll(w, `"`, `""`) + `"`
			if prefix && i == len(words)-1 {
				term += "*"
			}
			terms = append(terms, term)
		}
	}
	return strings.Join(terms, " ")
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return defaultLimit
	}
	return n
}

// SearchDocuments runs a full-text query over paths, names and content,
// best match first
func (s *SQLiteStorage) SearchDocuments(ctx context.Context, q DocumentQuery) ([]DocumentHit, error) {
	match := ftsQuery(q.Text)
	if match == "" {
		return nil, types.ErrEmptyQuery
	}

	query := `
		SELECT d.file_id, d.project_id, d.path, d.relative_path, d.language, d.content,
		       bm25(documents_fts) AS score
		FROM documents_fts
		JOIN documents d ON d.id = documents_fts.rowid
		WHERE documents_fts MATCH ?
	`
	args := []any{match}
	if q.ProjectID != "" {
		query += " AND d.project_id = ?"
		args = append(args, q.ProjectID)
	}
	if q.Language != "" {
		query += " AND d.language = ?"
		args = append(args, string(q.Language))
	}
	if q.PathGlob != "" {
		query += " AND d.relative_path GLOB ?"
		args = append(args, q.PathGlob)
	}
	// bm25 is lower for better matches
	query += " ORDER BY score, d.relative_path LIMIT ?"
	args = append(args, limitOrDefault(q.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute document search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]DocumentHit, 0)
	for rows.Next() {
		var h DocumentHit
		var lang string
		var score float64
		if err := rows.Scan(&h.FileID, &h.ProjectID, &h.Path, &h.RelativePath, &lang, &h.Content, &score); err != nil {
			return nil, err
		}
		h.Language = types.Language(lang)
		h.Score = -score
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// SearchSymbols finds symbols by name, signature or scope text, optionally
// restricted to one kind. With no text it lists symbols of the kind by name.
func (s *SQLiteStorage) SearchSymbols(ctx context.Context, q SymbolQuery) ([]types.SymbolHit, error) {
	match := ftsQuery(q.Text)
	if match == "" && q.Kind == "" {
		return nil, types.ErrEmptyQuery
	}

	var query string
	var args []any
	if match != "" {
		// Exact name matches rank ahead of any bm25 score
		query = `
			SELECT d.project_id, d.relative_path, d.file_id, s.symbol_id, s.name, s.kind, s.line, s.col,
			       s.end_line, s.end_col, s.signature, s.scope, s.namespace, s.tags,
			       bm25(symbols_fts, 10.0, 2.0, 1.0) - (CASE WHEN s.name = ? THEN 100.0 ELSE 0 END) AS score
			FROM symbols_fts
			JOIN doc_symbols s ON s.id = symbols_fts.rowid
			JOIN documents d ON d.id = s.document_id
			WHERE symbols_fts MATCH ?
		`
		args = []any{strings.TrimSuffix(strings.TrimSpace(q.Text), "*"), match}
	} else {
		query = `
			SELECT d.project_id, d.relative_path, d.file_id, s.symbol_id, s.name, s.kind, s.line, s.col,
			       s.end_line, s.end_col, s.signature, s.scope, s.namespace, s.tags,
			       0.0 AS score
			FROM doc_symbols s
			JOIN documents d ON d.id = s.document_id
			WHERE 1 = 1
		`
	}
	if q.Kind != "" {
		query += " AND s.kind = ?"
		args = append(args, string(q.Kind))
	}
	if q.ProjectID != "" {
		query += " AND d.project_id = ?"
		args = append(args, q.ProjectID)
	}
	query += " ORDER BY score, s.name, d.relative_path, s.line LIMIT ?"
	args = append(args, limitOrDefault(q.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute symbol search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]types.SymbolHit, 0)
	for rows.Next() {
		var h types.SymbolHit
		var kind, tags string
		var score float64
		sym := &h.Symbol
		if err := rows.Scan(&h.ProjectID, &h.Path, &sym.FileID, &sym.ID, &sym.Name, &kind,
			&sym.Start.Line, &sym.Start.Column, &sym.End.Line, &sym.End.Column,
			&sym.Signature, &sym.Scope, &sym.Namespace, &tags, &score); err != nil {
			return nil, err
		}
		sym.Kind = types.SymbolKind(kind)
		if tags != "" {
			sym.Tags = strings.Split(tags, ",")
		}
		h.Rank = len(hits) + 1
		h.Score = -score
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// SearchReferences lists the stored usages of every symbol with the given
// name, in path and position order
func (s *SQLiteStorage) SearchReferences(ctx context.Context, q ReferenceQuery) ([]types.ReferenceHit, error) {
	name := strings.TrimSpace(q.Name)
	if name == "" {
		return nil, types.ErrEmptyQuery
	}

	query := `
		SELECT d.project_id, d.relative_path, d.file_id,
		       r.reference_id, r.kind, r.line, r.col, r.end_line, r.end_col, r.context,
		       s.symbol_id, s.name, s.kind, s.line, s.col, s.end_line, s.end_col,
		       s.signature, s.scope, s.namespace, s.tags
		FROM doc_references r
		JOIN documents d ON d.id = r.document_id
		JOIN doc_symbols s ON s.document_id = r.document_id AND s.symbol_id = r.symbol_id
		WHERE s.name = ?
	`
	args := []any{name}
	if q.ProjectID != "" {
		query += " AND d.project_id = ?"
		args = append(args, q.ProjectID)
	}
	if q.Kind != "" {
		query += " AND r.kind = ?"
		args = append(args, string(q.Kind))
	}
	query += " ORDER BY d.relative_path, r.line, r.col, r.reference_id LIMIT ?"
	args = append(args, limitOrDefault(q.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute reference search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]types.ReferenceHit, 0)
	for rows.Next() {
		var h types.ReferenceHit
		var refKind, symKind, tags string
		ref, sym := &h.Reference, &h.Symbol
		loc := &ref.Location
		if err := rows.Scan(&h.ProjectID, &h.Path, &ref.FileID,
			&ref.ID, &refKind, &loc.Start.Line, &loc.Start.Column, &loc.End.Line, &loc.End.Column, &ref.Context,
			&sym.ID, &sym.Name, &symKind, &sym.Start.Line, &sym.Start.Column, &sym.End.Line, &sym.End.Column,
			&sym.Signature, &sym.Scope, &sym.Namespace, &tags); err != nil {
			return nil, err
		}
		ref.Kind = types.ReferenceKind(refKind)
		ref.SymbolID = sym.ID
		loc.FileID = ref.FileID
		sym.FileID = ref.FileID
		sym.Kind = types.SymbolKind(symKind)
		if tags != "" {
			sym.Tags = strings.Split(tags, ",")
		}
		h.Rank = len(hits) + 1
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
