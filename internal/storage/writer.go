package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dshills/codeindex/pkg/types"
)

// writeQueueSize bounds how far submitters may run ahead of the writer
const writeQueueSize = 64

type opKind int

const (
	opPut opKind = iota
	opDeleteDocument
	opDeleteProject
	opSaveProject
)

type writeOp struct {
	kind    opKind
	doc     *Document
	id      string
	project types.Project
}

// sqliteWriter owns one transaction. A single goroutine applies queued
// operations in submission order; the first failure poisons the writer so
// Commit reports it and rolls back.
type sqliteWriter struct {
	s   *SQLiteStorage
	tx  *sql.Tx
	ops chan writeOp

	// mu guards closed against sends racing Commit and Rollback
	mu     sync.RWMutex
	closed bool

	done chan struct{}
	err  error // Written by run only, read after done
}

// OpenWriter starts the single writer of the index. It blocks while another
// writer is open.
func (s *SQLiteStorage) OpenWriter(ctx context.Context) (Writer, error) {
	select {
	case s.writerSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// The transaction outlives ctx; it ends with Commit or Rollback
	tx, err := s.db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		<-s.writerSlot
		return nil, fmt.Errorf("failed to begin index transaction: %w", err)
	}

	w := &sqliteWriter{
		s:    s,
		tx:   tx,
		ops:  make(chan writeOp, writeQueueSize),
		done: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *sqliteWriter) run() {
	defer close(w.done)
	ctx := context.Background()
	for op := range w.ops {
		if w.err != nil {
			continue // Drain
		}
		w.err = w.apply(ctx, op)
	}
}

func (w *sqliteWriter) apply(ctx context.Context, op writeOp) error {
	switch op.kind {
	case opPut:
		return putDocument(ctx, w.tx, op.doc)
	case opDeleteDocument:
		_, err := w.tx.ExecContext(ctx, "DELETE FROM documents WHERE file_id = ?", op.id)
		if err != nil {
			return fmt.Errorf("failed to delete document %s: %w", op.id, err)
		}
		return nil
	case opDeleteProject:
		_, err := w.tx.ExecContext(ctx, "DELETE FROM documents WHERE project_id = ?", op.id)
		if err != nil {
			return fmt.Errorf("failed to delete documents of project %s: %w", op.id, err)
		}
		return nil
	case opSaveProject:
		return updateProjectWithQuerier(ctx, w.tx, &op.project)
	}
	return fmt.Errorf("unknown write operation %d", op.kind)
}

func (w *sqliteWriter) submit(ctx context.Context, op writeOp) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWriterClosed
	}
	select {
	case w.ops <- op:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *sqliteWriter) Put(ctx context.Context, doc *Document) error {
	return w.submit(ctx, writeOp{kind: opPut, doc: doc})
}

func (w *sqliteWriter) DeleteDocument(ctx context.Context, fileID string) error {
	return w.submit(ctx, writeOp{kind: opDeleteDocument, id: fileID})
}

func (w *sqliteWriter) DeleteProjectDocuments(ctx context.Context, projectID string) error {
	return w.submit(ctx, writeOp{kind: opDeleteProject, id: projectID})
}

func (w *sqliteWriter) SaveProject(ctx context.Context, project *types.Project) error {
	return w.submit(ctx, writeOp{kind: opSaveProject, project: *project})
}

// finish stops accepting work and waits for the queue to drain
func (w *sqliteWriter) finish() bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false
	}
	w.closed = true
	close(w.ops)
	w.mu.Unlock()
	<-w.done
	return true
}

// Commit applies everything queued in one transaction
func (w *sqliteWriter) Commit() error {
	if !w.finish() {
		return ErrWriterClosed
	}
	defer func() { <-w.s.writerSlot }()

	if w.err != nil {
		_ = w.tx.Rollback()
		return fmt.Errorf("index write failed: %w", w.err)
	}
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	return nil
}

// Rollback discards everything queued
func (w *sqliteWriter) Rollback() error {
	if !w.finish() {
		return ErrWriterClosed
	}
	defer func() { <-w.s.writerSlot }()
	return w.tx.Rollback()
}

// putDocument replaces the document of a file together with its symbol and
// reference rows
func putDocument(ctx context.Context, q querier, doc *Document) error {
	f := &doc.File
	if _, err := q.ExecContext(ctx, "DELETE FROM documents WHERE file_id = ?", f.ID); err != nil {
		return fmt.Errorf("failed to replace document %s: %w", f.RelativePath, err)
	}

	indexed := f.LastIndexed
	if indexed.IsZero() {
		indexed = time.Now()
	}
	result, err := q.ExecContext(ctx, `
		INSERT INTO documents (file_id, project_id, path, relative_path, name, extension, language,
		                       file_type, size, line_count, encoding, last_modified, last_indexed,
		                       checksum, content, content_lines)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		f.ID, f.ProjectID, f.Path, f.RelativePath, doc.Name(), doc.Extension(), string(f.Language),
		string(f.FileType), f.Size, f.LineCount, f.Encoding, nullTime(f.LastModified), indexed,
		f.Checksum, doc.Content, NumberLines(doc.Content))
	if err != nil {
		return fmt.Errorf("failed to insert document %s: %w", f.RelativePath, err)
	}
	rowID, err := result.LastInsertId()
	if err != nil {
		return err
	}

	for i := range doc.Symbols {
		s := &doc.Symbols[i]
		_, err := q.ExecContext(ctx, `
			INSERT INTO doc_symbols (document_id, symbol_id, name, kind, line, col, end_line, end_col,
			                         signature, scope, namespace, tags)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rowID, s.ID, s.Name, string(s.Kind), s.Start.Line, s.Start.Column, s.End.Line, s.End.Column,
			s.Signature, s.Scope, s.Namespace, strings.Join(s.Tags, ","))
		if err != nil {
			return fmt.Errorf("failed to insert symbol %s: %w", s.Name, err)
		}
	}

	for i := range doc.References {
		r := &doc.References[i]
		loc := r.Location
		_, err := q.ExecContext(ctx, `
			INSERT INTO doc_references (document_id, reference_id, symbol_id, kind, line, col,
			                            end_line, end_col, context)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rowID, r.ID, r.SymbolID, string(r.Kind), loc.Start.Line, loc.Start.Column,
			loc.End.Line, loc.End.Column, r.Context)
		if err != nil {
			return fmt.Errorf("failed to insert reference %s: %w", r.ID, err)
		}
	}
	return nil
}
