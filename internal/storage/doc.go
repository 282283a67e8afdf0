// Package storage provides the SQLite full-text index of indexed projects.
//
// The index holds:
//   - Project rows (identity, root path, repository metadata, indexed state)
//   - One document per indexed file with its full and line-numbered content
//   - The symbols and references found in each document
//   - FTS5 indexes over documents and symbols
//
// # Database Schema
//
// Tables:
//   - projects: registered source trees
//   - documents: file metadata, content and content_lines ("<line>:<text>")
//   - doc_symbols: symbols repeated per document
//   - doc_references: references repeated per document
//   - documents_fts: FTS5 over path, name, content and content_lines
//   - symbols_fts: FTS5 over symbol name, signature and scope
//
// Triggers keep both FTS tables in sync with their content tables.
// Deleting a project cascades to its documents, and deleting a document
// cascades to its symbol and reference rows.
//
// # Single Writer
//
// Documents are only mutated through a Writer:
//
//	w, err := db.OpenWriter(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, doc := range docs {
//	    if err := w.Put(ctx, doc); err != nil {
//	        _ = w.Rollback()
//	        return err
//	    }
//	}
//	if err := w.Commit(); err != nil {
//	    return err
//	}
//
// At most one Writer is open at a time; OpenWriter blocks until the previous
// one commits or rolls back. Submissions from many goroutines are queued to
// one goroutine that owns the transaction, so readers never see a partial
// run. With an in-memory database readers wait for the writer to finish.
//
// # Full-Text Search
//
// SearchDocuments and SearchSymbols rank with BM25. Query text is split into
// quoted terms, so FTS5 operators in user input are matched literally; a
// trailing '*' keeps prefix matching.
//
// # Build Tags
//
// CGO Build (cgo_sqlite tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler and the fts5 tag
//
//     CGO_ENABLED=1 go build -tags "cgo_sqlite,fts5"
//
// Pure Go Build (default, or purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
package storage
