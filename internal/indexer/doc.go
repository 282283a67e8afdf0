// Package indexer coordinates the end-to-end indexing pipeline for source
// trees in any language.
//
// An Engine owns the in-memory view of every registered project (files,
// symbols, references and usages held in concurrent stores) and drives
// indexing runs against the full-text index.
//
// # Basic Usage
//
//	db, _ := storage.NewSQLiteStorage("~/.codeindex/index.db")
//	engine, err := indexer.Open(ctx, db, indexer.DefaultConfig())
//
//	id, err := engine.AddProject(ctx, "shop", "/path/to/shop", "")
//	stats, err := engine.IndexProject(ctx, id)
//
//	fmt.Printf("Indexed %d files in %v\n", stats.FilesIndexed, stats.Duration)
//
// # Indexing Pipeline
//
//  1. Discovery: a single-threaded walk applies the ignore rules
//  2. Per file, in parallel: binary check, encoding detection, checksum,
//     multi-strategy parse
//  3. Each parsed file becomes one document queued to the single index
//     writer
//  4. Files that vanished are deleted, the project row is updated
//  5. One commit makes the whole run visible
//
// Results are staged per run and applied to the engine only after the
// commit succeeds. A failed or cancelled run leaves both the index and the
// in-memory state as they were.
//
// # Incremental Indexing
//
// A file whose SHA-256 content checksum matches the last run is neither
// reparsed nor rewritten:
//
//	stats1, _ := engine.IndexProject(ctx, id) // FilesIndexed: 247
//	stats2, _ := engine.IndexProject(ctx, id) // FilesUnchanged: 247
//
// ReindexProject clears the project's documents inside the run's transaction
// and parses everything again.
//
// # Concurrent Processing
//
// Files are processed by a bounded worker pool (Config.Workers, default
// NumCPU) built from an errgroup and a semaphore. Per-file errors are
// recorded in RunStats.Errors and never abort a run; writer failures and
// cancellation do.
//
// Runs of the same project are rejected with ErrIndexingInProgress while
// one is active. Runs of different projects may overlap; their writes are
// serialized by the index writer.
package indexer
