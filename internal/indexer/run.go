package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/codeindex/internal/classifier"
	"github.com/dshills/codeindex/internal/storage"
	"github.com/dshills/codeindex/pkg/types"
)

// candidate is a file the walk accepted for processing
type candidate struct {
	path  string
	rel   string // Slash separated, relative to the project root
	class classifier.Classification
}

// fileResult is the staged state of one file. Nothing reaches the engine
// stores until the run commits.
type fileResult struct {
	file       types.IndexedFile
	symbols    []types.Symbol
	references []types.Reference
	usages     []types.Usage
	parsed     bool
}

// run is the state of one indexing run of one project
type run struct {
	e       *Engine
	project types.Project
	reindex bool
	ignore  classifier.IgnoreConfig
	w       storage.Writer
	started time.Time

	prior  map[string]*fileResult // Engine state at run start, by file id
	staged *store[string, *fileResult]

	indexed   atomic.Int32
	unchanged atomic.Int32
	skipped   atomic.Int32
	failed    atomic.Int32

	mu     sync.Mutex // Protects errors
	errors []string
}

// IndexProject indexes a registered project. Files whose content checksum
// is unchanged since the last run are neither reparsed nor rewritten. The
// whole run is committed at once; on failure the index and the in-memory
// state are left as they were.
func (e *Engine) IndexProject(ctx context.Context, projectID string) (*types.RunStats, error) {
	return e.runProject(ctx, projectID, false)
}

// ReindexProject clears everything indexed for a project and indexes it from
// scratch. The clearing is part of the run's commit, so a failed reindex
// keeps the previous state.
func (e *Engine) ReindexProject(ctx context.Context, projectID string) (*types.RunStats, error) {
	return e.runProject(ctx, projectID, true)
}

func (e *Engine) runProject(ctx context.Context, projectID string, reindex bool) (*types.RunStats, error) {
	if !e.locks.acquire(projectID) {
		return nil, ErrIndexingInProgress
	}
	defer e.locks.release(projectID)

	p, ok := e.projects.Get(projectID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}

	r := &run{
		e:       e,
		project: *p,
		reindex: reindex,
		started: time.Now(),
		staged:  newStore[string, *fileResult](),
	}
	return r.execute(ctx)
}

func (r *run) execute(ctx context.Context) (*types.RunStats, error) {
	e := r.e
	root := r.project.RootPath
	logger := e.logger.With("project", r.project.Name, "id", r.project.ID)

	ignore, err := classifier.LoadProjectConfig(root, e.config.Ignore)
	if err != nil {
		return nil, err
	}
	r.ignore = ignore
	cls, err := classifier.NewForRoot(root, ignore)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore rules: %w", err)
	}

	candidates, err := r.discover(ctx, cls)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	r.snapshotPrior()

	logger.Info("indexing started", "files", len(candidates), "reindex", r.reindex)

	w, err := e.index.OpenWriter(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open index writer: %w", err)
	}
	r.w = w
	committed := false
	defer func() {
		if !committed {
			_ = w.Rollback()
		}
	}()

	if r.reindex {
		if err := w.DeleteProjectDocuments(ctx, r.project.ID); err != nil {
			return nil, err
		}
	}

	if err := r.processAll(ctx, candidates); err != nil {
		return nil, err
	}

	removed, err := r.removeStale(ctx)
	if err != nil {
		return nil, err
	}

	repo := detectRepository(root)
	updated := r.project
	updated.Indexed = true
	updated.LastIndexed = time.Now()
	updated.RepositoryKind = repo.Kind
	updated.Branch = repo.Branch
	updated.RemoteURL = repo.RemoteURL
	if err := w.SaveProject(ctx, &updated); err != nil {
		return nil, err
	}

	// A cancelled run never commits
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	committed = true
	if err := w.Commit(); err != nil {
		logger.Error("index commit failed", "error", err)
		return nil, fmt.Errorf("failed to commit index: %w", err)
	}

	r.apply(&updated)
	e.refreshIndexStats(ctx)

	stats := r.stats(removed)
	logger.Info("indexing completed",
		"files", stats.Files,
		"indexed", stats.FilesIndexed,
		"unchanged", stats.FilesUnchanged,
		"skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed,
		"removed", stats.FilesRemoved,
		"symbols", stats.Symbols,
		"duration", stats.Duration)
	return stats, nil
}

// discover walks the project tree on the calling goroutine
func (r *run) discover(ctx context.Context, cls *classifier.Classifier) ([]candidate, error) {
	root := r.project.RootPath
	var out []candidate

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			r.e.logger.Warn("skipping unreadable path", "path", path, "error", err)
			r.skipped.Add(1)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if cls.SkipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		c := cls.Classify(rel)
		if !c.Indexable {
			r.skipped.Add(1)
			return nil
		}
		out = append(out, candidate{path: path, rel: rel, class: c})
		return nil
	})
	return out, err
}

// snapshotPrior copies the engine state of the project's files
func (r *run) snapshotPrior() {
	e := r.e
	e.mu.RLock()
	defer e.mu.RUnlock()

	files := e.projectFilesLocked(r.project.ID)
	r.prior = make(map[string]*fileResult, len(files))
	for _, f := range files {
		res := &fileResult{file: f}
		res.symbols, _ = e.symbols.Get(f.ID)
		res.references, _ = e.references.Get(f.ID)
		res.usages, res.parsed = e.usages.Get(f.ID)
		r.prior[f.ID] = res
	}
}

// processAll fans the candidates out over the worker pool. Per-file failures
// are recorded; only writer and cancellation errors stop the run.
func (r *run) processAll(ctx context.Context, candidates []candidate) error {
	semaphore := make(chan struct{}, r.e.config.Workers)
	g, gctx := errgroup.WithContext(ctx)

dispatch:
	for _, c := range candidates {
		select {
		case <-gctx.Done():
			break dispatch
		case semaphore <- struct{}{}:
		}

		g.Go(func() error {
			defer func() { <-semaphore }()
			return r.processFile(gctx, c)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// processFile takes one file from bytes on disk to a staged result and a
// queued index document
func (r *run) processFile(ctx context.Context, c candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := r.e
	id := fileID(r.project.ID, c.rel)

	info, err := os.Stat(c.path)
	if err != nil {
		r.fail(id, c, err)
		return nil
	}
	if r.ignore.MaxFileSize > 0 && info.Size() > r.ignore.MaxFileSize {
		e.logger.Debug("skipping large file", "path", c.rel, "size", info.Size())
		r.skipped.Add(1)
		return nil
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		r.fail(id, c, err)
		return nil
	}
	if classifier.IsBinaryContent(raw) {
		e.logger.Debug("skipping binary file", "path", c.rel)
		r.skipped.Add(1)
		return nil
	}
	text, encoding, err := classifier.Decode(raw)
	if err != nil {
		r.fail(id, c, err)
		return nil
	}
	sum := classifier.Checksum(raw)

	prior := r.prior[id]
	sameContent := !r.reindex && prior != nil && prior.file.Checksum == sum
	if sameContent && prior.parsed {
		r.staged.Set(id, prior)
		r.unchanged.Add(1)
		return nil
	}

	parsed, err := e.parser.Parse(ctx, id, c.rel, text, c.class.Language)
	if err != nil {
		r.fail(id, c, err)
		return nil
	}

	res := &fileResult{
		file: types.IndexedFile{
			ID:           id,
			ProjectID:    r.project.ID,
			Path:         c.path,
			RelativePath: c.rel,
			FileType:     c.class.FileType,
			Language:     c.class.Language,
			Size:         info.Size(),
			LineCount:    classifier.CountLines(text),
			LastModified: info.ModTime(),
			LastIndexed:  r.started,
			Checksum:     sum,
			Encoding:     encoding,
		},
		symbols:    parsed.Symbols,
		references: parsed.References,
		usages:     parsed.Usages,
		parsed:     true,
	}

	// Restored from the index with the same content: the stored document is
	// current, only the usages were missing
	if sameContent {
		res.file = prior.file
		r.staged.Set(id, res)
		r.unchanged.Add(1)
		return nil
	}

	doc := &storage.Document{
		File:       res.file,
		Content:    text,
		Symbols:    res.symbols,
		References: res.references,
	}
	if err := r.w.Put(ctx, doc); err != nil {
		return fmt.Errorf("failed to queue document %s: %w", c.rel, err)
	}
	r.staged.Set(id, res)
	r.indexed.Add(1)
	return nil
}

// fail records a per-file failure. An incremental run keeps the previous
// state of the file.
func (r *run) fail(id string, c candidate, err error) {
	r.e.logger.Warn("failed to index file", "path", c.rel, "error", err)
	r.failed.Add(1)

	r.mu.Lock()
	r.errors = append(r.errors, fmt.Sprintf("%s: %v", c.rel, err))
	r.mu.Unlock()

	if prior, ok := r.prior[id]; ok && !r.reindex {
		r.staged.Set(id, prior)
	}
}

// removeStale deletes the documents of files that no longer exist or are no
// longer indexable
func (r *run) removeStale(ctx context.Context) (int, error) {
	removed := 0
	ids := make([]string, 0, len(r.prior))
	for id := range r.prior {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if _, ok := r.staged.Get(id); ok {
			continue
		}
		removed++
		if r.reindex {
			continue // Already cleared with the project's documents
		}
		if err := r.w.DeleteDocument(ctx, id); err != nil {
			return 0, err
		}
	}
	return removed, nil
}

// apply replaces the engine state of the project with the staged results
func (r *run) apply(project *types.Project) {
	e := r.e
	e.mu.Lock()
	defer e.mu.Unlock()

	for id := range r.prior {
		if _, ok := r.staged.Get(id); !ok {
			e.parser.Invalidate(id)
		}
	}
	e.dropProjectFilesLocked(r.project.ID, false)

	r.staged.Range(func(id string, res *fileResult) bool {
		e.files.Set(id, res.file)
		e.symbols.Set(id, res.symbols)
		e.references.Set(id, res.references)
		if res.parsed {
			e.usages.Set(id, res.usages)
		}
		return true
	})
	e.projects.Set(project.ID, project)
	e.lastUpdate.Store(project.LastIndexed.UnixNano())
	e.generation.Add(1)
}

func (r *run) stats(removed int) *types.RunStats {
	stats := types.NewRunStats(r.project.ID)
	stats.FilesIndexed = int(r.indexed.Load())
	stats.FilesUnchanged = int(r.unchanged.Load())
	stats.FilesSkipped = int(r.skipped.Load())
	stats.FilesFailed = int(r.failed.Load())
	stats.FilesRemoved = removed
	stats.Errors = r.errors
	stats.Duration = time.Since(r.started)

	r.staged.Range(func(_ string, res *fileResult) bool {
		stats.Files++
		stats.Lines += res.file.LineCount
		stats.Symbols += len(res.symbols)
		stats.References += len(res.references)
		stats.Languages[res.file.Language]++
		stats.FileTypes[res.file.FileType]++
		return true
	})
	return stats
}
