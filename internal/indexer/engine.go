package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/codeindex/internal/parser"
	"github.com/dshills/codeindex/internal/storage"
	"github.com/dshills/codeindex/internal/xref"
	"github.com/dshills/codeindex/pkg/types"
)

var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrIndexingInProgress = errors.New("indexing already in progress for this project")
	ErrUnreadableRoot     = errors.New("project root is not a readable directory")
)

// fileNamespace derives file ids from project id and relative path, so a
// file keeps its id across runs and restarts
var fileNamespace = uuid.MustParse("b7e2f4a0-3c1d-4e8b-9a52-7d6c0f1e9b34")

func fileID(projectID, relPath string) string {
	return uuid.NewSHA1(fileNamespace, []byte(projectID+"\x00"+relPath)).String()
}

// Engine owns the in-memory view of every registered project and drives
// indexing runs against the full-text index
type Engine struct {
	config Config
	index  storage.Storage
	parser *parser.Parser
	logger *slog.Logger

	// mu makes applying a run's results atomic for readers; the stores
	// themselves are safe for concurrent use
	mu         sync.RWMutex
	projects   *store[string, *types.Project]
	files      *store[string, types.IndexedFile]
	symbols    *store[string, []types.Symbol]
	references *store[string, []types.Reference]
	usages     *store[string, []types.Usage] // Present only for files parsed by this process

	locks      *projectLocks
	sizeBytes  atomic.Int64
	lastUpdate atomic.Int64 // Unix nanoseconds of the last commit
	generation atomic.Uint64
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithParser replaces the parser built from the config
func WithParser(p *parser.Parser) Option {
	return func(e *Engine) {
		if p != nil {
			e.parser = p
		}
	}
}

// Open creates an engine over index and restores the projects, files,
// symbols and references it holds. Usages are not persisted, so the first
// run of each restored project reparses its files without rewriting them.
func Open(ctx context.Context, index storage.Storage, config Config, opts ...Option) (*Engine, error) {
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}

	e := &Engine{
		config:     config,
		index:      index,
		logger:     slog.Default(),
		projects:   newStore[string, *types.Project](),
		files:      newStore[string, types.IndexedFile](),
		symbols:    newStore[string, []types.Symbol](),
		references: newStore[string, []types.Reference](),
		usages:     newStore[string, []types.Usage](),
		locks:      newProjectLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.parser == nil {
		e.parser = parser.New(config.Parser, parser.WithLogger(e.logger))
	}

	if err := e.restore(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore index state: %w", err)
	}
	return e, nil
}

func (e *Engine) restore(ctx context.Context) error {
	projects, err := e.index.ListProjects(ctx)
	if err != nil {
		return err
	}
	for _, p := range projects {
		docs, err := e.index.ListDocuments(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("project %s: %w", p.Name, err)
		}
		for _, doc := range docs {
			e.files.Set(doc.File.ID, doc.File)
			e.symbols.Set(doc.File.ID, doc.Symbols)
			e.references.Set(doc.File.ID, doc.References)
		}
		e.projects.Set(p.ID, p)
		e.logger.Debug("restored project", "project", p.Name, "files", len(docs))
	}
	e.refreshIndexStats(ctx)
	return nil
}

// refreshIndexStats reloads the on-disk index size and last update
func (e *Engine) refreshIndexStats(ctx context.Context) {
	stats, err := e.index.GetStats(ctx)
	if err != nil {
		e.logger.Warn("failed to read index stats", "error", err)
		return
	}
	e.sizeBytes.Store(stats.SizeBytes)
	if !stats.LastUpdate.IsZero() {
		e.lastUpdate.Store(stats.LastUpdate.UnixNano())
	}
}

// Generation increases with every committed change to the index
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

// Index returns the full-text index the engine writes to
func (e *Engine) Index() storage.Storage {
	return e.index
}

// AddProject registers the source tree at path. Registering a root that is
// already known returns the existing project id. Only an unreadable root is
// an error.
func (e *Engine) AddProject(ctx context.Context, name, path, description string) (string, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnreadableRoot, path, err)
	}
	root = filepath.Clean(root)

	fi, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnreadableRoot, root, err)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrUnreadableRoot, root)
	}
	dir, err := os.Open(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnreadableRoot, root, err)
	}
	_, err = dir.Readdirnames(1)
	_ = dir.Close()
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: %s: %v", ErrUnreadableRoot, root, err)
	}

	if existing := e.projectByRoot(root); existing != nil {
		return existing.ID, nil
	}

	if name == "" {
		name = filepath.Base(root)
	}
	repo := detectRepository(root)
	project := &types.Project{
		ID:             uuid.NewString(),
		Name:           name,
		RootPath:       root,
		Description:    description,
		RepositoryKind: repo.Kind,
		Branch:         repo.Branch,
		RemoteURL:      repo.RemoteURL,
		CreatedAt:      time.Now(),
	}
	if err := e.index.CreateProject(ctx, project); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			if p, getErr := e.index.GetProjectByPath(ctx, root); getErr == nil {
				e.projects.Set(p.ID, p)
				return p.ID, nil
			}
		}
		return "", fmt.Errorf("failed to register project: %w", err)
	}
	e.projects.Set(project.ID, project)

	e.logger.Info("project registered",
		"project", project.Name,
		"id", project.ID,
		"root", root,
		"repository", project.RepositoryKind)
	return project.ID, nil
}

func (e *Engine) projectByRoot(root string) *types.Project {
	var found *types.Project
	e.projects.Range(func(_ string, p *types.Project) bool {
		if p.RootPath == root {
			found = p
			return false
		}
		return true
	})
	return found
}

// GetProject returns a copy of a registered project
func (e *Engine) GetProject(id string) (*types.Project, error) {
	p, ok := e.projects.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	cp := *p
	return &cp, nil
}

// GetProjects returns copies of all registered projects, oldest first
func (e *Engine) GetProjects() []*types.Project {
	values := e.projects.Values()
	out := make([]*types.Project, 0, len(values))
	for _, p := range values {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GetIndexStats aggregates the in-memory state across all projects
func (e *Engine) GetIndexStats() *types.IndexStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := &types.IndexStats{
		TotalProjects:  e.projects.Len(),
		IndexSizeBytes: e.sizeBytes.Load(),
		Languages:      make(map[types.Language]int),
		FileTypes:      make(map[types.FileType]int),
	}
	if ns := e.lastUpdate.Load(); ns != 0 {
		stats.LastUpdate = time.Unix(0, ns)
	}
	e.files.Range(func(id string, f types.IndexedFile) bool {
		stats.TotalFiles++
		stats.TotalLines += f.LineCount
		stats.Languages[f.Language]++
		stats.FileTypes[f.FileType]++
		return true
	})
	e.symbols.Range(func(_ string, s []types.Symbol) bool {
		stats.TotalSymbols += len(s)
		return true
	})
	e.references.Range(func(_ string, r []types.Reference) bool {
		stats.TotalReferences += len(r)
		return true
	})
	return stats
}

// ProjectFiles returns the files of a project sorted by relative path
func (e *Engine) ProjectFiles(projectID string) []types.IndexedFile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.projectFilesLocked(projectID)
}

func (e *Engine) projectFilesLocked(projectID string) []types.IndexedFile {
	var out []types.IndexedFile
	e.files.Range(func(_ string, f types.IndexedFile) bool {
		if f.ProjectID == projectID {
			out = append(out, f)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].RelativePath < out[j].RelativePath })
	return out
}

// BuildGraph runs the cross-reference builder over the project's files.
// Files restored from the index carry no usages until they are reindexed,
// so their graph holds only structural edges.
func (e *Engine) BuildGraph(projectID string) (*xref.SymbolGraph, error) {
	if _, ok := e.projects.Get(projectID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}

	e.mu.RLock()
	files := e.projectFilesLocked(projectID)
	dbs := make([]xref.SymbolDatabase, 0, len(files))
	for _, f := range files {
		db := xref.SymbolDatabase{FileID: f.ID, ProjectID: projectID}
		db.Symbols, _ = e.symbols.Get(f.ID)
		db.References, _ = e.references.Get(f.ID)
		db.Usages, _ = e.usages.Get(f.ID)
		dbs = append(dbs, db)
	}
	e.mu.RUnlock()

	return xref.Build(dbs), nil
}

// RemoveProject deletes a project and everything indexed for it
func (e *Engine) RemoveProject(ctx context.Context, projectID string) error {
	if !e.locks.acquire(projectID) {
		return ErrIndexingInProgress
	}
	defer e.locks.release(projectID)

	project, ok := e.projects.Get(projectID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}

	w, err := e.index.OpenWriter(ctx)
	if err != nil {
		return fmt.Errorf("failed to open index writer: %w", err)
	}
	if err := w.DeleteProjectDocuments(ctx, projectID); err != nil {
		_ = w.Rollback()
		return err
	}
	if err := w.Commit(); err != nil {
		return fmt.Errorf("failed to remove project documents: %w", err)
	}
	if err := e.index.DeleteProject(ctx, projectID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to remove project: %w", err)
	}

	e.mu.Lock()
	e.dropProjectFilesLocked(projectID, true)
	e.projects.Delete(projectID)
	e.mu.Unlock()
	e.generation.Add(1)
	e.lastUpdate.Store(time.Now().UnixNano())
	e.refreshIndexStats(ctx)

	e.logger.Info("project removed", "project", project.Name, "id", projectID)
	return nil
}

// dropProjectFilesLocked forgets every file of a project and optionally its
// cached parse results
func (e *Engine) dropProjectFilesLocked(projectID string, invalidate bool) {
	var ids []string
	e.files.DeleteFunc(func(id string, f types.IndexedFile) bool {
		if f.ProjectID != projectID {
			return false
		}
		ids = append(ids, id)
		return true
	})
	for _, id := range ids {
		e.symbols.Delete(id)
		e.references.Delete(id)
		e.usages.Delete(id)
		if invalidate {
			e.parser.Invalidate(id)
		}
	}
}
