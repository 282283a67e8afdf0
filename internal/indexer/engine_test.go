package indexer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codeindex/internal/parser"
	"github.com/dshills/codeindex/internal/storage"
	"github.com/dshills/codeindex/internal/xref"
	"github.com/dshills/codeindex/pkg/types"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func openTestEngine(t *testing.T, index storage.Storage) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 4
	p := parser.New(cfg.Parser, parser.WithCtagsBinary(""), parser.WithLogger(discardLogger))
	e, err := Open(context.Background(), index, cfg, WithParser(p), WithLogger(discardLogger))
	require.NoError(t, err)
	return e
}

func newTestEngine(t *testing.T) (*Engine, *storage.SQLiteStorage) {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return openTestEngine(t, db), db
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

var sampleProject = map[string]string{
	"main.go": `package main

func main() {
	total := helper(2)
	println(total)
}
`,
	"helper.go": `package main

// helper doubles n
func helper(n int) int {
	if n < 0 {
		return 0
	}
	return n * 2
}

func quadruple(n int) int {
	return helper(helper(n))
}
`,
	"lib/math.rs": "fn add(a: i32, b: i32) -> i32 { a + b }\n",
	"scripts/tool.py": `def run(args):
    return len(args)


class Tool:
    def start(self):
        return run([])
`,
}

func addAndIndex(t *testing.T, e *Engine, root string) (string, *types.RunStats) {
	t.Helper()
	ctx := context.Background()
	id, err := e.AddProject(ctx, "sample", root, "test project")
	require.NoError(t, err)
	stats, err := e.IndexProject(ctx, id)
	require.NoError(t, err)
	return id, stats
}

func TestIndexProject_RustSingleFunction(t *testing.T) {
	e, db := newTestEngine(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{"lib.rs": "fn add(a: i32, b: i32) -> i32 { a + b }"})

	id, stats := addAndIndex(t, e, root)

	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.Symbols)
	assert.Equal(t, 1, stats.Languages[types.LangRust])

	hits, err := db.SearchSymbols(context.Background(), storage.SymbolQuery{Text: "add", ProjectID: id})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "add", hits[0].Symbol.Name)
	assert.Equal(t, types.KindFunction, hits[0].Symbol.Kind)
	assert.Equal(t, 1, hits[0].Symbol.Start.Line)
	assert.Equal(t, "lib.rs", hits[0].Path)

	project, err := e.GetProject(id)
	require.NoError(t, err)
	assert.True(t, project.Indexed)
	assert.False(t, project.LastIndexed.IsZero())

	stored, err := db.GetProject(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, stored.Indexed)
}

func TestIndexProject_Idempotent(t *testing.T) {
	e, db := newTestEngine(t)
	root := t.TempDir()
	writeTree(t, root, sampleProject)

	id, first := addAndIndex(t, e, root)
	require.Equal(t, 4, first.Files)
	assert.Equal(t, 4, first.FilesIndexed)
	assert.Zero(t, first.FilesFailed)
	assert.Positive(t, first.Symbols)
	assert.Positive(t, first.References)

	second, err := e.IndexProject(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, first.Files, second.Files)
	assert.Equal(t, first.Lines, second.Lines)
	assert.Equal(t, first.Symbols, second.Symbols)
	assert.Equal(t, first.References, second.References)
	assert.Equal(t, first.Files, second.FilesUnchanged, "every file is a checksum hit")
	assert.Zero(t, second.FilesIndexed)
	assert.Zero(t, second.FilesRemoved)

	dbStats, err := db.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Files, dbStats.Documents)
	assert.Equal(t, first.Symbols, dbStats.Symbols)
}

func TestIndexProject_IncrementalChanges(t *testing.T) {
	e, db := newTestEngine(t)
	root := t.TempDir()
	writeTree(t, root, sampleProject)
	id, _ := addAndIndex(t, e, root)

	writeTree(t, root, map[string]string{
		"helper.go": "package main\n\nconst multiplier = 3\n\nfunc helper(n int) int {\n\treturn n * multiplier\n}\n",
		"extra.go":  "package main\n\nfunc tripled() int {\n\treturn helper(1)\n}\n",
	})
	require.NoError(t, os.Remove(filepath.Join(root, "scripts", "tool.py")))

	stats, err := e.IndexProject(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Files)
	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Equal(t, 2, stats.FilesUnchanged)
	assert.Equal(t, 1, stats.FilesRemoved)
	assert.Zero(t, stats.Languages[types.LangPython])

	ctx := context.Background()
	hits, err := db.SearchSymbols(ctx, storage.SymbolQuery{Text: "Tool", ProjectID: id})
	require.NoError(t, err)
	assert.Empty(t, hits, "symbols of a removed file leave the index")

	hits, err = db.SearchSymbols(ctx, storage.SymbolQuery{Text: "tripled", ProjectID: id})
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	docs, err := db.SearchDocuments(ctx, storage.DocumentQuery{Text: "multiplier", ProjectID: id})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "helper.go", docs[0].RelativePath)

	assert.Len(t, e.ProjectFiles(id), 4)
}

func TestIndexProject_SkipsIgnoredAndBinaryFiles(t *testing.T) {
	e, _ := newTestEngine(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app.js":                  "function start() { return 1 }\n",
		"node_modules/dep/x.js":   "function dep() {}\n",
		".secret/config.js":       "function hidden() {}\n",
		"logo.png":                "\x89PNG\r\n",
		"data.txt":                "plain\x00binary\x00content",
		"generated/out.js":        "function generated() {}\n",
		".gitignore":              "generated/\n",
		"docs/readme.md":          "# Readme\n",
		"vendor/lib/vendored.go":  "package lib\n",
		"src/nested/deep/util.py": "def util():\n    pass\n",
	})

	_, stats := addAndIndex(t, e, root)

	assert.Equal(t, 3, stats.Files, "app.js, docs/readme.md and util.py")
	assert.Equal(t, 1, stats.FileTypes[types.FileTypeDocumentation])
	assert.Positive(t, stats.FilesSkipped)
	assert.Zero(t, stats.FilesFailed)
}

func TestIndexProject_ProjectConfigOverrides(t *testing.T) {
	e, _ := newTestEngine(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"keep.go":          "package main\n\nfunc keep() {}\n",
		"fixtures/drop.go": "package fixtures\n\nfunc drop() {}\n",
		".codeindex.yaml":  "ignore_dirs:\n  - fixtures\n",
	})

	_, stats := addAndIndex(t, e, root)
	assert.Equal(t, 1, stats.Files)
}

func TestReindexProject(t *testing.T) {
	e, db := newTestEngine(t)
	root := t.TempDir()
	writeTree(t, root, sampleProject)
	id, first := addAndIndex(t, e, root)

	stats, err := e.ReindexProject(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, first.Files, stats.Files)
	assert.Equal(t, first.Files, stats.FilesIndexed, "reindex never reuses prior results")
	assert.Zero(t, stats.FilesUnchanged)
	assert.Equal(t, first.Symbols, stats.Symbols)
	assert.Equal(t, first.References, stats.References)

	dbStats, err := db.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Files, dbStats.Documents)
	assert.Equal(t, first.Symbols, dbStats.Symbols)
}

func TestReindexProject_DropsVanishedFiles(t *testing.T) {
	e, db := newTestEngine(t)
	root := t.TempDir()
	writeTree(t, root, sampleProject)
	id, _ := addAndIndex(t, e, root)

	require.NoError(t, os.Remove(filepath.Join(root, "lib", "math.rs")))
	stats, err := e.ReindexProject(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Files)
	assert.Equal(t, 1, stats.FilesRemoved)

	hits, err := db.SearchSymbols(context.Background(), storage.SymbolQuery{Text: "add", ProjectID: id})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRemoveProject_RoundTrip(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, sampleProject)
	id, original := addAndIndex(t, e, root)

	require.NoError(t, e.RemoveProject(ctx, id))
	assert.Zero(t, e.locks.len(), "no lock outlives the removed project")

	_, err := e.GetProject(id)
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.Empty(t, e.GetProjects())
	stats := e.GetIndexStats()
	assert.Zero(t, stats.TotalFiles)
	assert.Zero(t, stats.TotalSymbols)
	assert.Zero(t, stats.TotalReferences)

	dbStats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, dbStats.Documents)
	assert.Zero(t, dbStats.Projects)

	newID, again := addAndIndex(t, e, root)
	assert.NotEqual(t, id, newID)
	assert.Equal(t, original.Files, again.Files)
	assert.Equal(t, original.Symbols, again.Symbols)
	assert.Equal(t, original.References, again.References)
}

func TestRemoveProject_Unknown(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.RemoveProject(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.Zero(t, e.locks.len())
}

func TestIndexProject_UnknownProject(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.IndexProject(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.Zero(t, e.locks.len())
}

func TestIndexProject_RejectsOverlappingRuns(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, sampleProject)
	id, err := e.AddProject(ctx, "sample", root, "")
	require.NoError(t, err)

	require.True(t, e.locks.acquire(id))

	_, err = e.IndexProject(ctx, id)
	assert.ErrorIs(t, err, ErrIndexingInProgress)
	_, err = e.ReindexProject(ctx, id)
	assert.ErrorIs(t, err, ErrIndexingInProgress)
	assert.ErrorIs(t, e.RemoveProject(ctx, id), ErrIndexingInProgress)

	e.locks.release(id)
	_, err = e.IndexProject(ctx, id)
	assert.NoError(t, err)
}

func TestIndexProject_CancelledRunCommitsNothing(t *testing.T) {
	e, db := newTestEngine(t)
	root := t.TempDir()
	writeTree(t, root, sampleProject)
	id, err := e.AddProject(context.Background(), "sample", root, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.IndexProject(ctx, id)
	require.ErrorIs(t, err, context.Canceled)

	project, err := e.GetProject(id)
	require.NoError(t, err)
	assert.False(t, project.Indexed)

	dbStats, err := db.GetStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, dbStats.Documents)
}

// failingStorage fails every commit while failCommit is set
type failingStorage struct {
	storage.Storage
	failCommit atomic.Bool
}

func (f *failingStorage) OpenWriter(ctx context.Context) (storage.Writer, error) {
	w, err := f.Storage.OpenWriter(ctx)
	if err != nil {
		return nil, err
	}
	return &failingWriter{Writer: w, fail: f.failCommit.Load()}, nil
}

type failingWriter struct {
	storage.Writer
	fail bool
}

var errDiskFull = errors.New("disk full")

func (w *failingWriter) Commit() error {
	if w.fail {
		_ = w.Writer.Rollback()
		return errDiskFull
	}
	return w.Writer.Commit()
}

func TestIndexProject_CommitFailureLeavesStateUntouched(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	index := &failingStorage{Storage: db}
	e := openTestEngine(t, index)
	ctx := context.Background()

	t.Run("first run", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, sampleProject)
		id, err := e.AddProject(ctx, "never-indexed", root, "")
		require.NoError(t, err)

		index.failCommit.Store(true)
		_, err = e.IndexProject(ctx, id)
		index.failCommit.Store(false)
		require.ErrorIs(t, err, errDiskFull)

		project, err := e.GetProject(id)
		require.NoError(t, err)
		assert.False(t, project.Indexed)
		assert.True(t, project.LastIndexed.IsZero())
		assert.Empty(t, e.ProjectFiles(id))

		stored, err := db.GetProject(ctx, id)
		require.NoError(t, err)
		assert.False(t, stored.Indexed)
	})

	t.Run("rerun", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, sampleProject)
		id, before := addAndIndex(t, e, root)
		project, err := e.GetProject(id)
		require.NoError(t, err)
		statsBefore := e.GetIndexStats()

		writeTree(t, root, map[string]string{"helper.go": "package main\n\nfunc renamed() int { return 1 }\n"})
		index.failCommit.Store(true)
		_, err = e.ReindexProject(ctx, id)
		index.failCommit.Store(false)
		require.ErrorIs(t, err, errDiskFull)

		after, err := e.GetProject(id)
		require.NoError(t, err)
		assert.Equal(t, project.LastIndexed, after.LastIndexed)
		assert.Equal(t, statsBefore.TotalSymbols, e.GetIndexStats().TotalSymbols)
		assert.Len(t, e.ProjectFiles(id), before.Files)

		hits, err := db.SearchSymbols(ctx, storage.SymbolQuery{Text: "helper", ProjectID: id})
		require.NoError(t, err)
		assert.NotEmpty(t, hits, "the failed run must not remove committed documents")
		hits, err = db.SearchSymbols(ctx, storage.SymbolQuery{Text: "renamed", ProjectID: id})
		require.NoError(t, err)
		assert.Empty(t, hits)

		// The next successful run picks the change up
		stats, err := e.IndexProject(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.FilesIndexed)
	})
}

func TestOpen_RestoresState(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	root := t.TempDir()
	writeTree(t, root, sampleProject)

	db, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	e := openTestEngine(t, db)
	id, first := addAndIndex(t, e, root)
	before := e.GetIndexStats()
	require.NoError(t, db.Close())

	db, err = storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	restored := openTestEngine(t, db)

	projects := restored.GetProjects()
	require.Len(t, projects, 1)
	assert.Equal(t, id, projects[0].ID)
	assert.True(t, projects[0].Indexed)

	stats := restored.GetIndexStats()
	assert.Equal(t, before.TotalFiles, stats.TotalFiles)
	assert.Equal(t, before.TotalLines, stats.TotalLines)
	assert.Equal(t, before.TotalSymbols, stats.TotalSymbols)
	assert.Equal(t, before.TotalReferences, stats.TotalReferences)
	assert.Positive(t, stats.IndexSizeBytes)

	// Same content: usages are recovered without rewriting documents
	again, err := restored.IndexProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first.Files, again.FilesUnchanged)
	assert.Zero(t, again.FilesIndexed)
	assert.Equal(t, first.Symbols, again.Symbols)

	// Re-adding the same root returns the restored project
	sameID, err := restored.AddProject(ctx, "other name", root, "")
	require.NoError(t, err)
	assert.Equal(t, id, sameID)
}

func TestAddProject(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	t.Run("missing root", func(t *testing.T) {
		_, err := e.AddProject(ctx, "x", filepath.Join(t.TempDir(), "nope"), "")
		assert.ErrorIs(t, err, ErrUnreadableRoot)
	})

	t.Run("file root", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		_, err := e.AddProject(ctx, "x", path, "")
		assert.ErrorIs(t, err, ErrUnreadableRoot)
	})

	t.Run("defaults and dedupe", func(t *testing.T) {
		root := t.TempDir()
		id, err := e.AddProject(ctx, "", root, "desc")
		require.NoError(t, err)

		p, err := e.GetProject(id)
		require.NoError(t, err)
		assert.Equal(t, filepath.Base(root), p.Name)
		assert.Equal(t, "desc", p.Description)
		assert.Equal(t, types.RepoFileSystem, p.RepositoryKind)
		assert.False(t, p.Indexed)

		again, err := e.AddProject(ctx, "renamed", root+string(filepath.Separator), "")
		require.NoError(t, err)
		assert.Equal(t, id, again)
	})
}

func TestGetIndexStats(t *testing.T) {
	e, _ := newTestEngine(t)
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeTree(t, rootA, sampleProject)
	writeTree(t, rootB, map[string]string{"lib.rs": "fn add(a: i32, b: i32) -> i32 { a + b }\n"})

	_, a := addAndIndex(t, e, rootA)
	_, b := addAndIndex(t, e, rootB)

	stats := e.GetIndexStats()
	assert.Equal(t, 2, stats.TotalProjects)
	assert.Equal(t, a.Files+b.Files, stats.TotalFiles)
	assert.Equal(t, a.Lines+b.Lines, stats.TotalLines)
	assert.Equal(t, a.Symbols+b.Symbols, stats.TotalSymbols)
	assert.Equal(t, a.References+b.References, stats.TotalReferences)
	assert.Equal(t, 2, stats.Languages[types.LangRust])
	assert.Equal(t, 2, stats.Languages[types.LangGo])
	assert.False(t, stats.LastUpdate.IsZero())
	assert.Positive(t, stats.IndexSizeBytes)
}

func TestBuildGraph_CrossFileCall(t *testing.T) {
	e, _ := newTestEngine(t)
	root := t.TempDir()
	writeTree(t, root, sampleProject)
	id, _ := addAndIndex(t, e, root)

	g, err := e.BuildGraph(id)
	require.NoError(t, err)

	var mainID, helperID string
	for nodeID, n := range g.Nodes {
		switch n.Name {
		case "main":
			if n.Kind == types.KindFunction {
				mainID = nodeID
			}
		case "helper":
			helperID = nodeID
		}
	}
	require.NotEmpty(t, mainID)
	require.NotEmpty(t, helperID)

	var found *xref.SymbolEdge
	for _, edge := range g.Dependencies(mainID) {
		if edge.To == helperID && edge.Kind == xref.RelCalls {
			found = edge
		}
	}
	require.NotNil(t, found, "main calls helper across files")

	helper, _ := g.Node(helperID)
	assert.GreaterOrEqual(t, helper.Metadata.FanIn, 1)
	assert.Equal(t, 2, helper.Metadata.Complexity, "one conditional")
	assert.Zero(t, g.DroppedEdges)

	_, err = e.BuildGraph("missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}
