package searcher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codeindex/internal/storage"
	"github.com/dshills/codeindex/pkg/types"
)

const authSource = `package auth

// Login checks the password of a user
func Login(user, password string) error {
	if !valid(password) {
		return ErrBadPassword
	}
	return nil
}
`

const billingSource = `class Invoice:
    def total(self):
        return sum(self.lines)

    def due(self):
        return self.total() * 1.2
`

func setupIndex(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, db.CreateProject(ctx, &types.Project{ID: "p1", Name: "shop", RootPath: "/src/shop"}))

	docs := []*storage.Document{
		{
			File: types.IndexedFile{
				ID: "f-auth", ProjectID: "p1", Path: "/src/shop/auth/login.go", RelativePath: "auth/login.go",
				Language: types.LangGo, FileType: types.FileTypeSource, LineCount: 9,
			},
			Content: authSource,
			Symbols: []types.Symbol{{
				ID: "s-login", FileID: "f-auth", Name: "Login", Kind: types.KindFunction,
				Start: types.Position{Line: 4, Column: 1}, End: types.Position{Line: 9, Column: 1},
				Signature: "func Login(user, password string) error", Namespace: "auth",
				Tags: []string{"exported"},
			}},
		},
		{
			File: types.IndexedFile{
				ID: "f-billing", ProjectID: "p1", Path: "/src/shop/billing.py", RelativePath: "billing.py",
				Language: types.LangPython, FileType: types.FileTypeSource, LineCount: 6,
			},
			Content: billingSource,
			Symbols: []types.Symbol{
				{ID: "s-invoice", FileID: "f-billing", Name: "Invoice", Kind: types.KindClass,
					Start: types.Position{Line: 1, Column: 1}, End: types.Position{Line: 3, Column: 30}},
				{ID: "s-total", FileID: "f-billing", Name: "total", Kind: types.KindMethod, Scope: "Invoice",
					Start: types.Position{Line: 2, Column: 5}, End: types.Position{Line: 3, Column: 30}},
			},
			References: []types.Reference{{
				ID: "r-total", SymbolID: "s-total", FileID: "f-billing", Kind: types.RefUsage,
				Location: types.Location{Start: types.Position{Line: 6, Column: 21}, End: types.Position{Line: 6, Column: 26}},
				Context:  "return self.total() * 1.2",
			}},
		},
	}

	w, err := db.OpenWriter(ctx)
	require.NoError(t, err)
	for _, d := range docs {
		require.NoError(t, w.Put(ctx, d))
	}
	require.NoError(t, w.Commit())
	return db
}

func TestSearch_Text(t *testing.T) {
	s := NewSearcher(setupIndex(t))

	resp, err := s.Search(context.Background(), SearchRequest{Query: "password", ContextLines: 1})
	require.NoError(t, err)

	assert.Equal(t, SearchModeText, resp.SearchMode)
	require.Len(t, resp.Hits, 1)
	hit := resp.Hits[0]
	assert.Equal(t, 1, hit.Rank)
	assert.Equal(t, "f-auth", hit.FileID)
	assert.Equal(t, "auth/login.go", hit.Path)
	assert.Equal(t, types.LangGo, hit.Language)
	assert.Equal(t, 3, hit.Line)
	assert.Contains(t, hit.Snippet, ">3: // Login checks the **password** of a user")
	assert.NoError(t, hit.Validate())
	assert.False(t, resp.CacheHit)
}

// brokenIndex returns documents without a file id
type brokenIndex struct {
	storage.Storage
}

func (brokenIndex) SearchDocuments(context.Context, storage.DocumentQuery) ([]storage.DocumentHit, error) {
	return []storage.DocumentHit{{RelativePath: "ghost.go", Content: "ghost"}}, nil
}

func TestSearch_RejectsInvalidHits(t *testing.T) {
	s := NewSearcher(brokenIndex{})
	_, err := s.Search(context.Background(), SearchRequest{Query: "ghost"})
	assert.ErrorIs(t, err, types.ErrMissingFileInfo)
	assert.ErrorContains(t, err, "ghost.go")
}

func TestSearch_TextFilters(t *testing.T) {
	s := NewSearcher(setupIndex(t))
	ctx := context.Background()

	tests := []struct {
		name string
		req  SearchRequest
		want []string
	}{
		{"language", SearchRequest{Query: "total", Language: types.LangPython}, []string{"billing.py"}},
		{"language excludes", SearchRequest{Query: "total", Language: types.LangGo}, []string{}},
		{"path glob", SearchRequest{Query: "Login", PathGlob: "auth/*"}, []string{"auth/login.go"}},
		{"other project", SearchRequest{Query: "Login", ProjectID: "p2"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.Search(ctx, tt.req)
			require.NoError(t, err)
			paths := make([]string, 0, len(resp.Hits))
			for _, h := range resp.Hits {
				paths = append(paths, h.Path)
			}
			assert.Equal(t, tt.want, paths)
		})
	}
}

func TestSearch_Symbols(t *testing.T) {
	s := NewSearcher(setupIndex(t))
	ctx := context.Background()

	resp, err := s.Search(ctx, SearchRequest{Query: "Login", Mode: SearchModeSymbol})
	require.NoError(t, err)
	require.Len(t, resp.Symbols, 1)
	assert.Empty(t, resp.Hits)
	assert.Equal(t, "Login", resp.Symbols[0].Symbol.Name)
	assert.Equal(t, "auth/login.go", resp.Symbols[0].Path)
	assert.Equal(t, []string{"exported"}, resp.Symbols[0].Symbol.Tags)

	resp, err = s.Search(ctx, SearchRequest{Mode: SearchModeSymbol, Kind: types.KindMethod})
	require.NoError(t, err)
	require.Len(t, resp.Symbols, 1)
	assert.Equal(t, "total", resp.Symbols[0].Symbol.Name)
	assert.Equal(t, "Invoice", resp.Symbols[0].Symbol.Scope)
}

func TestSearch_References(t *testing.T) {
	s := NewSearcher(setupIndex(t))
	ctx := context.Background()

	resp, err := s.Search(ctx, SearchRequest{Query: "total", Mode: SearchModeReference, UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, SearchModeReference, resp.SearchMode)
	assert.Empty(t, resp.Hits)
	require.Len(t, resp.References, 1)
	ref := resp.References[0]
	assert.Equal(t, "billing.py", ref.Path)
	assert.Equal(t, "s-total", ref.Reference.SymbolID)
	assert.Equal(t, 6, ref.Reference.Location.Start.Line)
	assert.Equal(t, "Invoice", ref.Symbol.Scope)

	// Cached reference responses are copies
	resp.References[0].Reference.Context = "changed"
	cached, err := s.Search(ctx, SearchRequest{Query: "total", Mode: SearchModeReference, UseCache: true})
	require.NoError(t, err)
	assert.True(t, cached.CacheHit)
	assert.Equal(t, "return self.total() * 1.2", cached.References[0].Reference.Context)

	resp, err = s.Search(ctx, SearchRequest{Query: "total", Mode: SearchModeReference, RefKind: types.RefCall})
	require.NoError(t, err)
	assert.Empty(t, resp.References)

	resp, err = s.Search(ctx, SearchRequest{Query: "Login", Mode: SearchModeReference})
	require.NoError(t, err)
	assert.Zero(t, resp.TotalResults, "Login is declared but never used")

	_, err = s.Search(ctx, SearchRequest{Mode: SearchModeReference, Kind: types.KindFunction})
	assert.ErrorIs(t, err, types.ErrEmptyQuery)
}

func TestSearch_InvalidRequests(t *testing.T) {
	s := NewSearcher(setupIndex(t))
	ctx := context.Background()

	_, err := s.Search(ctx, SearchRequest{Query: "   "})
	assert.ErrorIs(t, err, types.ErrEmptyQuery)

	_, err = s.Search(ctx, SearchRequest{Mode: SearchModeSymbol})
	assert.ErrorIs(t, err, types.ErrEmptyQuery, "symbol mode needs a query or a kind")

	_, err = s.Search(ctx, SearchRequest{Query: "x", Mode: "vector"})
	assert.ErrorContains(t, err, "unsupported search mode")
}

func TestValidateRequest_Defaults(t *testing.T) {
	s := NewSearcher(setupIndex(t))

	req := SearchRequest{Query: " login "}
	require.NoError(t, s.validateRequest(&req))
	assert.Equal(t, "login", req.Query)
	assert.Equal(t, SearchModeText, req.Mode)
	assert.Equal(t, DefaultLimit, req.Limit)
	assert.Equal(t, DefaultCacheTTL, req.CacheTTL)

	req = SearchRequest{Query: "login", Limit: 5000}
	require.NoError(t, s.validateRequest(&req))
	assert.Equal(t, MaxLimit, req.Limit)
}

func TestSearch_Cache(t *testing.T) {
	var generation atomic.Uint64
	s := NewSearcher(setupIndex(t), WithGeneration(generation.Load))
	ctx := context.Background()
	req := SearchRequest{Query: "Invoice", UseCache: true}

	first, err := s.Search(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Equal(t, 1, s.CacheLen())

	second, err := s.Search(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Hits, second.Hits)

	// Mutating a response must not leak into the cache
	second.Hits[0].Snippet = "changed"
	third, err := s.Search(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, "changed", third.Hits[0].Snippet)

	generation.Add(1)
	fourth, err := s.Search(ctx, req)
	require.NoError(t, err)
	assert.False(t, fourth.CacheHit, "a commit invalidates cached responses")

	s.InvalidateCache()
	assert.Zero(t, s.CacheLen())
}

func TestSearch_CacheExpiryAndOptOut(t *testing.T) {
	s := NewSearcher(setupIndex(t))
	ctx := context.Background()

	_, err := s.Search(ctx, SearchRequest{Query: "Invoice"})
	require.NoError(t, err)
	assert.Zero(t, s.CacheLen(), "caching is opt-in")

	req := SearchRequest{Query: "Invoice", UseCache: true, CacheTTL: time.Millisecond}
	_, err = s.Search(ctx, req)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	resp, err := s.Search(ctx, req)
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)

	_, err = s.Search(ctx, SearchRequest{Query: "nothing-matches-this", UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, 1, s.CacheLen(), "empty responses are not cached")
}

func TestComputeQueryHash(t *testing.T) {
	a := SearchRequest{Query: "login", Mode: SearchModeText, Limit: 10}
	b := a
	assert.Equal(t, computeQueryHash(a), computeQueryHash(b))

	b.Kind = types.KindFunction
	assert.NotEqual(t, computeQueryHash(a), computeQueryHash(b))

	b = a
	b.RefKind = types.RefCall
	assert.NotEqual(t, computeQueryHash(a), computeQueryHash(b))

	c := a
	c.ProjectID = "p1"
	assert.NotEqual(t, computeQueryHash(a), computeQueryHash(c))
}
