package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/codeindex/internal/snippet"
	"github.com/dshills/codeindex/internal/storage"
	"github.com/dshills/codeindex/pkg/types"
)

// SearchMode defines how search is performed
type SearchMode string

const (
	SearchModeText      SearchMode = "text"      // BM25 over document paths and content
	SearchModeSymbol    SearchMode = "symbol"    // Symbol name, signature and scope, optionally by kind
	SearchModeReference SearchMode = "reference" // Stored usages of symbols with the exact query name
)

const (
	DefaultLimit    = 10
	MaxLimit        = 100
	DefaultCacheTTL = time.Hour
	cacheSize       = 1000
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query        string
	Mode         SearchMode
	ProjectID    string              // Optional
	Language     types.Language      // Optional, text mode
	PathGlob     string              // Optional, text mode
	Kind         types.SymbolKind    // Optional, symbol mode
	RefKind      types.ReferenceKind // Optional, reference mode
	Limit        int
	ContextLines int // Lines of context around a text match; negative for the default
	UseCache     bool
	CacheTTL     time.Duration
}

// SearchResponse contains search results and metadata.
// Hits is filled in text mode, Symbols in symbol mode and References in
// reference mode.
type SearchResponse struct {
	Hits         []types.SearchHit
	Symbols      []types.SymbolHit
	References   []types.ReferenceHit
	TotalResults int
	SearchMode   SearchMode
	Duration     time.Duration
	CacheHit     bool
}

// cacheEntry represents a cached search response
type cacheEntry struct {
	response   *SearchResponse
	expiresAt  time.Time
	generation uint64
}

// Searcher runs queries against the full-text index. Responses are cached
// until they expire or the index generation moves on.
type Searcher struct {
	storage    storage.Storage
	generation func() uint64
	cache      *lru.Cache[[32]byte, *cacheEntry]
	cacheMu    sync.RWMutex
}

// Option configures a Searcher
type Option func(*Searcher)

// WithGeneration ties cached responses to a counter that increases with
// every committed index change
func WithGeneration(fn func() uint64) Option {
	return func(s *Searcher) {
		if fn != nil {
			s.generation = fn
		}
	}
}

// NewSearcher creates a new Searcher instance
func NewSearcher(storage storage.Storage, opts ...Option) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](cacheSize)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	s := &Searcher{
		storage:    storage,
		generation: func() uint64 { return 0 },
		cache:      cache,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search performs a search based on the request parameters
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	if req.UseCache {
		if cached, ok := s.checkCache(req); ok {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}
	generation := s.generation()

	var response *SearchResponse
	var err error
	switch req.Mode {
	case SearchModeText:
		response, err = s.textSearch(ctx, req)
	case SearchModeSymbol:
		response, err = s.symbolSearch(ctx, req)
	case SearchModeReference:
		response, err = s.referenceSearch(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported search mode: %s", req.Mode)
	}
	if err != nil {
		return nil, err
	}

	response.Duration = time.Since(startTime)
	response.SearchMode = req.Mode

	if req.UseCache && response.TotalResults > 0 {
		s.storeInCache(req, response, generation)
	}
	return response, nil
}

// textSearch ranks documents with BM25 and cuts a snippet around the best
// matching line of each
func (s *Searcher) textSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	docs, err := s.storage.SearchDocuments(ctx, storage.DocumentQuery{
		Text:      req.Query,
		ProjectID: req.ProjectID,
		Language:  req.Language,
		PathGlob:  req.PathGlob,
		Limit:     req.Limit,
	})
	if err != nil {
		return nil, err
	}

	matcher := snippet.NewMatcher(req.Query)
	hits := make([]types.SearchHit, 0, len(docs))
	for i, doc := range docs {
		hit := types.SearchHit{
			Rank:      i + 1,
			Score:     doc.Score,
			FileID:    doc.FileID,
			ProjectID: doc.ProjectID,
			Path:      doc.RelativePath,
			Language:  doc.Language,
		}
		if matcher != nil {
			snip := matcher.Extract(doc.Content, req.ContextLines)
			hit.Line = snip.Line
			hit.Snippet = snip.Text
		}
		if err := hit.Validate(); err != nil {
			return nil, fmt.Errorf("invalid hit for %s: %w", doc.RelativePath, err)
		}
		hits = append(hits, hit)
	}

	return &SearchResponse{
		Hits:         hits,
		TotalResults: len(hits),
	}, nil
}

// symbolSearch finds declarations by name and kind
func (s *Searcher) symbolSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	hits, err := s.storage.SearchSymbols(ctx, storage.SymbolQuery{
		Text:      req.Query,
		Kind:      req.Kind,
		ProjectID: req.ProjectID,
		Limit:     req.Limit,
	})
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Symbols:      hits,
		TotalResults: len(hits),
	}, nil
}

// referenceSearch lists where symbols named by the query are used
func (s *Searcher) referenceSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	hits, err := s.storage.SearchReferences(ctx, storage.ReferenceQuery{
		Name:      req.Query,
		ProjectID: req.ProjectID,
		Kind:      req.RefKind,
		Limit:     req.Limit,
	})
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		References:   hits,
		TotalResults: len(hits),
	}, nil
}

// validateRequest ensures search request is valid
func (s *Searcher) validateRequest(req *SearchRequest) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Mode == "" {
		req.Mode = SearchModeText // Default mode
	}

	// A symbol listing by kind alone needs no query
	if req.Query == "" && (req.Mode != SearchModeSymbol || req.Kind == "") {
		return types.ErrEmptyQuery
	}

	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}

	if req.CacheTTL == 0 {
		req.CacheTTL = DefaultCacheTTL
	}
	return nil
}

// checkCache looks up a live cached response
func (s *Searcher) checkCache(req SearchRequest) (*SearchResponse, bool) {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil, false
	}

	if now.After(entry.expiresAt) || entry.generation != s.generation() {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil, false
	}

	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()
	return response, true
}

// storeInCache saves a response computed at the given index generation
func (s *Searcher) storeInCache(req SearchRequest, response *SearchResponse, generation uint64) {
	entry := &cacheEntry{
		response:   copySearchResponse(response),
		expiresAt:  time.Now().Add(req.CacheTTL),
		generation: generation,
	}

	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := *src
	dst.Hits = append([]types.SearchHit(nil), src.Hits...)
	dst.Symbols = make([]types.SymbolHit, len(src.Symbols))
	for i, hit := range src.Symbols {
		dst.Symbols[i] = hit
		// Tags is the only reference field of a symbol
		dst.Symbols[i].Symbol.Tags = append([]string(nil), hit.Symbol.Tags...)
	}
	dst.References = make([]types.ReferenceHit, len(src.References))
	for i, hit := range src.References {
		dst.References[i] = hit
		dst.References[i].Symbol.Tags = append([]string(nil), hit.Symbol.Tags...)
	}
	return &dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest) [32]byte {
	fields := []string{
		req.Query,
		string(req.Mode),
		req.ProjectID,
		string(req.Language),
		req.PathGlob,
		string(req.Kind),
		string(req.RefKind),
		fmt.Sprintf("%d", req.Limit),
		fmt.Sprintf("%d", req.ContextLines),
	}
	return sha256.Sum256([]byte(strings.Join(fields, "\x00")))
}

// InvalidateCache drops every cached response
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached responses
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}
