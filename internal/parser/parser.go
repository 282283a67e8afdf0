package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/codeindex/pkg/types"
)

const (
	// DefaultMaxFileSize is the default parse size ceiling (1 MiB)
	DefaultMaxFileSize = 1024 * 1024
	// DefaultCacheSize is the default number of cached file parses
	DefaultCacheSize = 4096
	// DefaultCtagsTimeout bounds a single ctags invocation
	DefaultCtagsTimeout = 10 * time.Second
)

// ErrFileTooLarge is returned when content exceeds the configured ceiling.
// It is the only error Parse surfaces; strategy failures fall through.
var ErrFileTooLarge = errors.New("file exceeds maximum parse size")

// Config controls the strategy chain and the cache
type Config struct {
	PreferSyntaxTree  bool  // Attempt the syntax-tree strategy when a grammar exists
	FallbackToCtags   bool  // Attempt ctags before the heuristic strategy
	EnableIncremental bool  // Reuse the previous tree of a file as a diff baseline
	CacheResults      bool  // Serve unchanged content from the checksum cache
	MaxFileSize       int64 // Parse size ceiling in bytes
	CacheSize         int   // Maximum number of cached files
	CtagsTimeout      time.Duration
}

// DefaultConfig returns the default parser configuration
func DefaultConfig() Config {
	return Config{
		PreferSyntaxTree:  true,
		FallbackToCtags:   true,
		EnableIncremental: true,
		CacheResults:      true,
		MaxFileSize:       DefaultMaxFileSize,
		CacheSize:         DefaultCacheSize,
		CtagsTimeout:      DefaultCtagsTimeout,
	}
}

// Option configures a Parser
type Option func(*Parser)

// WithLogger sets the logger used for strategy fallbacks
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithCtagsBinary pins the ctags executable instead of searching PATH.
// An empty path disables the ctags strategy.
func WithCtagsBinary(path string) Option {
	return func(p *Parser) {
		p.ctags = newCtagsExtractor(path, p.config.CtagsTimeout)
	}
}

// Parser runs the multi-strategy fallback chain. It is safe for concurrent
// use; concurrent calls for the same file id are not supported.
type Parser struct {
	config     Config
	cache      *resultCache
	syntaxTree *syntaxTreeExtractor
	ctags      *ctagsExtractor
	heuristic  *heuristicExtractor
	logger     *slog.Logger
}

// extractRequest is the uniform input of every strategy
type extractRequest struct {
	Path     string
	Content  []byte
	Language types.Language
	Previous *cacheEntry // Last parse of the same file, may be nil
}

// extraction is the uniform output of every strategy
type extraction struct {
	Symbols []types.Symbol // IDs and FileID are assigned by the Parser
	Usages  []types.Usage  // Identifier occurrences outside definitions
	Tree    any
}

// New creates a new Parser instance
func New(config Config, opts ...Option) *Parser {
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultMaxFileSize
	}
	if config.CtagsTimeout <= 0 {
		config.CtagsTimeout = DefaultCtagsTimeout
	}

	p := &Parser{
		config:     config,
		cache:      newResultCache(config.CacheSize),
		syntaxTree: newSyntaxTreeExtractor(),
		heuristic:  newHeuristicExtractor(),
		logger:     slog.Default(),
	}
	p.ctags = newCtagsExtractor(lookupCtags(), config.CtagsTimeout)

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts symbols and references from one file's content.
//
// Results are cached by file id and content checksum; an unchanged checksum
// returns the cached result (Cached=true) without running any strategy.
// Returned slices are shared with the cache and must not be modified.
func (p *Parser) Parse(ctx context.Context, fileID, path, content string, lang types.Language) (*types.ParseResult, error) {
	if int64(len(content)) > p.config.MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, path, len(content), p.config.MaxFileSize)
	}

	src := []byte(content)
	sum := checksum(src)

	prev, hasPrev := p.cache.get(fileID)
	if p.config.CacheResults && hasPrev && prev.checksum == sum {
		cached := *prev.result
		cached.Cached = true
		return &cached, nil
	}

	req := extractRequest{
		Path:     path,
		Content:  src,
		Language: lang,
	}
	if p.config.EnableIncremental && hasPrev {
		req.Previous = prev
	}

	ext, strategy := p.runChain(ctx, req)

	result := &types.ParseResult{
		Strategy: strategy.String(),
		Symbols:  ext.Symbols,
		Usages:   ext.Usages,
	}
	p.finalize(fileID, result)

	if p.config.CacheResults {
		p.cache.put(fileID, &cacheEntry{
			checksum: sum,
			result:   result,
			content:  src,
			tree:     ext.Tree,
		})
	}
	return result, nil
}

// Invalidate drops the cached parse of a file
func (p *Parser) Invalidate(fileID string) {
	p.cache.remove(fileID)
}

// CachedFiles returns the number of files in the cache
func (p *Parser) CachedFiles() int {
	return p.cache.len()
}

// runChain attempts each strategy in order until one succeeds. The
// heuristic strategy terminates the chain and cannot fail.
func (p *Parser) runChain(ctx context.Context, req extractRequest) (*extraction, Strategy) {
	for _, s := range chainFrom(StrategyFor(req.Language)) {
		if !p.enabled(s, req.Language) {
			continue
		}
		ext, err := p.run(ctx, s, req)
		if err != nil {
			p.logger.Debug("parse strategy failed, falling back",
				"strategy", s.String(), "path", req.Path, "language", req.Language, "error", err)
			continue
		}
		return ext, s
	}
	// Unreachable while the heuristic strategy is always enabled
	return p.heuristic.extract(req), StrategyHeuristic
}

func (p *Parser) enabled(s Strategy, lang types.Language) bool {
	switch s {
	case StrategySyntaxTree:
		return p.config.PreferSyntaxTree && hasSyntaxTree(lang)
	case StrategyCtags:
		return p.config.FallbackToCtags && p.ctags.supports(lang)
	default:
		return true
	}
}

// run dispatches on the strategy tag
func (p *Parser) run(ctx context.Context, s Strategy, req extractRequest) (*extraction, error) {
	switch s {
	case StrategySyntaxTree:
		return p.syntaxTree.extract(ctx, req)
	case StrategyCtags:
		return p.ctags.extract(ctx, req)
	case StrategyHeuristic:
		return p.heuristic.extract(req), nil
	default:
		return nil, fmt.Errorf("unknown strategy %d", s)
	}
}

// finalize assigns identifiers, tags symbols and resolves same-file
// references. A usage whose name matches no symbol of the file produces no
// reference.
func (p *Parser) finalize(fileID string, result *types.ParseResult) {
	ns := namespaceFor(fileID)

	byName := make(map[string]int, len(result.Symbols))
	for i := range result.Symbols {
		sym := &result.Symbols[i]
		sym.FileID = fileID
		sym.ID = uuid.NewSHA1(ns, []byte(fmt.Sprintf("sym:%s:%s:%d:%d", sym.Kind, sym.Name, sym.Start.Line, sym.Start.Column))).String()
		sym.Tags = symbolTags(sym)
		if _, ok := byName[sym.Name]; !ok {
			byName[sym.Name] = i
		}
	}

	for i := range result.Usages {
		u := &result.Usages[i]
		u.Location.FileID = fileID

		idx, ok := byName[u.Name]
		if !ok {
			continue
		}
		target := &result.Symbols[idx]
		result.References = append(result.References, types.Reference{
			ID:       uuid.NewSHA1(ns, []byte(fmt.Sprintf("ref:%s:%d:%d", target.ID, u.Location.Start.Line, u.Location.Start.Column))).String(),
			SymbolID: target.ID,
			FileID:   fileID,
			Location: u.Location,
			Kind:     types.RefUsage,
			Context:  u.Context,
		})
	}
}

// namespaceFor returns a UUID namespace for name-based ids under fileID.
// File ids are UUIDs in practice; anything else is hashed into one.
func namespaceFor(fileID string) uuid.UUID {
	if id, err := uuid.Parse(fileID); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fileID))
}

// splitLines splits source into lines without their terminators
func splitLines(content []byte) []string {
	return strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
}

// contextLine returns the trimmed text of a 0-based row
func contextLine(lines []string, row int) string {
	if row < 0 || row >= len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[row])
}

// collapseSignature squeezes whitespace runs and caps the length
func collapseSignature(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxSignatureLen {
		s = string(r[:maxSignatureLen])
	}
	return s
}

const maxSignatureLen = 200
