// Package searcher implements the query surface over the full-text index.
//
// The searcher provides two search modes:
//   - Text: BM25 over document paths and content, with a highlighted snippet
//     around the best matching line of each hit (default)
//   - Symbol: declarations by name, signature or scope, optionally
//     restricted to one symbol kind
//
// # Basic Usage
//
//	s := searcher.NewSearcher(db, searcher.WithGeneration(engine.Generation))
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query:     "password reset",
//	    ProjectID: projectID,
//	    Language:  types.LangGo,
//	    Limit:     10,
//	})
//
//	for _, hit := range resp.Hits {
//	    fmt.Printf("[%d] %s:%d (score: %.2f)\n%s\n",
//	        hit.Rank, hit.Path, hit.Line, hit.Score, hit.Snippet)
//	}
//
// Symbol mode:
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query: "User*",
//	    Mode:  searcher.SearchModeSymbol,
//	    Kind:  types.KindInterface,
//	})
//
// A symbol request may omit the query to list every symbol of a kind.
//
// # Query Syntax
//
// Words are and-ed. FTS5 operators in user input are matched literally; a
// trailing '*' turns a word into a prefix.
//
// # Caching
//
// With UseCache set, non-empty responses are kept in an LRU cache
// (1000 entries) for CacheTTL (default one hour). Entries are tied to the
// index generation given by WithGeneration, so any committed indexing run
// invalidates them.
package searcher
