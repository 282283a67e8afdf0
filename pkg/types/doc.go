// Package types provides the shared data model of the code index.
//
// The model follows the ownership chain of an index: a Project owns its
// IndexedFiles, an IndexedFile owns its Symbols, and References point at
// Symbols by id only.
//
// # Identifiers
//
// All identifiers are strings. Files and symbols use name-based UUIDs so the
// same path (or the same declaration at the same place) keeps its identity
// across runs:
//
//	fileID := uuid.NewSHA1(fileNamespace, []byte(projectID + "\x00" + relativePath))
//
// # Symbols and references
//
// Symbol is a declaration with a kind, a span and optional signature, scope
// and namespace:
//
//	sym := types.Symbol{
//	    Name:  "add",
//	    Kind:  types.KindFunction,
//	    Start: types.Position{Line: 1, Column: 0},
//	}
//
// Reference is a resolved usage of a Symbol. Usage is the raw, unresolved
// occurrence a parser saw; usages stay in memory and feed cross-file
// resolution in the graph builder.
//
// # Statistics
//
// IndexStats describes everything the engine currently holds, RunStats
// describes a single indexing run.
package types
