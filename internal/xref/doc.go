// Package xref builds a directed graph of symbol relationships from parsed
// files.
//
// Build takes one SymbolDatabase per file and returns a fresh SymbolGraph.
// Names used in a file resolve to symbols of the same file first and then to
// symbols of the same project. Calls, instantiations, inheritance, type uses,
// modifications and containment become edges; repeated relationships merge
// into one edge whose call count and locations accumulate.
//
// Analyze reports coupling, dependency cycles and layers of a built graph.
package xref
