package types

// ParseResult represents the output of parsing one source file
type ParseResult struct {
	Symbols    []Symbol
	References []Reference
	Usages     []Usage

	// Strategy names the strategy that produced the result
	Strategy string
	// Cached is true when the result came from the checksum cache
	Cached bool
}

// SymbolByName returns the first symbol with the given name
func (pr *ParseResult) SymbolByName(name string) (*Symbol, bool) {
	for i := range pr.Symbols {
		if pr.Symbols[i].Name == name {
			return &pr.Symbols[i], true
		}
	}
	return nil, false
}
