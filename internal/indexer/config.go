package indexer

import (
	"runtime"

	"github.com/dshills/codeindex/internal/classifier"
	"github.com/dshills/codeindex/internal/parser"
)

// Config contains configuration for the engine
type Config struct {
	Workers int // Number of concurrent parse workers (default: runtime.NumCPU())
	Parser  parser.Config
	Ignore  classifier.IgnoreConfig // Base rules; a project's .codeindex.yaml is merged in per run
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		Workers: runtime.NumCPU(),
		Parser:  parser.DefaultConfig(),
		Ignore:  classifier.DefaultIgnoreConfig(),
	}
}
