package types

import "time"

// IndexStats aggregates the current in-memory state across all projects
type IndexStats struct {
	TotalProjects   int              `json:"total_projects"`
	TotalFiles      int              `json:"total_files"`
	TotalLines      int              `json:"total_lines"`
	TotalSymbols    int              `json:"total_symbols"`
	TotalReferences int              `json:"total_references"`
	IndexSizeBytes  int64            `json:"index_size_bytes"`
	LastUpdate      time.Time        `json:"last_update"`
	Languages       map[Language]int `json:"languages"`
	FileTypes       map[FileType]int `json:"file_types"`
}

// RunStats reports the outcome of one indexing run.
// Files, Lines, Symbols and References cover every file the project holds
// after the run, whether it was reparsed or reused unchanged.
type RunStats struct {
	ProjectID      string           `json:"project_id"`
	Files          int              `json:"files"`
	FilesIndexed   int              `json:"files_indexed"`
	FilesUnchanged int              `json:"files_unchanged"`
	FilesSkipped   int              `json:"files_skipped"`
	FilesFailed    int              `json:"files_failed"`
	FilesRemoved   int              `json:"files_removed"`
	Lines          int              `json:"lines"`
	Symbols        int              `json:"symbols"`
	References     int              `json:"references"`
	Languages      map[Language]int `json:"languages"`
	FileTypes      map[FileType]int `json:"file_types"`
	Duration       time.Duration    `json:"duration"`
	Errors         []string         `json:"errors,omitempty"`
}

// NewRunStats returns RunStats with initialized maps
func NewRunStats(projectID string) *RunStats {
	return &RunStats{
		ProjectID: projectID,
		Languages: make(map[Language]int),
		FileTypes: make(map[FileType]int),
	}
}

// SearchHit is a single full-text search result
type SearchHit struct {
	Rank      int      `json:"rank"` // 1-based position in the result set
	Score     float64  `json:"score"`
	FileID    string   `json:"file_id"`
	ProjectID string   `json:"project_id"`
	Path      string   `json:"path"`
	Language  Language `json:"language"`
	Line      int      `json:"line,omitempty"`
	Snippet   string   `json:"snippet,omitempty"`
}

// SymbolHit is a single structured symbol search result
type SymbolHit struct {
	Rank      int     `json:"rank"`
	Score     float64 `json:"score"`
	ProjectID string  `json:"project_id"`
	Path      string  `json:"path"`
	Symbol    Symbol  `json:"symbol"`
}

// ReferenceHit is a stored usage of a symbol together with the symbol it
// resolves to
type ReferenceHit struct {
	Rank      int       `json:"rank"`
	ProjectID string    `json:"project_id"`
	Path      string    `json:"path"`
	Reference Reference `json:"reference"`
	Symbol    Symbol    `json:"symbol"`
}

// Validate checks if the search hit is valid
func (h *SearchHit) Validate() error {
	if h.FileID == "" {
		return ErrMissingFileInfo
	}
	if h.Rank < 1 {
		return ErrInvalidRank
	}
	return nil
}
