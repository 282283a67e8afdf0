package types

import "fmt"

// ReferenceKind classifies a stored reference
type ReferenceKind string

const (
	RefUsage          ReferenceKind = "usage"
	RefDefinition     ReferenceKind = "definition"
	RefDeclaration    ReferenceKind = "declaration"
	RefCall           ReferenceKind = "call"
	RefImport         ReferenceKind = "import"
	RefInheritance    ReferenceKind = "inheritance"
	RefImplementation ReferenceKind = "implementation"
)

// AllReferenceKinds lists every valid reference kind
var AllReferenceKinds = []ReferenceKind{
	RefUsage, RefDefinition, RefDeclaration, RefCall, RefImport, RefInheritance, RefImplementation,
}

// ParseReferenceKind converts a string to a ReferenceKind
func ParseReferenceKind(s string) (ReferenceKind, error) {
	for _, k := range AllReferenceKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown reference kind %q", s)
}

// Reference is a located usage of a symbol, distinct from its definition site.
// SymbolID always names an existing symbol.
type Reference struct {
	ID       string        `json:"id"`
	SymbolID string        `json:"symbol_id"`
	FileID   string        `json:"file_id"`
	Location Location      `json:"location"`
	Kind     ReferenceKind `json:"kind"`
	Context  string        `json:"context"`
}

// UsageKind classifies a raw identifier occurrence
type UsageKind string

const (
	UsageCall       UsageKind = "call"
	UsageReference  UsageKind = "reference"
	UsageAssignment UsageKind = "assignment"
	UsageImport     UsageKind = "import"
)

// Usage is an unresolved identifier occurrence. Usages only live in memory and
// feed the cross-reference builder, which resolves them across files.
type Usage struct {
	Name     string    `json:"name"`
	Location Location  `json:"location"`
	Kind     UsageKind `json:"kind"`
	Context  string    `json:"context"`
}
