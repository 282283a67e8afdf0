package types

import (
	"errors"
	"fmt"
)

// SymbolKind represents the kind of a declared symbol
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindClass     SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindStruct    SymbolKind = "struct"
	KindEnum      SymbolKind = "enum"
	KindVariable  SymbolKind = "variable"
	KindConstant  SymbolKind = "constant"
	KindField     SymbolKind = "field"
	KindParameter SymbolKind = "parameter"
	KindModule    SymbolKind = "module"
	KindNamespace SymbolKind = "namespace"
	KindMacro     SymbolKind = "macro"
	KindType      SymbolKind = "type"
)

// AllSymbolKinds lists every valid symbol kind
var AllSymbolKinds = []SymbolKind{
	KindFunction, KindMethod, KindClass, KindInterface, KindStruct, KindEnum,
	KindVariable, KindConstant, KindField, KindParameter, KindModule,
	KindNamespace, KindMacro, KindType,
}

// ParseSymbolKind converts a string to a SymbolKind
func ParseSymbolKind(s string) (SymbolKind, error) {
	for _, k := range AllSymbolKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown symbol kind %q", s)
}

// IsCallable reports whether symbols of this kind have a body that can call others
func (k SymbolKind) IsCallable() bool {
	return k == KindFunction || k == KindMethod
}

// IsTypeLike reports whether symbols of this kind declare a type
func (k SymbolKind) IsTypeLike() bool {
	switch k {
	case KindClass, KindInterface, KindStruct, KindEnum, KindType:
		return true
	}
	return false
}

// Position represents a location in source code.
// Lines are 1-based, columns are 0-based byte offsets within the line.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Before reports whether p comes strictly before o
func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// Location is a position within a specific file
type Location struct {
	FileID string   `json:"file_id"`
	Start  Position `json:"start"`
	End    Position `json:"end"`
}

// Symbol is a named, located declaration extracted from source text
type Symbol struct {
	ID        string     `json:"id"`
	FileID    string     `json:"file_id"`
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	Start     Position   `json:"start"`
	End       Position   `json:"end"`
	Signature string     `json:"signature,omitempty"`
	Scope     string     `json:"scope,omitempty"` // Enclosing names joined with "::"
	Namespace string     `json:"namespace,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
}

// Contains reports whether pos falls inside the symbol's span
func (s *Symbol) Contains(pos Position) bool {
	return !pos.Before(s.Start) && !s.End.Before(pos)
}

// QualifiedName joins the scope and the name
func (s *Symbol) QualifiedName() string {
	if s.Scope == "" {
		return s.Name
	}
	return s.Scope + "::" + s.Name
}

// Validate performs validation of the symbol
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return errors.New("symbol name is required")
	}

	if _, err := ParseSymbolKind(string(s.Kind)); err != nil {
		return err
	}

	// Position validation
	if s.Start.Line <= 0 || s.End.Line <= 0 {
		return errors.New("invalid position: line numbers must be positive")
	}

	if s.Start.Line > s.End.Line {
		return errors.New("invalid position: start line must be before or equal to end line")
	}

	return nil
}
