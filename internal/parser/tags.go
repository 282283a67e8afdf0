package parser

import (
	"strings"
	"unicode"

	"github.com/dshills/codeindex/pkg/types"
)

// Symbol tags derived from naming conventions. They travel with the symbol
// into the index and become node metadata tags in the symbol graph.
const (
	TagExported   = "exported"
	TagPrivate    = "private"
	TagTest       = "test"
	TagHandler    = "handler"
	TagRepository = "repository"
	TagService    = "service"
	TagFactory    = "factory"
	TagAbstract   = "abstract"
)

// symbolTags returns the convention tags of a symbol
func symbolTags(sym *types.Symbol) []string {
	if sym.Name == "" {
		return nil
	}

	tags := make([]string, 0, 2)
	if isPrivateName(sym) {
		tags = append(tags, TagPrivate)
	} else {
		tags = append(tags, TagExported)
	}

	if isTestName(sym) {
		tags = append(tags, TagTest)
	}

	if sym.Kind.IsTypeLike() {
		checkRoleSuffix(sym.Name, &tags)
		if sym.Kind == types.KindInterface || strings.HasPrefix(sym.Name, "Abstract") {
			tags = append(tags, TagAbstract)
		}
	}

	if sym.Kind.IsCallable() && isFactoryName(sym.Name) {
		tags = append(tags, TagFactory)
	}
	return tags
}

// isPrivateName applies the visibility conventions shared by most languages:
// a leading underscore, or a lower-case initial for Go identifiers.
func isPrivateName(sym *types.Symbol) bool {
	if strings.HasPrefix(sym.Name, "_") {
		return true
	}
	if strings.Contains(sym.Signature, "private ") {
		return true
	}
	if strings.HasPrefix(sym.Signature, "func ") || strings.HasPrefix(sym.Signature, "type ") {
		r := []rune(sym.Name)[0]
		return !unicode.IsUpper(r)
	}
	return false
}

func isTestName(sym *types.Symbol) bool {
	if !sym.Kind.IsCallable() && sym.Kind != types.KindClass {
		return false
	}
	name := sym.Name
	return strings.HasPrefix(name, "Test") || strings.HasPrefix(name, "test_") ||
		strings.HasPrefix(name, "Benchmark") || strings.HasSuffix(name, "Test") ||
		strings.HasSuffix(name, "Tests")
}

func checkRoleSuffix(name string, tags *[]string) {
	switch {
	case strings.HasSuffix(name, "Handler") || strings.HasSuffix(name, "Controller"):
		*tags = append(*tags, TagHandler)
	case strings.HasSuffix(name, "Repository") || strings.HasSuffix(name, "Repo") || strings.HasSuffix(name, "Store"):
		*tags = append(*tags, TagRepository)
	case strings.HasSuffix(name, "Service"):
		*tags = append(*tags, TagService)
	case strings.HasSuffix(name, "Factory") || strings.HasSuffix(name, "Builder"):
		*tags = append(*tags, TagFactory)
	}
}

func isFactoryName(name string) bool {
	return strings.HasPrefix(name, "New") || strings.HasPrefix(name, "new_") ||
		strings.HasPrefix(name, "create") || strings.HasPrefix(name, "Create") ||
		strings.HasPrefix(name, "make") || strings.HasPrefix(name, "Make")
}
