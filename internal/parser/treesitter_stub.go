//go:build !cgo

package parser

import (
	"context"
	"fmt"

	"github.com/dshills/codeindex/pkg/types"
)

func hasGrammar(types.Language) bool {
	return false
}

// syntaxTreeExtractor without cgo only has the go/ast backend
type syntaxTreeExtractor struct {
	goAst *goAstExtractor
}

func newSyntaxTreeExtractor() *syntaxTreeExtractor {
	return &syntaxTreeExtractor{goAst: &goAstExtractor{}}
}

func (x *syntaxTreeExtractor) extract(ctx context.Context, req extractRequest) (*extraction, error) {
	if req.Language == types.LangGo {
		return x.goAst.extract(ctx, req)
	}
	return nil, fmt.Errorf("no grammar for %s in a build without cgo", req.Language)
}
