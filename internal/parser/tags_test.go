package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/codeindex/pkg/types"
)

func TestSymbolTags(t *testing.T) {
	tests := []struct {
		name string
		sym  types.Symbol
		want []string
	}{
		{
			name: "exported go function",
			sym:  types.Symbol{Name: "Serve", Kind: types.KindFunction, Signature: "func Serve() error"},
			want: []string{TagExported},
		},
		{
			name: "unexported go function",
			sym:  types.Symbol{Name: "serve", Kind: types.KindFunction, Signature: "func serve()"},
			want: []string{TagPrivate},
		},
		{
			name: "python private",
			sym:  types.Symbol{Name: "_helper", Kind: types.KindFunction, Signature: "def _helper():"},
			want: []string{TagPrivate},
		},
		{
			name: "go test",
			sym:  types.Symbol{Name: "TestServe", Kind: types.KindFunction, Signature: "func TestServe(t *testing.T)"},
			want: []string{TagExported, TagTest},
		},
		{
			name: "handler struct",
			sym:  types.Symbol{Name: "UserHandler", Kind: types.KindStruct, Signature: "type UserHandler struct"},
			want: []string{TagExported, TagHandler},
		},
		{
			name: "repository interface",
			sym:  types.Symbol{Name: "OrderRepository", Kind: types.KindInterface, Signature: "type OrderRepository interface"},
			want: []string{TagExported, TagRepository, TagAbstract},
		},
		{
			name: "service class",
			sym:  types.Symbol{Name: "BillingService", Kind: types.KindClass, Signature: "class BillingService {"},
			want: []string{TagExported, TagService},
		},
		{
			name: "factory function",
			sym:  types.Symbol{Name: "NewServer", Kind: types.KindFunction, Signature: "func NewServer() *Server"},
			want: []string{TagExported, TagFactory},
		},
		{
			name: "java private field",
			sym:  types.Symbol{Name: "count", Kind: types.KindField, Signature: "private int count;"},
			want: []string{TagPrivate},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, symbolTags(&tt.sym))
		})
	}
}

func TestSymbolTags_EmptyName(t *testing.T) {
	assert.Nil(t, symbolTags(&types.Symbol{Kind: types.KindFunction}))
}
