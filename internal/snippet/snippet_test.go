package snippet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const source = `package shop

import "errors"

// Checkout finalizes the cart
func Checkout(cart *Cart) error {
	if cart.Empty() {
		return errors.New("empty cart")
	}
	return cart.Pay()
}
`

func TestNewMatcher(t *testing.T) {
	assert.Nil(t, NewMatcher(""))
	assert.Nil(t, NewMatcher("  ** () "))

	m := NewMatcher(`Cart cart "pay"  User*`)
	require.NotNil(t, m)
	assert.Equal(t, []string{"cart", "pay", "user"}, m.Terms())
}

func TestHighlight(t *testing.T) {
	tests := []struct {
		name  string
		query string
		line  string
		want  string
	}{
		{"case insensitive", "cart", "func Checkout(cart *Cart)", "func Checkout(**cart** ***Cart**)"},
		{"whole words only", "cart", "carts and a cartwheel", "carts and a cartwheel"},
		{"prefix", "Check*", "func Checkout() // checked", "func **Checkout**() // **checked**"},
		{"several terms", "empty cart", `return errors.New("empty cart")`, `return errors.New("**empty** **cart**")`},
		{"punctuation splits words", "a.b", "a.b axb", "**a**.**b** axb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(tt.query)
			require.NotNil(t, m)
			assert.Equal(t, tt.want, m.Highlight(tt.line))
		})
	}
}

func TestExtract(t *testing.T) {
	m := NewMatcher("empty cart")
	s := m.Extract(source, 1)

	assert.Equal(t, 7, s.Line, "the first line with both terms wins")
	assert.Equal(t, 6, s.Start)
	assert.Equal(t, 8, s.End)
	assert.Equal(t, " 6: func Checkout(**cart** ***Cart**) error {\n"+
		">7: \tif **cart**.**Empty**() {\n"+
		" 8: \t\treturn errors.New(\"**empty** **cart**\")", s.Text)
}

func TestExtract_Edges(t *testing.T) {
	t.Run("match on first line clamps the window", func(t *testing.T) {
		s := NewMatcher("shop").Extract(source, 2)
		assert.Equal(t, 1, s.Line)
		assert.Equal(t, 1, s.Start)
		assert.Equal(t, 3, s.End)
	})

	t.Run("no match shows the head", func(t *testing.T) {
		s := NewMatcher("inventory").Extract(source, 1)
		assert.Zero(t, s.Line)
		assert.Equal(t, 1, s.Start)
		assert.Equal(t, 3, s.End)
		assert.NotContains(t, s.Text, ">")
	})

	t.Run("empty content", func(t *testing.T) {
		assert.Equal(t, Snippet{}, NewMatcher("x").Extract("", 2))
	})

	t.Run("negative context uses the default", func(t *testing.T) {
		s := NewMatcher("Pay").Extract(source, -1)
		assert.Equal(t, 10, s.Line)
		assert.Equal(t, 10-DefaultContextLines, s.Start)
		assert.Equal(t, 11, s.End)
	})
}

func TestRange(t *testing.T) {
	assert.Equal(t, "func Checkout(cart *Cart) error {\n\tif cart.Empty() {", Range(source, 6, 7))
	assert.Equal(t, "package shop", Range(source, -3, 1))
	assert.Equal(t, "}", Range(source, 11, 50))
	assert.Empty(t, Range(source, 9, 3))
	assert.Len(t, Lines("a\r\nb\n"), 2)
	assert.Equal(t, "b", Lines("a\r\nb\n")[1])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab…", truncate("abcd", 2))
	assert.Equal(t, "日本…", truncate("日本語", 2))
}
