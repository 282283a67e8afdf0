// Package snippet renders search hits: the best matching lines of a
// document with surrounding context and the query terms highlighted.
package snippet
