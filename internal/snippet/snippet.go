package snippet

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultContextLines is the number of lines shown around a match
	DefaultContextLines = 2

	// MaxLineLength caps each rendered line, in runes
	MaxLineLength = 240
)

// Highlight markers wrapped around matched terms
const (
	MarkOpen  = "**"
	MarkClose = "**"
)

// Snippet is an excerpt of a document around its best matching line
type Snippet struct {
	Line  int    // 1-based matching line, 0 when only the path matched
	Start int    // First rendered line
	End   int    // Last rendered line
	Text  string // Rendered lines, "<line>: <text>", the match prefixed with '>'
}

// Matcher finds and highlights the words of a free-text query
type Matcher struct {
	terms []string
	re    *regexp.Regexp
}

// NewMatcher compiles a query. Words are matched case-insensitively at word
// starts; a trailing '*' makes a word a prefix, like the full-text index.
// It returns nil when the query has no words.
func NewMatcher(query string) *Matcher {
	var terms, patterns []string
	seen := make(map[string]bool)
	for _, field := range strings.Fields(query) {
		prefix := strings.HasSuffix(field, "*")
		words := strings.FieldsFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		for i, w := range words {
			lw := strings.ToLower(w)
			if seen[lw] {
				continue
			}
			seen[lw] = true
			terms = append(terms, lw)
			p := regexp.QuoteMeta(w)
			if prefix && i == len(words)-1 {
				p += `\w*`
			} else {
				p += `\b`
			}
			patterns = append(patterns, p)
		}
	}
	if len(terms) == 0 {
		return nil
	}
	return &Matcher{
		terms: terms,
		re:    regexp.MustCompile(`(?i)\b(?:` + strings.Join(patterns, "|") + `)`),
	}
}

// Terms returns the lowercased query words
func (m *Matcher) Terms() []string {
	return m.terms
}

// score counts the distinct terms found in line
func (m *Matcher) score(line string) int {
	found := make(map[string]bool)
	for _, match := range m.re.FindAllString(line, -1) {
		found[strings.ToLower(match)] = true
	}
	return len(found)
}

// Highlight wraps every match in line with the markers
func (m *Matcher) Highlight(line string) string {
	return m.re.ReplaceAllString(line, MarkOpen+"$0"+MarkClose)
}

// BestLine returns the 1-based line matching the most distinct terms, the
// first one on ties, or 0 when no line matches
func (m *Matcher) BestLine(lines []string) int {
	best, bestScore := 0, 0
	for i, line := range lines {
		if s := m.score(line); s > bestScore {
			best, bestScore = i+1, s
			if s == len(m.terms) {
				break
			}
		}
	}
	return best
}

// Extract renders the best matching line of content with contextLines of
// context on each side. Without a match the head of the document is shown.
func (m *Matcher) Extract(content string, contextLines int) Snippet {
	if contextLines < 0 {
		contextLines = DefaultContextLines
	}
	lines := Lines(content)
	if len(lines) == 0 {
		return Snippet{}
	}

	line := m.BestLine(lines)
	center := line
	if center == 0 {
		center = 1
	}
	start := max(center-contextLines, 1)
	end := min(center+contextLines, len(lines))
	if line == 0 {
		end = min(1+2*contextLines, len(lines))
	}

	width := len(fmt.Sprint(end))
	var b strings.Builder
	for n := start; n <= end; n++ {
		marker := ' '
		if n == line {
			marker = '>'
		}
		text := truncate(strings.TrimRight(lines[n-1], " \t"), MaxLineLength)
		fmt.Fprintf(&b, "%c%*d: %s", marker, width, n, m.Highlight(text))
		if n < end {
			b.WriteByte('\n')
		}
	}
	return Snippet{Line: line, Start: start, End: end, Text: b.String()}
}

// Lines splits content into lines without their terminators
func Lines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Range returns lines start through end (1-based, inclusive) of content,
// clamped to the document
func Range(content string, start, end int) string {
	lines := Lines(content)
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
