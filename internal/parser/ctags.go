package parser

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/dshills/codeindex/pkg/types"
)

// ctagsCandidates are the executable names tried on PATH, in order
var ctagsCandidates = []string{"universal-ctags", "ctags"}

// lookupCtags returns the first ctags executable on PATH, or "" if none
func lookupCtags() string {
	for _, name := range ctagsCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// ctagsLanguages maps languages to the names ctags expects after
// --language-force
var ctagsLanguages = map[types.Language]string{
	types.LangRust:       "Rust",
	types.LangJavaScript: "JavaScript",
	types.LangTypeScript: "TypeScript",
	types.LangTSX:        "TypeScript",
	types.LangPython:     "Python",
	types.LangJava:       "Java",
	types.LangC:          "C",
	types.LangCPP:        "C++",
	types.LangGo:         "Go",
	types.LangHTML:       "HTML",
	types.LangCSS:        "CSS",
	types.LangJSON:       "JSON",
	types.LangXML:        "XML",
	types.LangYAML:       "Yaml",
	types.LangMarkdown:   "Markdown",
	types.LangShell:      "Sh",
	types.LangSQL:        "SQL",
	types.LangDockerfile: "Dockerfile",
	types.LangMakefile:   "Make",
	types.LangCMake:      "CMake",
}

func ctagsLanguage(lang types.Language) (string, bool) {
	name, ok := ctagsLanguages[lang]
	return name, ok
}

// ctagsKinds maps ctags kind names to symbol kinds; unknown kinds become
// variables
var ctagsKinds = map[string]types.SymbolKind{
	"function":    types.KindFunction,
	"func":        types.KindFunction,
	"procedure":   types.KindFunction,
	"subroutine":  types.KindFunction,
	"method":      types.KindMethod,
	"constructor": types.KindMethod,
	"destructor":  types.KindMethod,
	"class":       types.KindClass,
	"interface":   types.KindInterface,
	"trait":       types.KindInterface,
	"struct":      types.KindStruct,
	"union":       types.KindStruct,
	"enum":        types.KindEnum,
	"enumeration": types.KindEnum,
	"variable":    types.KindVariable,
	"var":         types.KindVariable,
	"local":       types.KindVariable,
	"externvar":   types.KindVariable,
	"field":       types.KindField,
	"member":      types.KindField,
	"property":    types.KindField,
	"attribute":   types.KindField,
	"enumerator":  types.KindConstant,
	"constant":    types.KindConstant,
	"const":       types.KindConstant,
	"macro":       types.KindMacro,
	"define":      types.KindMacro,
	"parameter":   types.KindParameter,
	"namespace":   types.KindNamespace,
	"module":      types.KindModule,
	"package":     types.KindModule,
	"typedef":     types.KindType,
	"type":        types.KindType,
	"alias":       types.KindType,
}

// ctagsTag is one line of ctags JSON output
type ctagsTag struct {
	Type      string `json:"_type"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Line      int    `json:"line"`
	End       int    `json:"end"`
	Scope     string `json:"scope"`
	Signature string `json:"signature"`
	Roles     string `json:"roles"`
}

// ctagsExtractor shells out to Universal Ctags. Supported languages are
// probed once, lazily.
type ctagsExtractor struct {
	path    string
	timeout time.Duration

	probeOnce sync.Once
	supported map[string]bool
}

func newCtagsExtractor(path string, timeout time.Duration) *ctagsExtractor {
	if timeout <= 0 {
		timeout = DefaultCtagsTimeout
	}
	return &ctagsExtractor{path: path, timeout: timeout}
}

// supports reports whether ctags is installed and knows the language
func (x *ctagsExtractor) supports(lang types.Language) bool {
	if x == nil || x.path == "" {
		return false
	}
	name, ok := ctagsLanguage(lang)
	if !ok {
		return false
	}
	x.probeOnce.Do(x.probe)
	return x.supported[name]
}

// probe records the enabled languages. Only Universal Ctags has JSON output,
// so any other ctags supports nothing.
func (x *ctagsExtractor) probe() {
	x.supported = make(map[string]bool)

	ctx, cancel := context.WithTimeout(context.Background(), x.timeout)
	defer cancel()

	version, err := exec.CommandContext(ctx, x.path, "--version").Output()
	if err != nil || !bytes.Contains(version, []byte("Universal Ctags")) {
		return
	}
	out, err := exec.CommandContext(ctx, x.path, "--list-languages").Output()
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(out), "\n") {
		// Disabled languages are listed with a "[disabled]" suffix
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, "[disabled]") {
			continue
		}
		x.supported[line] = true
	}
}

func (x *ctagsExtractor) extract(ctx context.Context, req extractRequest) (*extraction, error) {
	if x == nil || x.path == "" {
		return nil, errors.New("ctags is not installed")
	}
	lang, ok := ctagsLanguage(req.Language)
	if !ok {
		return nil, fmt.Errorf("ctags has no language for %s", req.Language)
	}

	tmp, err := os.CreateTemp("", "codeindex-ctags-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(req.Content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, x.path,
		"--output-format=json",
		"--fields=+n+S+Z+K+l+s+e",
		"--extras=+r",
		"--sort=no",
		"--language-force="+lang,
		"-f", "-",
		tmp.Name(),
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ctags failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return &extraction{Symbols: parseCtagsOutput(out, splitLines(req.Content))}, nil
}

// parseCtagsOutput converts ctags JSON lines into symbols. Malformed lines
// and non-definition roles are skipped.
func parseCtagsOutput(out []byte, lines []string) []types.Symbol {
	var symbols []types.Symbol
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var tag ctagsTag
		if err := json.Unmarshal(scanner.Bytes(), &tag); err != nil {
			continue
		}
		if tag.Type != "tag" || tag.Name == "" || tag.Line <= 0 {
			continue
		}
		if tag.Roles != "" && !strings.Contains(tag.Roles, "def") {
			continue
		}

		kind, ok := ctagsKinds[tag.Kind]
		if !ok {
			kind = types.KindVariable
		}

		line := ""
		if tag.Line <= len(lines) {
			line = lines[tag.Line-1]
		}
		col := max(strings.Index(line, tag.Name), 0)
		end := tag.End
		if end < tag.Line {
			end = tag.Line
		}

		symbols = append(symbols, types.Symbol{
			Name:      tag.Name,
			Kind:      kind,
			Start:     types.Position{Line: tag.Line, Column: col},
			End:       types.Position{Line: end, Column: 0},
			Signature: collapseSignature(line),
			Scope:     strings.ReplaceAll(tag.Scope, ".", "::"),
		})
	}
	return symbols
}
