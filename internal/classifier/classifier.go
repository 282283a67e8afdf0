package classifier

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/dshills/codeindex/pkg/types"
)

// Skip reasons reported by Classify
const (
	ReasonHidden      = "hidden"
	ReasonIgnoredDir  = "ignored directory"
	ReasonIgnoredFile = "ignored file"
	ReasonBinary      = "binary extension"
	ReasonGitignore   = "gitignore"
)

// Classification is the verdict for one path
type Classification struct {
	Indexable bool
	Reason    string // Why the path was rejected, empty when indexable
	Language  types.Language
	FileType  types.FileType
}

// Classifier applies ignore rules and language detection
type Classifier struct {
	config     IgnoreConfig
	ignoreDirs map[string]struct{}
	matcher    *ignore.GitIgnore
}

// New creates a classifier from an ignore configuration.
// Extra gitignore patterns in the config are compiled; no file is read.
func New(config IgnoreConfig) *Classifier {
	c := &Classifier{
		config:     config,
		ignoreDirs: make(map[string]struct{}, len(config.IgnoreDirs)),
	}
	for _, d := range config.IgnoreDirs {
		c.ignoreDirs[d] = struct{}{}
	}
	if len(config.Patterns) > 0 {
		c.matcher = ignore.CompileIgnoreLines(config.Patterns...)
	}
	return c
}

// NewForRoot creates a classifier that also honors the root's .gitignore
// (when enabled in the config). A missing .gitignore is not an error.
func NewForRoot(root string, config IgnoreConfig) (*Classifier, error) {
	c := New(config)
	if !config.UseGitignore {
		return c, nil
	}

	matcher, err := ignore.CompileIgnoreFileAndLines(filepath.Join(root, ".gitignore"), config.Patterns...)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	c.matcher = matcher
	return c, nil
}

// Config returns the ignore configuration in use
func (c *Classifier) Config() IgnoreConfig {
	return c.config
}

// Classify decides whether relPath (relative to the project root, slash or
// OS separated) is indexed and detects its language and file type.
func (c *Classifier) Classify(relPath string) Classification {
	relPath = filepath.ToSlash(relPath)
	cl := Classification{
		Language: DetectLanguage(relPath),
		FileType: DetectFileType(relPath),
	}

	parts := strings.Split(relPath, "/")
	for i, part := range parts {
		if isHidden(part) {
			cl.Reason = ReasonHidden
			return cl
		}
		if i < len(parts)-1 {
			if _, ok := c.ignoreDirs[part]; ok {
				cl.Reason = ReasonIgnoredDir
				return cl
			}
		}
	}

	if c.isIgnoredFile(parts[len(parts)-1]) {
		cl.Reason = ReasonIgnoredFile
		return cl
	}
	if cl.FileType.IsBinaryLike() {
		cl.Reason = ReasonBinary
		return cl
	}
	if c.matcher != nil && c.matcher.MatchesPath(relPath) {
		cl.Reason = ReasonGitignore
		return cl
	}

	cl.Indexable = true
	return cl
}

// SkipDir reports whether the walk should not descend into the directory
func (c *Classifier) SkipDir(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	if relPath == "." || relPath == "" {
		return false
	}
	name := relPath[strings.LastIndex(relPath, "/")+1:]
	if isHidden(name) {
		return true
	}
	if _, ok := c.ignoreDirs[name]; ok {
		return true
	}
	return c.matcher != nil && c.matcher.MatchesPath(relPath+"/")
}

func (c *Classifier) isIgnoredFile(name string) bool {
	for _, pattern := range c.config.IgnoreFiles {
		if strings.ContainsAny(pattern, "*?[") {
			if ok, err := filepath.Match(pattern, name); err == nil && ok {
				return true
			}
			continue
		}
		if pattern == name {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return len(name) > 1 && name[0] == '.' && name != ".."
}
