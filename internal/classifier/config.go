package classifier

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfigFile is the optional per-project override file
const ProjectConfigFile = ".codeindex.yaml"

// DefaultMaxFileSize is the size ceiling above which files are not parsed
const DefaultMaxFileSize = 1024 * 1024

// IgnoreConfig controls which paths are indexed
type IgnoreConfig struct {
	IgnoreDirs   []string `yaml:"ignore_dirs"`  // Directory names skipped anywhere in the tree
	IgnoreFiles  []string `yaml:"ignore_files"` // File name globs ("*.pyc") or exact names
	Patterns     []string `yaml:"patterns"`     // Extra .gitignore-style patterns
	MaxFileSize  int64    `yaml:"max_file_size"`
	UseGitignore bool     `yaml:"use_gitignore"`
}

// DefaultIgnoreConfig returns the built-in ignore rules
func DefaultIgnoreConfig() IgnoreConfig {
	return IgnoreConfig{
		IgnoreDirs: []string{
			// VCS
			".git", ".hg", ".svn", "CVS", "SCCS", ".bzr", "_darcs", ".repo",
			// Dependencies and build output
			"node_modules", "vendor", "target", "build", "dist", "out", "bin", "obj",
			"Debug", "Release",
			// Caches
			"__pycache__", ".pytest_cache", ".coverage", ".nyc_output", "coverage",
			// Editors
			".idea", ".vscode", ".vs",
		},
		IgnoreFiles: []string{
			"*.class", "*.jar", "*.war", "*.ear",
			"*.zip", "*.tar", "*.gz", "*.bz2", "*.7z", "*.rar",
			"*.exe", "*.dll", "*.so", "*.dylib", "*.a", "*.lib", "*.o", "*.obj",
			"*.pyc", "*.pyo", "*.pyd", "*.whl", "*.egg",
			"*.log", "*.tmp", "*.temp", "*.cache", "*.lock",
			"Cargo.lock", "package-lock.json", "yarn.lock",
		},
		MaxFileSize:  DefaultMaxFileSize,
		UseGitignore: true,
	}
}

// projectOverrides mirrors the YAML file; absent keys leave defaults alone
type projectOverrides struct {
	IgnoreDirs   []string `yaml:"ignore_dirs"`
	IgnoreFiles  []string `yaml:"ignore_files"`
	Patterns     []string `yaml:"patterns"`
	MaxFileSize  *int64   `yaml:"max_file_size"`
	UseGitignore *bool    `yaml:"use_gitignore"`
}

// LoadProjectConfig merges the project's .codeindex.yaml, if any, into base.
// Lists are appended, scalars replace.
func LoadProjectConfig(root string, base IgnoreConfig) (IgnoreConfig, error) {
	data, err := os.ReadFile(filepath.Join(root, ProjectConfigFile))
	if errors.Is(err, fs.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return base, fmt.Errorf("failed to read %s: %w", ProjectConfigFile, err)
	}

	var over projectOverrides
	if err := yaml.Unmarshal(data, &over); err != nil {
		return base, fmt.Errorf("failed to parse %s: %w", ProjectConfigFile, err)
	}

	cfg := base
	cfg.IgnoreDirs = append(append([]string(nil), base.IgnoreDirs...), over.IgnoreDirs...)
	cfg.IgnoreFiles = append(append([]string(nil), base.IgnoreFiles...), over.IgnoreFiles...)
	cfg.Patterns = append(append([]string(nil), base.Patterns...), over.Patterns...)
	if over.MaxFileSize != nil {
		cfg.MaxFileSize = *over.MaxFileSize
	}
	if over.UseGitignore != nil {
		cfg.UseGitignore = *over.UseGitignore
	}
	return cfg, nil
}
