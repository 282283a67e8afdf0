package indexer

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/codeindex/pkg/types"
)

// repoInfo is what the root of a project reveals about its version control
type repoInfo struct {
	Kind      types.RepositoryKind
	Branch    string
	RemoteURL string
}

// Marker entries checked in order at the project root
var repoMarkers = []struct {
	name string
	kind types.RepositoryKind
}{
	{".git", types.RepoGit},
	{".hg", types.RepoMercurial},
	{".svn", types.RepoSubversion},
	{".bzr", types.RepoBazaar},
	{".p4config", types.RepoPerforce},
}

// detectRepository inspects root for version control markers. Missing or
// unreadable metadata only leaves fields empty.
func detectRepository(root string) repoInfo {
	for _, m := range repoMarkers {
		if _, err := os.Stat(filepath.Join(root, m.name)); err != nil {
			continue
		}
		info := repoInfo{Kind: m.kind}
		if m.kind == types.RepoGit {
			if gitDir, ok := resolveGitDir(root); ok {
				info.Branch = gitBranch(gitDir)
				info.RemoteURL = gitRemoteURL(gitDir, "origin")
			}
		}
		return info
	}
	return repoInfo{Kind: types.RepoFileSystem}
}

// resolveGitDir returns the git directory of root. Worktrees and submodules
// have a .git file pointing elsewhere.
func resolveGitDir(root string) (string, bool) {
	dotGit := filepath.Join(root, ".git")
	fi, err := os.Stat(dotGit)
	if err != nil {
		return "", false
	}
	if fi.IsDir() {
		return dotGit, true
	}

	data, err := os.ReadFile(dotGit)
	if err != nil {
		return "", false
	}
	line := strings.TrimSpace(string(data))
	target, ok := strings.CutPrefix(line, "gitdir:")
	if !ok {
		return "", false
	}
	target = strings.TrimSpace(target)
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	return target, true
}

// gitBranch reads HEAD. A detached head yields the abbreviated commit.
func gitBranch(gitDir string) string {
	data, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return ""
	}
	head := strings.TrimSpace(string(data))
	if ref, ok := strings.CutPrefix(head, "ref:"); ok {
		return strings.TrimPrefix(strings.TrimSpace(ref), "refs/heads/")
	}
	if len(head) > 7 {
		return head[:7]
	}
	return head
}

// gitRemoteURL finds the url of a remote in the repository config.
// Worktrees keep their config in the common directory.
func gitRemoteURL(gitDir, remote string) string {
	configPath := filepath.Join(gitDir, "config")
	if data, err := os.ReadFile(filepath.Join(gitDir, "commondir")); err == nil {
		common := strings.TrimSpace(string(data))
		if !filepath.IsAbs(common) {
			common = filepath.Join(gitDir, common)
		}
		configPath = filepath.Join(common, "config")
	}

	f, err := os.Open(configPath)
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	section := `[remote "` + remote + `"]`
	inSection := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		if line[0] == '[' {
			inSection = line == section
			continue
		}
		if !inSection {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if ok && strings.TrimSpace(key) == "url" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
