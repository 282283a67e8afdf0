package indexer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codeindex/pkg/types"
)

const sampleGitConfig = `[core]
	repositoryformatversion = 0
	bare = false
[remote "upstream"]
	url = https://example.com/upstream/shop.git
[remote "origin"]
	url = git@example.com:team/shop.git
	fetch = +refs/heads/*:refs/remotes/origin/*
[branch "main"]
	remote = origin
`

func TestDetectRepository(t *testing.T) {
	t.Run("git", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, map[string]string{
			".git/HEAD":   "ref: refs/heads/feature/search\n",
			".git/config": sampleGitConfig,
		})

		info := detectRepository(root)
		assert.Equal(t, types.RepoGit, info.Kind)
		assert.Equal(t, "feature/search", info.Branch)
		assert.Equal(t, "git@example.com:team/shop.git", info.RemoteURL)
	})

	t.Run("git detached head", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, map[string]string{
			".git/HEAD": "3f1c2a9be0d4c7e61f0b5a2d9c8e7f6a5b4c3d2e\n",
		})

		info := detectRepository(root)
		assert.Equal(t, "3f1c2a9", info.Branch)
		assert.Empty(t, info.RemoteURL)
	})

	t.Run("git worktree", func(t *testing.T) {
		main := t.TempDir()
		writeTree(t, main, map[string]string{
			".git/config":                 sampleGitConfig,
			".git/worktrees/wt/HEAD":      "ref: refs/heads/hotfix\n",
			".git/worktrees/wt/commondir": "../..\n",
		})
		root := t.TempDir()
		gitDir := filepath.Join(main, ".git", "worktrees", "wt")
		require.NoError(t, os.WriteFile(filepath.Join(root, ".git"), []byte("gitdir: "+gitDir+"\n"), 0o644))

		info := detectRepository(root)
		assert.Equal(t, types.RepoGit, info.Kind)
		assert.Equal(t, "hotfix", info.Branch)
		assert.Equal(t, "git@example.com:team/shop.git", info.RemoteURL)
	})

	tests := []struct {
		marker string
		dir    bool
		want   types.RepositoryKind
	}{
		{".hg", true, types.RepoMercurial},
		{".svn", true, types.RepoSubversion},
		{".bzr", true, types.RepoBazaar},
		{".p4config", false, types.RepoPerforce},
	}
	for _, tt := range tests {
		t.Run(tt.marker, func(t *testing.T) {
			root := t.TempDir()
			path := filepath.Join(root, tt.marker)
			if tt.dir {
				require.NoError(t, os.Mkdir(path, 0o755))
			} else {
				require.NoError(t, os.WriteFile(path, []byte("P4PORT=ssl:perforce:1666\n"), 0o644))
			}

			info := detectRepository(root)
			assert.Equal(t, tt.want, info.Kind)
			assert.Empty(t, info.Branch)
		})
	}

	t.Run("plain directory", func(t *testing.T) {
		info := detectRepository(t.TempDir())
		assert.Equal(t, types.RepoFileSystem, info.Kind)
	})
}

func TestAddProject_RecordsGitMetadata(t *testing.T) {
	e, _ := newTestEngine(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".git/HEAD":   "ref: refs/heads/main\n",
		".git/config": sampleGitConfig,
		"main.go":     "package main\n\nfunc main() {}\n",
	})

	id, stats := addAndIndex(t, e, root)
	assert.Equal(t, 1, stats.Files, ".git is never walked")

	p, err := e.GetProject(id)
	require.NoError(t, err)
	assert.Equal(t, types.RepoGit, p.RepositoryKind)
	assert.Equal(t, "main", p.Branch)
	assert.Equal(t, "git@example.com:team/shop.git", p.RemoteURL)
}
