package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with args and returns what it printed
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func runJSON(t *testing.T, v interface{}, args ...string) {
	t.Helper()
	out, err := runCLI(t, append(args, "--format", "json", "--no-ctags")...)
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"main.go": "package main\n\nfunc main() {\n\tprintln(total(2))\n}\n",
		"calc.go": "package main\n\n// total applies the checkout discount\nfunc total(n int) int {\n\tif n > 100 {\n\t\treturn total(n - 1)\n\t}\n\treturn n * 2\n}\n",
	}
	for rel, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644))
	}
	return root
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_EnvironmentOverrides(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "env", "index.db")
	t.Setenv(envDBPath, dbPath)
	t.Setenv(envWorkers, "3")
	t.Setenv(envLogLevel, "debug")

	var stats map[string]interface{}
	runJSON(t, &stats, "stats")
	assert.EqualValues(t, 0, stats["total_projects"])
	assert.FileExists(t, dbPath)

	t.Run("flags win over environment", func(t *testing.T) {
		flagPath := filepath.Join(t.TempDir(), "flag.db")
		runJSON(t, &stats, "stats", "--db", flagPath)
		assert.FileExists(t, flagPath)
	})

	t.Run("invalid workers", func(t *testing.T) {
		t.Setenv(envWorkers, "many")
		_, err := runCLI(t, "stats", "--format", "json")
		assert.ErrorContains(t, err, envWorkers)
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := runCLI(t, "stats", "--format", "json", "--log-level", "loud")
		assert.Error(t, err)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := runCLI(t, "stats", "--format", "xml")
		assert.ErrorContains(t, err, "unsupported format")
	})
}

func TestEngineConfig(t *testing.T) {
	o := &options{workers: 5, noCtags: true}
	cfg := o.engineConfig()
	assert.Equal(t, 5, cfg.Workers)
	assert.False(t, cfg.Parser.FallbackToCtags)

	cfg = (&options{}).engineConfig()
	assert.Positive(t, cfg.Workers)
	assert.True(t, cfg.Parser.FallbackToCtags)
}

func TestCLI_ProjectLifecycle(t *testing.T) {
	db := filepath.Join(t.TempDir(), "index.db")
	root := writeProject(t)

	var added struct {
		Project struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Indexed bool   `json:"indexed"`
		} `json:"project"`
		Stats struct {
			Files        int `json:"files"`
			FilesIndexed int `json:"files_indexed"`
		} `json:"stats"`
	}
	runJSON(t, &added, "add", root, "--name", "calc", "--index", "--db", db)
	require.NotEmpty(t, added.Project.ID)
	assert.Equal(t, "calc", added.Project.Name)
	assert.Equal(t, 2, added.Stats.Files)
	assert.Equal(t, 2, added.Stats.FilesIndexed)

	var projects []map[string]interface{}
	runJSON(t, &projects, "projects", "--db", db)
	require.Len(t, projects, 1)
	assert.Equal(t, true, projects[0]["indexed"])

	t.Run("search by text", func(t *testing.T) {
		var resp struct {
			TotalResults int `json:"TotalResults"`
			Hits         []struct {
				Path    string `json:"path"`
				Line    int    `json:"line"`
				Snippet string `json:"snippet"`
			} `json:"Hits"`
		}
		runJSON(t, &resp, "search", "checkout", "--project", "calc", "--db", db)
		require.Equal(t, 1, resp.TotalResults)
		assert.Equal(t, "calc.go", resp.Hits[0].Path)
		assert.Equal(t, 3, resp.Hits[0].Line)
		assert.Contains(t, resp.Hits[0].Snippet, "**checkout**")
	})

	t.Run("search symbols by kind", func(t *testing.T) {
		var resp struct {
			TotalResults int `json:"TotalResults"`
		}
		runJSON(t, &resp, "search", "--kind", "function", "--project", root, "--db", db)
		assert.Equal(t, 2, resp.TotalResults)
	})

	t.Run("search references", func(t *testing.T) {
		var resp struct {
			References []struct {
				Path      string `json:"path"`
				Reference struct {
					Location struct {
						Start struct {
							Line int `json:"line"`
						} `json:"start"`
					} `json:"location"`
				} `json:"reference"`
			} `json:"References"`
		}
		runJSON(t, &resp, "search", "total", "--references", "--project", "calc", "--db", db)
		require.NotEmpty(t, resp.References)
		var lines []int
		for _, r := range resp.References {
			assert.Equal(t, "calc.go", r.Path)
			lines = append(lines, r.Reference.Location.Start.Line)
		}
		assert.Contains(t, lines, 6)

		_, err := runCLI(t, "search", "total", "--references", "--symbols", "--db", db, "--format", "json")
		assert.Error(t, err)
		_, err = runCLI(t, "search", "total", "--ref-kind", "mention", "--db", db, "--format", "json")
		assert.ErrorContains(t, err, "unknown reference kind")
	})

	t.Run("incremental rerun", func(t *testing.T) {
		var stats struct {
			FilesIndexed   int `json:"files_indexed"`
			FilesUnchanged int `json:"files_unchanged"`
		}
		runJSON(t, &stats, "index", added.Project.ID, "--db", db)
		assert.Equal(t, 0, stats.FilesIndexed)
		assert.Equal(t, 2, stats.FilesUnchanged)
	})

	t.Run("graph", func(t *testing.T) {
		var reports []struct {
			Symbol struct {
				Name string `json:"name"`
			} `json:"symbol"`
			Dependents []struct {
				Kind string `json:"kind"`
			} `json:"dependents"`
		}
		runJSON(t, &reports, "graph", "calc", "--symbol", "total", "--db", db)
		require.Len(t, reports, 1)
		assert.Equal(t, "total", reports[0].Symbol.Name)
		kinds := make([]string, 0, len(reports[0].Dependents))
		for _, d := range reports[0].Dependents {
			kinds = append(kinds, d.Kind)
		}
		assert.Contains(t, kinds, "calls")
	})

	t.Run("unknown project", func(t *testing.T) {
		_, err := runCLI(t, "index", "nope", "--db", db, "--format", "json")
		assert.ErrorContains(t, err, "project not found")
	})

	var removed map[string]interface{}
	runJSON(t, &removed, "remove", "calc", "--db", db)
	assert.Equal(t, true, removed["removed"])

	runJSON(t, &projects, "projects", "--db", db)
	assert.Empty(t, projects)
}

func TestCLI_HumanOutput(t *testing.T) {
	db := filepath.Join(t.TempDir(), "index.db")
	root := writeProject(t)

	out, err := runCLI(t, "add", root, "--index", "--db", db, "--format", "human", "--no-ctags")
	require.NoError(t, err)
	assert.Contains(t, out, "registered at "+root)
	assert.Contains(t, out, "symbols")

	out, err = runCLI(t, "search", "checkout", "--db", db, "--format", "human")
	require.NoError(t, err)
	assert.Contains(t, out, "calc.go:3")

	out, err = runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "codeindex "+version)
}
