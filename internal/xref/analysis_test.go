package xref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_ThreeCycle(t *testing.T) {
	g := graphWith("a", "b", "c")
	link(g, "a", "b", "b", "c", "c", "a")

	analysis := g.Analyze()
	require.Len(t, analysis.Cycles, 1)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, analysis.Cycles[0])

	// Every node has an incoming edge, so the cycle is a single layer
	require.Len(t, analysis.Layers, 1)
	assert.Equal(t, []string{"a", "b", "c"}, analysis.Layers[0])
	assert.Equal(t, 3, analysis.TotalEdges)
}

func TestAnalyze_DAGLayers(t *testing.T) {
	g := graphWith("top", "mid", "base", "other")
	link(g, "top", "mid", "mid", "base", "other", "base")

	analysis := g.Analyze()
	assert.Empty(t, analysis.Cycles)
	assert.Equal(t, [][]string{{"other", "top"}, {"mid"}, {"base"}}, analysis.Layers)
}

func TestAnalyze_CycleBelowEntryPoint(t *testing.T) {
	g := graphWith("main", "x", "y")
	link(g, "main", "x", "x", "y", "y", "x")

	analysis := g.Analyze()
	require.Len(t, analysis.Cycles, 1)
	assert.Equal(t, []string{"x", "y"}, analysis.Cycles[0])
	assert.Equal(t, [][]string{{"main"}, {"x", "y"}}, analysis.Layers)
}

func TestAnalyze_Coupling(t *testing.T) {
	g := graphWith("core", "a", "b", "c", "util", "lonely")
	link(g, "a", "core", "b", "core", "c", "core", "core", "util")

	c := g.Analyze().Coupling
	assert.Equal(t, Coupling{Afferent: 3, Efferent: 1, Instability: 0.25}, c["core"])
	assert.Equal(t, Coupling{Afferent: 1, Efferent: 0, Instability: 0}, c["util"])
	assert.Equal(t, Coupling{Afferent: 0, Efferent: 1, Instability: 1}, c["a"])
	assert.Equal(t, Coupling{}, c["lonely"])
}

func TestAnalyze_EmptyGraph(t *testing.T) {
	analysis := NewSymbolGraph().Analyze()
	assert.Zero(t, analysis.TotalNodes)
	assert.Empty(t, analysis.Cycles)
	assert.Empty(t, analysis.Layers)
}
