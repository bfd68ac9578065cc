package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cl "panelprofits/internal/cli"
)

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"underlying=Batman", "strike=150", "expiry=2024-06-20", "collection_id=7"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"underlying":    "Batman",
		"strike":        150.0,
		"expiry":        "2024-06-20",
		"collection_id": "7",
	}, got)

	_, err = parseParams([]string{"strike=lots"})
	assert.Error(t, err)
	_, err = parseParams([]string{"=x"})
	assert.Error(t, err)
	_, err = parseParams([]string{"name"})
	assert.Error(t, err)
}

func TestResolveAPIBase(t *testing.T) {
	cl.ProfileDir = t.TempDir()
	t.Cleanup(func() { cl.ProfileDir = "" })
	t.Setenv("PP_API_BASE_URL", "")

	assert.Equal(t, "http://localhost:8080", resolveAPIBase(""))

	require.NoError(t, cl.SaveProfile(cl.Profile{APIBaseURL: "http://saved:9000"}))
	assert.Equal(t, "http://saved:9000", resolveAPIBase(""))

	t.Setenv("PP_API_BASE_URL", "http://env:7000/")
	assert.Equal(t, "http://env:7000", resolveAPIBase(""))

	assert.Equal(t, "http://flag:1", resolveAPIBase(" http://flag:1/ "))
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"options", "price"},
		{"options", "iv"},
		{"markets", "cross"},
		{"vault", "fee"},
		{"symbols", "regenerate-all"},
		{"assets", "create"},
		{"npc", "cycle"},
		{"profile", "set"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
