package feed

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergelog/mergelogctl/internal/digest"
)

// newTestRenderer returns a renderer over temp store and feed paths.
func newTestRenderer(t *testing.T) (*Renderer, string, string) {
	t.Helper()

	dir := t.TempDir()
	storePath := filepath.Join(dir, "merges.json")
	feedPath := filepath.Join(dir, "merges.xml")

	r, err := NewRenderer(storePath, feedPath, "https://docs.example.com/merges", "Merge digest", "Recent merges.", nil)
	require.NoError(t, err)
	return r, storePath, feedPath
}

// writeStore persists a data store fixture for the renderer to consume.
func writeStore(t *testing.T, path string, ds digest.DataStore) {
	t.Helper()

	raw, err := json.Marshal(ds)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

func TestRenderMissingStoreIsFatal(t *testing.T) {
	r, _, feedPath := newTestRenderer(t)

	err := r.Render()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreMissing)

	_, statErr := os.Stat(feedPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRenderCorruptStoreIsParseError(t *testing.T) {
	r, storePath, _ := newTestRenderer(t)
	require.NoError(t, os.WriteFile(storePath, []byte("{not json"), 0o644))

	err := r.Render()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStoreMissing)
}

func TestRenderEmptyStoreSkipsSilently(t *testing.T) {
	r, storePath, feedPath := newTestRenderer(t)
	writeStore(t, storePath, digest.DataStore{
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
		TotalCount:  0,
		Items:       []digest.FlattenedRecord{},
	})

	require.NoError(t, r.Render())

	_, err := os.Stat(feedPath)
	assert.True(t, os.IsNotExist(err), "an empty store must not produce a feed file")
}

func TestRenderBuildsFeedItems(t *testing.T) {
	r, storePath, feedPath := newTestRenderer(t)
	writeStore(t, storePath, digest.DataStore{
		LastUpdated: "2025-01-20T08:00:00Z",
		TotalCount:  2,
		Items: []digest.FlattenedRecord{
			{
				Number:    42,
				Title:     "Fix race in watcher startup",
				URL:       "https://github.com/acme/widgets/pull/42",
				MergedAt:  "2025-01-15T00:00:00Z",
				Author:    "alice",
				AuthorURL: "https://github.com/alice",
				Summary:   "Fixes a startup race.",
			},
			{
				Number:    41,
				Title:     "Update deps",
				URL:       "https://github.com/acme/widgets/pull/41",
				MergedAt:  "2024-12-30T00:00:00Z",
				Author:    "bob",
				AuthorURL: "https://github.com/bob",
				Summary:   "Routine **dependency** updates.",
			},
		},
	})

	require.NoError(t, r.Render())

	raw, err := os.ReadFile(feedPath)
	require.NoError(t, err)
	content := string(raw)

	assert.Contains(t, content, "[#42] Fix race in watcher startup")
	assert.Contains(t, content, "https://docs.example.com/merges/2025-01#pr-42")
	assert.Contains(t, content, "https://docs.example.com/merges/2024-12#pr-41")
	// The item guid is the canonical source URL, stable across regenerations.
	assert.Contains(t, content, "https://github.com/acme/widgets/pull/42")
	assert.Contains(t, content, "&lt;strong&gt;dependency&lt;/strong&gt;")
}
