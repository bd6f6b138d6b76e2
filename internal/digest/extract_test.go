package digest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestExtractor returns an extractor over dir with a fixed clock.
func newTestExtractor(t *testing.T, dir string, at time.Time) *Extractor {
	t.Helper()

	e, err := NewExtractor(dir, "index.md", filepath.Join(dir, "merges.json"), nil)
	require.NoError(t, err)
	e.now = func() time.Time { return at }
	return e
}

func TestExtractAllRoundTrip(t *testing.T) {
	merged := time.Date(2025, time.January, 15, 14, 30, 0, 0, time.UTC)
	rec := MergeRecord{
		Number:   42,
		Title:    "Fix race in watcher startup",
		URL:      "https://github.com/acme/widgets/pull/42",
		MergedAt: &merged,
		Author:   &Author{Login: "alice", URL: "https://github.com/alice"},
	}
	summary := "Fixes a startup race.\n\n- guards the watcher\n- adds a regression test"

	s, err := NewStore(t.TempDir(), BucketMonthly, nil)
	require.NoError(t, err)
	require.NoError(t, s.Merge(BucketFor(merged, BucketMonthly), []string{RenderEntry(rec, summary)}))

	e := newTestExtractor(t, s.Dir(), merged)
	ds, err := e.ExtractAll()
	require.NoError(t, err)

	require.Len(t, ds.Items, 1)
	item := ds.Items[0]
	assert.Equal(t, 42, item.Number)
	assert.Equal(t, "Fix race in watcher startup", item.Title)
	assert.Equal(t, "https://github.com/acme/widgets/pull/42", item.URL)
	assert.Equal(t, summary, item.Summary)
	assert.Equal(t, "alice", item.Author)
	assert.Equal(t, "https://github.com/alice", item.AuthorURL)
	// Sub-day precision is lost by design.
	assert.Equal(t, "2025-01-15T00:00:00Z", item.MergedAt)
	assert.Equal(t, 1, ds.TotalCount)
}

func TestExtractAllSkipsMalformedBlocks(t *testing.T) {
	dir := t.TempDir()
	content := "## [#1](https://example.com/pull/1) Good entry\n\n" +
		"**Merged**: 10/01/2025 | **Author**: [@alice](https://github.com/alice)\n\n" +
		"Good summary.\n\n" +
		"---\n\n" +
		"## [#2](https://example.com/pull/2) Entry without metadata\n\n" +
		"Just prose, no metadata line.\n\n" +
		"---\n\n" +
		"## [#3](https://example.com/pull/3) Entry without separator\n\n" +
		"**Merged**: 11/01/2025 | **Author**: [@bob](https://github.com/bob)\n\n" +
		"Summary that never terminates.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-01.md"), []byte(content), 0o644))

	e := newTestExtractor(t, dir, time.Now())
	ds, err := e.ExtractAll()
	require.NoError(t, err)

	require.Len(t, ds.Items, 1)
	assert.Equal(t, 1, ds.Items[0].Number)
}

func TestExtractAllDateFallback(t *testing.T) {
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	content := "## [#5](https://example.com/pull/5) Odd date\n\n" +
		"**Merged**: someday soon | **Author**: [@alice](https://github.com/alice)\n\n" +
		"Summary.\n\n" +
		"---\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-06.md"), []byte(content), 0o644))

	e := newTestExtractor(t, dir, now)
	ds, err := e.ExtractAll()
	require.NoError(t, err)

	require.Len(t, ds.Items, 1)
	assert.Equal(t, now.Format(time.RFC3339), ds.Items[0].MergedAt)
}

func TestExtractAllImpossibleDateFallsBack(t *testing.T) {
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	// 31/02 would silently normalize to March 3rd; it must be treated as
	// unparseable instead.
	content := "## [#6](https://example.com/pull/6) Normalized date\n\n" +
		"**Merged**: 31/02/2025 | **Author**: [@alice](https://github.com/alice)\n\n" +
		"Summary.\n\n" +
		"---\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-02.md"), []byte(content), 0o644))

	e := newTestExtractor(t, dir, now)
	ds, err := e.ExtractAll()
	require.NoError(t, err)

	require.Len(t, ds.Items, 1)
	assert.Equal(t, now.Format(time.RFC3339), ds.Items[0].MergedAt)
}

func TestExtractAllRetentionCap(t *testing.T) {
	s, err := NewStore(t.TempDir(), BucketMonthly, nil)
	require.NoError(t, err)

	// 60 records, one per day from 2025-01-01, spanning three buckets.
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	byBucket := make(map[Bucket][]string)
	var order []Bucket
	for i := 0; i < 60; i++ {
		merged := base.AddDate(0, 0, i)
		b := BucketFor(merged, BucketMonthly)
		if _, ok := byBucket[b]; !ok {
			order = append(order, b)
		}
		byBucket[b] = append(byBucket[b], RenderEntry(MergeRecord{
			Number:   1000 + i,
			Title:    fmt.Sprintf("Change %d", i),
			URL:      fmt.Sprintf("https://example.com/pull/%d", 1000+i),
			MergedAt: &merged,
			Author:   &Author{Login: "alice", URL: "https://github.com/alice"},
		}, "A change."))
	}
	for _, b := range order {
		require.NoError(t, s.Merge(b, byBucket[b]))
	}

	e := newTestExtractor(t, s.Dir(), base.AddDate(0, 0, 61))
	ds, err := e.ExtractAll()
	require.NoError(t, err)

	require.Len(t, ds.Items, 50)
	assert.Equal(t, 50, ds.TotalCount)
	assert.Equal(t, 1059, ds.Items[0].Number, "newest record first")
	assert.Equal(t, 1010, ds.Items[49].Number, "the 10 oldest records fall off")
}

func TestRunWritesDataStore(t *testing.T) {
	merged := time.Date(2025, time.February, 3, 0, 0, 0, 0, time.UTC)
	s, err := NewStore(t.TempDir(), BucketMonthly, nil)
	require.NoError(t, err)
	require.NoError(t, s.Merge(BucketFor(merged, BucketMonthly), []string{RenderEntry(MergeRecord{
		Number:   9,
		Title:    "Change",
		URL:      "https://example.com/pull/9",
		MergedAt: &merged,
	}, "A change.")}))

	e := newTestExtractor(t, s.Dir(), merged)
	ds, err := e.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, ds.TotalCount)

	raw, err := os.ReadFile(filepath.Join(s.Dir(), "merges.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"number": 9`)
	assert.Contains(t, string(raw), `"mergedAt": "2025-02-03T00:00:00Z"`)
}
