package digest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderEntryShape(t *testing.T) {
	merged := time.Date(2025, time.January, 15, 14, 30, 0, 0, time.UTC)
	rec := MergeRecord{
		Number:   42,
		Title:    "Fix race in watcher startup",
		URL:      "https://github.com/acme/widgets/pull/42",
		MergedAt: &merged,
		Author:   &Author{Login: "alice", URL: "https://github.com/alice"},
	}

	got := RenderEntry(rec, "Fixes a startup race.")
	want := "## [#42](https://github.com/acme/widgets/pull/42) Fix race in watcher startup\n\n" +
		"**Merged**: 15/01/2025 | **Author**: [@alice](https://github.com/alice)\n\n" +
		"Fixes a startup race.\n\n" +
		"---\n"
	assert.Equal(t, want, got)
}

func TestRenderEntryMissingAuthorAndDate(t *testing.T) {
	rec := MergeRecord{
		Number: 7,
		Title:  "Update deps",
		URL:    "https://github.com/acme/widgets/pull/7",
	}

	got := RenderEntry(rec, "Routine updates.")
	assert.Contains(t, got, "**Merged**: unknown date")
	assert.Contains(t, got, "[@unknown]()")
}

func TestHeadingPatternAnchoredToLineStart(t *testing.T) {
	// An id-shaped fragment inside summary text must not count as a heading.
	content := "## [#100](https://example.com/pull/100) Real entry\n\n" +
		"Mentions that ## [#999](https://example.com/pull/999) shape inline.\n"

	matches := headingPattern.FindAllStringSubmatch(content, -1)
	assert.Len(t, matches, 1)
	assert.Equal(t, "100", matches[0][1])
}
