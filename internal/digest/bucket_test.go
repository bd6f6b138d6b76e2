package digest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketForMonthly(t *testing.T) {
	instant := time.Date(2025, time.January, 15, 10, 30, 0, 0, time.UTC)

	b := BucketFor(instant, BucketMonthly)
	assert.Equal(t, Bucket{Year: 2025, Number: 1}, b)
	assert.Equal(t, "2025-01", b.Key())
	assert.Equal(t, "2025-01.md", b.Filename())
	assert.Equal(t, "January 2025", b.Label(BucketMonthly))
}

func TestBucketForWeekly(t *testing.T) {
	// 2024-12-30 belongs to ISO week 1 of 2025.
	instant := time.Date(2024, time.December, 30, 0, 0, 0, 0, time.UTC)

	b := BucketFor(instant, BucketWeekly)
	assert.Equal(t, Bucket{Year: 2025, Number: 1}, b)
	assert.Equal(t, "2025-01.md", b.Filename())
	assert.Equal(t, "Week 01, 2025", b.Label(BucketWeekly))
}

func TestBucketKeyOrderingMatchesTime(t *testing.T) {
	earlier := BucketFor(time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC), BucketMonthly)
	later := BucketFor(time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), BucketMonthly)

	assert.Less(t, earlier.Filename(), later.Filename())
}

func TestParseFilename(t *testing.T) {
	b, ok := ParseFilename("2025-03.md")
	require.True(t, ok)
	assert.Equal(t, Bucket{Year: 2025, Number: 3}, b)

	for _, name := range []string{"index.md", "2025-3.md", "2025-03.markdown", "notes-2025-03.md", "manifest.json"} {
		_, ok := ParseFilename(name)
		assert.False(t, ok, "expected %q to be rejected", name)
	}
}

func TestParseBucketScheme(t *testing.T) {
	scheme, err := ParseBucketScheme("")
	require.NoError(t, err)
	assert.Equal(t, BucketMonthly, scheme)

	scheme, err = ParseBucketScheme("week")
	require.NoError(t, err)
	assert.Equal(t, BucketWeekly, scheme)

	_, err = ParseBucketScheme("fortnight")
	assert.Error(t, err)
}
