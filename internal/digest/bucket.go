// Package digest implements the incremental merge-digest document store:
// time-partitioned markdown files holding one rendered block per merged
// pull request, plus the manifest, flattened JSON store and entry grammar
// shared by every consumer of those files.
package digest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// BucketScheme selects how instants are grouped into partitions.
type BucketScheme string

const (
	// BucketMonthly groups records by calendar month.
	BucketMonthly BucketScheme = "month"
	// BucketWeekly groups records by ISO week.
	BucketWeekly BucketScheme = "week"
)

// ParseBucketScheme converts a config string into a BucketScheme.
func ParseBucketScheme(value string) (BucketScheme, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(BucketMonthly):
		return BucketMonthly, nil
	case string(BucketWeekly):
		return BucketWeekly, nil
	default:
		return "", fmt.Errorf("unsupported bucket scheme %q, expected month or week", value)
	}
}

// Bucket identifies one time partition of the digest.
type Bucket struct {
	// Year is the calendar year (ISO week-year for the weekly scheme).
	Year int
	// Number is the month (1-12) or ISO week (1-53) within Year.
	Number int
}

// BucketFor maps an instant to its partition under the given scheme.
func BucketFor(t time.Time, scheme BucketScheme) Bucket {
	if scheme == BucketWeekly {
		year, week := t.ISOWeek()
		return Bucket{Year: year, Number: week}
	}
	return Bucket{Year: t.Year(), Number: int(t.Month())}
}

// Key returns the stable bucket identifier, e.g. "2025-01".
// Zero-padding keeps lexicographic order equal to chronological order.
func (b Bucket) Key() string {
	return fmt.Sprintf("%04d-%02d", b.Year, b.Number)
}

// Filename returns the canonical partition filename for the bucket.
func (b Bucket) Filename() string {
	return b.Key() + ".md"
}

// Label returns the human-readable bucket name used in titles and the manifest.
func (b Bucket) Label(scheme BucketScheme) string {
	if scheme == BucketWeekly {
		return fmt.Sprintf("Week %02d, %d", b.Number, b.Year)
	}
	return fmt.Sprintf("%s %d", time.Month(b.Number).String(), b.Year)
}

// partitionFilePattern matches canonical partition filenames ("2025-01.md").
var partitionFilePattern = regexp.MustCompile(`^(\d{4})-(\d{2})\.md$`)

// ParseFilename recovers a Bucket from a partition filename.
// It reports false for anything that does not match the canonical shape,
// which is how landing and aggregator pages are kept out of the index.
func ParseFilename(name string) (Bucket, bool) {
	m := partitionFilePattern.FindStringSubmatch(name)
	if m == nil {
		return Bucket{}, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return Bucket{}, false
	}
	number, err := strconv.Atoi(m[2])
	if err != nil {
		return Bucket{}, false
	}
	return Bucket{Year: year, Number: number}, true
}
