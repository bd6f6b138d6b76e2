package digest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// maxRetainedRecords caps how many flattened records the data store keeps.
const maxRetainedRecords = 50

// FlattenedRecord is the per-record shape of the flattened data store,
// recovered by parsing entry blocks back out of the partition files.
type FlattenedRecord struct {
	// Number is the change-request number.
	Number int `json:"number"`
	// Title is the change-request title.
	Title string `json:"title"`
	// URL is the canonical change-request URL.
	URL string `json:"url"`
	// MergedAt is the normalized ISO-8601 merge timestamp.
	MergedAt string `json:"mergedAt"`
	// Author is the author login without the "@" prefix.
	Author string `json:"author"`
	// AuthorURL is the author profile URL.
	AuthorURL string `json:"authorUrl"`
	// Summary is the full summary text of the entry block.
	Summary string `json:"summary"`
}

// DataStore is the flattened JSON artifact derived from all partition
// files. It is fully regenerated on every run, newest record first.
type DataStore struct {
	// LastUpdated is the ISO-8601 regeneration timestamp.
	LastUpdated string `json:"lastUpdated"`
	// TotalCount is the number of retained records.
	TotalCount int `json:"totalCount"`
	// Items holds the retained records sorted by merge time descending.
	Items []FlattenedRecord `json:"items"`
}

// Extractor re-parses partition files into the flattened data store. It is
// a read-only consumer of the partition directory.
type Extractor struct {
	dir         string
	landingPage string
	storePath   string
	logger      *slog.Logger
	now         func() time.Time
}

// NewExtractor constructs an extractor over the given partition directory
// writing the flattened store to storePath.
func NewExtractor(dir, landingPage, storePath string, logger *slog.Logger) (*Extractor, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("partition directory is empty")
	}
	if strings.TrimSpace(storePath) == "" {
		return nil, fmt.Errorf("data store path is empty")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extractor{
		dir:         dir,
		landingPage: landingPage,
		storePath:   storePath,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// ExtractAll parses every entry block from every partition file, sorts the
// combined records newest-first and truncates to the retention cap.
// Malformed blocks are skipped with a warning; they never fail the run.
func (e *Extractor) ExtractAll() (DataStore, error) {
	dirEntries, err := os.ReadDir(e.dir)
	if errors.Is(err, fs.ErrNotExist) {
		dirEntries = nil
	} else if err != nil {
		return DataStore{}, fmt.Errorf("list partition directory %q: %w", e.dir, err)
	}

	var names []string
	for _, de := range dirEntries {
		if de.IsDir() || de.Name() == e.landingPage {
			continue
		}
		if _, ok := ParseFilename(de.Name()); !ok {
			continue
		}
		names = append(names, de.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	type dated struct {
		rec      FlattenedRecord
		mergedAt time.Time
	}

	var all []dated
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(e.dir, name))
		if err != nil {
			return DataStore{}, fmt.Errorf("read partition %q: %w", name, err)
		}
		content := string(raw)

		matches := headingPattern.FindAllStringSubmatchIndex(content, -1)
		for i, m := range matches {
			end := len(content)
			if i+1 < len(matches) {
				end = matches[i+1][0]
			}
			slice := content[m[0]:end]

			number, err := strconv.Atoi(content[m[2]:m[3]])
			if err != nil {
				e.logger.Warn("entry heading has non-numeric id, skipping", "file", name)
				continue
			}
			url := content[m[4]:m[5]]
			title := content[m[6]:m[7]]

			meta := metadataPattern.FindStringSubmatchIndex(slice)
			if meta == nil {
				e.logger.Warn("entry has no metadata line, skipping", "file", name, "number", number)
				continue
			}
			dateText := slice[meta[2]:meta[3]]
			author := slice[meta[4]:meta[5]]
			authorURL := slice[meta[6]:meta[7]]

			after := slice[meta[1]:]
			sep := separatorPattern.FindStringIndex(after)
			if sep == nil {
				e.logger.Warn("entry has no closing separator, skipping", "file", name, "number", number)
				continue
			}
			summary := strings.TrimSpace(after[:sep[0]])

			mergedAt, ok := parseEntryDate(dateText)
			if !ok {
				e.logger.Warn("entry date not parseable, falling back to current time", "file", name, "number", number, "date", dateText)
				mergedAt = e.now().UTC()
			}

			all = append(all, dated{
				rec: FlattenedRecord{
					Number:    number,
					Title:     title,
					URL:       url,
					MergedAt:  mergedAt.Format(time.RFC3339),
					Author:    author,
					AuthorURL: authorURL,
					Summary:   summary,
				},
				mergedAt: mergedAt,
			})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].mergedAt.After(all[j].mergedAt)
	})
	if len(all) > maxRetainedRecords {
		all = all[:maxRetainedRecords]
	}

	items := make([]FlattenedRecord, 0, len(all))
	for _, d := range all {
		items = append(items, d.rec)
	}

	return DataStore{
		LastUpdated: e.now().UTC().Format(time.RFC3339),
		TotalCount:  len(items),
		Items:       items,
	}, nil
}

// Run extracts all records and persists the data store as a full overwrite.
func (e *Extractor) Run() (DataStore, error) {
	ds, err := e.ExtractAll()
	if err != nil {
		return DataStore{}, err
	}

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return DataStore{}, fmt.Errorf("encode data store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(e.storePath), 0o755); err != nil {
		return DataStore{}, fmt.Errorf("create data store directory: %w", err)
	}
	if err := os.WriteFile(e.storePath, append(data, '\n'), 0o644); err != nil {
		return DataStore{}, fmt.Errorf("write data store %q: %w", e.storePath, err)
	}

	e.logger.Info("regenerated data store", "records", ds.TotalCount, "path", e.storePath)
	return ds, nil
}

// parseEntryDate converts the locale-formatted metadata date into an
// instant by positional parsing: day, month and year split on slashes or
// on spaces and colons.
func parseEntryDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	var parts []string
	if strings.Contains(text, "/") {
		parts = strings.Split(text, "/")
	} else {
		parts = strings.FieldsFunc(text, func(r rune) bool {
			return r == ' ' || r == ':'
		})
	}
	if len(parts) < 3 {
		return time.Time{}, false
	}

	day, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	month, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	year, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if day < 1 || day > 31 || month < 1 || month > 12 || year < 1970 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes impossible dates like 31/02 instead of failing;
	// a changed component means the date was never real.
	if t.Day() != day || t.Month() != time.Month(month) || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}
