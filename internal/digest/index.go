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
	"regexp"
	"sort"
	"strings"
)

// latestLinkPattern locates the "Latest digest" link inside the landing
// page. Only the link target is rewritten; everything else stays verbatim.
var latestLinkPattern = regexp.MustCompile(`(\[Latest digest\]\()([^)]*)(\))`)

// IndexEntry describes one partition file in the generated manifest.
type IndexEntry struct {
	// Filename is the partition filename, e.g. "2025-01.md".
	Filename string `json:"filename"`
	// Year is the four-digit year parsed from the filename.
	Year string `json:"year"`
	// Bucket is the month or ISO-week number parsed from the filename.
	Bucket int `json:"bucket"`
	// Title is the human-readable bucket label.
	Title string `json:"title"`
	// URL is the site-relative URL of the partition page.
	URL string `json:"url"`
}

// IndexBuilder derives the partition manifest and keeps the landing page's
// latest-bucket pointer current. It reads partition files but never writes
// them.
type IndexBuilder struct {
	dir          string
	scheme       BucketScheme
	manifestPath string
	landingPage  string
	urlPrefix    string
	logger       *slog.Logger
}

// NewIndexBuilder constructs an index builder over the given partition
// directory. landingPage is a filename within dir; urlPrefix is the
// site-relative prefix partition URLs are built from.
func NewIndexBuilder(dir string, scheme BucketScheme, manifestPath, landingPage, urlPrefix string, logger *slog.Logger) (*IndexBuilder, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("partition directory is empty")
	}
	if strings.TrimSpace(manifestPath) == "" {
		return nil, fmt.Errorf("manifest path is empty")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &IndexBuilder{
		dir:          dir,
		scheme:       scheme,
		manifestPath: manifestPath,
		landingPage:  landingPage,
		urlPrefix:    strings.TrimSuffix(urlPrefix, "/"),
		logger:       logger,
	}, nil
}

// RebuildIndex enumerates the partition files on disk, writes the manifest
// as a full overwrite and returns the entries newest-bucket-first. The
// manifest is a pure function of the directory contents; nothing is
// incremental.
func (ib *IndexBuilder) RebuildIndex() ([]IndexEntry, error) {
	dirEntries, err := os.ReadDir(ib.dir)
	if errors.Is(err, fs.ErrNotExist) {
		dirEntries = nil
	} else if err != nil {
		return nil, fmt.Errorf("list partition directory %q: %w", ib.dir, err)
	}

	var names []string
	for _, de := range dirEntries {
		if de.IsDir() || de.Name() == ib.landingPage {
			continue
		}
		if _, ok := ParseFilename(de.Name()); !ok {
			continue
		}
		names = append(names, de.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	entries := make([]IndexEntry, 0, len(names))
	for _, name := range names {
		b, _ := ParseFilename(name)
		entries = append(entries, IndexEntry{
			Filename: name,
			Year:     fmt.Sprintf("%04d", b.Year),
			Bucket:   b.Number,
			Title:    b.Label(ib.scheme),
			URL:      ib.urlPrefix + "/" + b.Key(),
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(ib.manifestPath), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest directory: %w", err)
	}
	if err := os.WriteFile(ib.manifestPath, append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("write manifest %q: %w", ib.manifestPath, err)
	}

	ib.logger.Info("rebuilt partition manifest", "partitions", len(entries), "manifest", ib.manifestPath)
	return entries, nil
}

// UpdateLatestPointer rewrites the landing page's latest-digest link to the
// newest bucket's URL. A missing landing page or an absent link pattern is
// logged and skipped, never an error.
func (ib *IndexBuilder) UpdateLatestPointer(entries []IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	path := filepath.Join(ib.dir, ib.landingPage)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		ib.logger.Warn("landing page not found, skipping latest pointer update", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read landing page %q: %w", path, err)
	}

	latest := entries[0].URL
	content := string(raw)
	updated := latestLinkPattern.ReplaceAllString(content, "${1}"+latest+"${3}")
	if updated == content {
		if !latestLinkPattern.MatchString(content) {
			ib.logger.Debug("landing page has no latest-digest link, leaving unchanged", "path", path)
		}
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("write landing page %q: %w", path, err)
	}

	ib.logger.Info("updated latest digest pointer", "url", latest)
	return nil
}
