// Package feed renders the RSS feed from the flattened merge-digest data
// store.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/mergelog/mergelogctl/internal/digest"
)

// ErrStoreMissing indicates the backing data store file does not exist.
// Unlike every other missing input in the pipeline this one is fatal to the
// feed step: a feed without source data is meaningless.
var ErrStoreMissing = errors.New("merge data store not found")

// Renderer builds the syndication feed document from the data store.
type Renderer struct {
	storePath   string
	feedPath    string
	baseURL     string
	title       string
	description string
	logger      *slog.Logger
}

// NewRenderer constructs a feed renderer reading storePath and writing the
// feed document to feedPath. baseURL is the absolute site URL partition
// links are built from.
func NewRenderer(storePath, feedPath, baseURL, title, description string, logger *slog.Logger) (*Renderer, error) {
	if strings.TrimSpace(storePath) == "" {
		return nil, fmt.Errorf("data store path is empty")
	}
	if strings.TrimSpace(feedPath) == "" {
		return nil, fmt.Errorf("feed path is empty")
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("base URL is empty")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Renderer{
		storePath:   storePath,
		feedPath:    feedPath,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		title:       title,
		description: description,
		logger:      logger,
	}, nil
}

// Render reads the data store and writes the complete feed document as one
// full overwrite. A missing store returns ErrStoreMissing and a corrupt one
// a parse error; a store with zero records skips generation silently.
func (r *Renderer) Render() error {
	raw, err := os.ReadFile(r.storePath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrStoreMissing, r.storePath)
	}
	if err != nil {
		return fmt.Errorf("read data store %q: %w", r.storePath, err)
	}

	var ds digest.DataStore
	if err := json.Unmarshal(raw, &ds); err != nil {
		return fmt.Errorf("parse data store %q: %w", r.storePath, err)
	}

	if len(ds.Items) == 0 {
		r.logger.Info("data store has no records, skipping feed generation")
		return nil
	}

	updated, err := time.Parse(time.RFC3339, ds.LastUpdated)
	if err != nil {
		updated = time.Now().UTC()
	}

	f := &feeds.Feed{
		Title:       r.title,
		Link:        &feeds.Link{Href: r.baseURL},
		Description: r.description,
		Updated:     updated,
	}

	for _, item := range ds.Items {
		created, err := time.Parse(time.RFC3339, item.MergedAt)
		if err != nil {
			created = updated
		}

		// The partition anchor is the year-month prefix of the merge
		// timestamp, so feed links always land on a monthly page.
		segment := item.MergedAt
		if len(segment) > 7 {
			segment = segment[:7]
		}

		f.Items = append(f.Items, &feeds.Item{
			Title:       fmt.Sprintf("[#%d] %s", item.Number, item.Title),
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/%s#pr-%d", r.baseURL, segment, item.Number)},
			Id:          item.URL,
			Author:      &feeds.Author{Name: item.Author},
			Description: htmlFromMarkdown(item.Summary),
			Created:     created,
		})
	}

	rss, err := f.ToRss()
	if err != nil {
		return fmt.Errorf("render rss feed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.feedPath), 0o755); err != nil {
		return fmt.Errorf("create feed directory: %w", err)
	}
	if err := os.WriteFile(r.feedPath, []byte(rss), 0o644); err != nil {
		return fmt.Errorf("write feed %q: %w", r.feedPath, err)
	}

	r.logger.Info("rendered feed", "items", len(f.Items), "path", r.feedPath)
	return nil
}
