// Package pipeline sequences one digest run end to end: fetch merged pull
// requests, summarize the new ones, merge them into their partitions and
// re-derive the manifest, data store and feed.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mergelog/mergelogctl/internal/config"
	"github.com/mergelog/mergelogctl/internal/digest"
	"github.com/mergelog/mergelogctl/internal/feed"
	"github.com/mergelog/mergelogctl/internal/summarize"
)

// Fetcher supplies merged pull requests from the source repository.
type Fetcher interface {
	ListMergedSince(ctx context.Context, since time.Time) ([]digest.MergeRecord, error)
	FetchDetail(ctx context.Context, number int) (digest.MergeRecord, error)
}

// Summarizer produces free-text summary content for one merge record.
type Summarizer interface {
	Summarize(ctx context.Context, rec digest.MergeRecord) (string, error)
}

// Pipeline wires the digest components together for a single sequential run.
type Pipeline struct {
	cfg        *config.Config
	fetcher    Fetcher
	summarizer Summarizer
	store      *digest.Store
	index      *digest.IndexBuilder
	extractor  *digest.Extractor
	feed       *feed.Renderer
	logger     *slog.Logger
	now        func() time.Time
	delay      time.Duration
}

// New constructs a pipeline with its fetch and summarization collaborators.
func New(cfg *config.Config, fetcher Fetcher, summarizer Summarizer, logger *slog.Logger) (*Pipeline, error) {
	p, err := NewDeriver(cfg, logger)
	if err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, fmt.Errorf("pipeline requires a fetcher")
	}
	if summarizer == nil {
		return nil, fmt.Errorf("pipeline requires a summarizer")
	}
	p.fetcher = fetcher
	p.summarizer = summarizer
	return p, nil
}

// NewDeriver constructs a pipeline that can only re-derive artifacts from
// the partition files on disk; Run is unavailable without collaborators.
func NewDeriver(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline config is nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	scheme := cfg.BucketScheme()

	store, err := digest.NewStore(cfg.Paths.DocsDir, scheme, logger)
	if err != nil {
		return nil, err
	}
	index, err := digest.NewIndexBuilder(cfg.Paths.DocsDir, scheme, cfg.Paths.Manifest, cfg.Paths.LandingPage, cfg.Digest.URLPrefix, logger)
	if err != nil {
		return nil, err
	}
	extractor, err := digest.NewExtractor(cfg.Paths.DocsDir, cfg.Paths.LandingPage, cfg.Paths.DataStore, logger)
	if err != nil {
		return nil, err
	}
	renderer, err := feed.NewRenderer(cfg.Paths.DataStore, cfg.Paths.Feed, cfg.Site.BaseURL, cfg.Site.Title, cfg.Site.Description, logger)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:       cfg,
		store:     store,
		index:     index,
		extractor: extractor,
		feed:      renderer,
		logger:    logger,
		now:       time.Now,
		delay:     cfg.SummaryDelay(),
	}, nil
}

// Plan lists the merged pull requests a run would process: merged within
// the window and not yet present in their partition file. Nothing is
// written.
func (p *Pipeline) Plan(ctx context.Context) ([]digest.MergeRecord, error) {
	if p.fetcher == nil {
		return nil, fmt.Errorf("pipeline has no fetcher")
	}

	since := p.now().UTC().Add(-p.cfg.Window())
	records, err := p.fetcher.ListMergedSince(ctx, since)
	if err != nil {
		return nil, err
	}

	known := make(map[digest.Bucket]map[int]struct{})
	var out []digest.MergeRecord
	for _, rec := range records {
		if rec.MergedAt == nil {
			continue
		}
		b := digest.BucketFor(rec.MergedAt.UTC(), p.cfg.BucketScheme())
		ids, ok := known[b]
		if !ok {
			ids, err = p.store.ExistingIDs(b)
			if err != nil {
				return nil, err
			}
			known[b] = ids
		}
		if _, seen := ids[rec.Number]; seen {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Run executes the full pipeline once. Fetch and summarization failures are
// logged and degrade the result instead of aborting; only the feed step's
// missing-input condition is fatal.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.fetcher == nil || p.summarizer == nil {
		return fmt.Errorf("pipeline is missing collaborators")
	}

	since := p.now().UTC().Add(-p.cfg.Window())
	p.logger.Info("fetching merged pull requests", "repo", p.cfg.Repo, "since", since)

	records, err := p.fetcher.ListMergedSince(ctx, since)
	if err != nil {
		// Transient fetch failures leave an empty candidate set; the run
		// still re-derives all artifacts from what is on disk.
		p.logger.Error("listing merged pull requests failed, continuing with empty set", "error", err)
		records = nil
	}

	known := make(map[digest.Bucket]map[int]struct{})
	blocks := make(map[digest.Bucket][]string)
	var bucketOrder []digest.Bucket
	processed := 0

	for _, rec := range records {
		if rec.MergedAt == nil {
			continue
		}
		b := digest.BucketFor(rec.MergedAt.UTC(), p.cfg.BucketScheme())

		ids, ok := known[b]
		if !ok {
			ids, err = p.store.ExistingIDs(b)
			if err != nil {
				return err
			}
			known[b] = ids
		}
		if _, seen := ids[rec.Number]; seen {
			p.logger.Debug("skipping already stored pull request", "number", rec.Number, "bucket", b.Key())
			continue
		}

		if processed > 0 {
			if err := sleepCtx(ctx, p.delay); err != nil {
				return err
			}
		}
		processed++

		detail, err := p.fetcher.FetchDetail(ctx, rec.Number)
		if err != nil {
			p.logger.Warn("detail fetch failed, using listing data", "number", rec.Number, "error", err)
			detail = rec
		}

		summary, err := p.summarizer.Summarize(ctx, detail)
		if err != nil {
			p.logger.Warn("summarization failed, storing placeholder", "number", rec.Number, "error", err)
			summary = summarize.Placeholder(rec.Number, err)
		}

		if _, ok := blocks[b]; !ok {
			bucketOrder = append(bucketOrder, b)
		}
		blocks[b] = append(blocks[b], digest.RenderEntry(detail, summary))
		ids[rec.Number] = struct{}{}

		p.logger.Info("prepared digest entry", "number", rec.Number, "bucket", b.Key())
	}

	for _, b := range bucketOrder {
		if err := p.store.Merge(b, blocks[b]); err != nil {
			return err
		}
	}

	return p.Rebuild()
}

// Rebuild re-derives the manifest, data store and feed from the partition
// files currently on disk. It performs no network calls.
func (p *Pipeline) Rebuild() error {
	entries, err := p.index.RebuildIndex()
	if err != nil {
		return err
	}
	if err := p.index.UpdateLatestPointer(entries); err != nil {
		return err
	}
	if _, err := p.extractor.Run(); err != nil {
		return err
	}
	return p.feed.Render()
}

// sleepCtx pauses for the given duration or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
