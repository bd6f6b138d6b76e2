// Package githubapi provides a minimal GitHub REST client for listing and
// inspecting merged pull requests.
package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mergelog/mergelogctl/internal/digest"
)

const (
	defaultBaseURL = "https://api.github.com"
	perPage        = 100
	// maxListPages bounds the closed-PR listing walk; a trailing window of
	// a few days never needs more.
	maxListPages = 10
)

type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	token      string
	owner      string
	name       string
}

func NewClient(logger *slog.Logger, token, repo string) (*Client, error) {
	repo = strings.TrimSpace(repo)
	if repo == "" {
		return nil, fmt.Errorf("repository is empty")
	}
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return nil, fmt.Errorf("invalid repository slug %q, expected owner/repo", repo)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		baseURL:    defaultBaseURL,
		token:      token,
		owner:      parts[0],
		name:       parts[1],
	}, nil
}

// ListMergedSince returns pull requests merged after the given instant,
// walking the closed-PR listing newest-updated-first until it passes the
// window boundary.
func (c *Client) ListMergedSince(ctx context.Context, since time.Time) ([]digest.MergeRecord, error) {
	var out []digest.MergeRecord

	for page := 1; page <= maxListPages; page++ {
		path := fmt.Sprintf("/repos/%s/%s/pulls?state=closed&sort=updated&direction=desc&per_page=%d&page=%d",
			c.owner, c.name, perPage, page)

		var pulls []pullResponse
		if err := c.get(ctx, path, &pulls); err != nil {
			return nil, err
		}
		if len(pulls) == 0 {
			break
		}

		exhausted := false
		for _, p := range pulls {
			if p.UpdatedAt.Before(since) {
				exhausted = true
				break
			}
			if p.MergedAt == nil || p.MergedAt.Before(since) {
				continue
			}
			out = append(out, p.toRecord())
		}
		if exhausted || len(pulls) < perPage {
			break
		}
	}

	c.logger.Debug("listed merged pull requests", "repo", c.owner+"/"+c.name, "since", since, "count", len(out))
	return out, nil
}

// FetchDetail returns the full record for one pull request, including its
// description, change statistics and changed-file list.
func (c *Client) FetchDetail(ctx context.Context, number int) (digest.MergeRecord, error) {
	if number <= 0 {
		return digest.MergeRecord{}, fmt.Errorf("pull request number must be positive")
	}

	var pull pullResponse
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", c.owner, c.name, number)
	if err := c.get(ctx, path, &pull); err != nil {
		return digest.MergeRecord{}, err
	}
	rec := pull.toRecord()

	for page := 1; ; page++ {
		var files []fileResponse
		filesPath := fmt.Sprintf("/repos/%s/%s/pulls/%d/files?per_page=%d&page=%d",
			c.owner, c.name, number, perPage, page)
		if err := c.get(ctx, filesPath, &files); err != nil {
			return digest.MergeRecord{}, err
		}
		for _, f := range files {
			rec.Files = append(rec.Files, digest.ChangedFile{
				Path:      f.Filename,
				Additions: f.Additions,
				Deletions: f.Deletions,
			})
		}
		if len(files) < perPage {
			break
		}
	}

	return rec, nil
}

// get performs an authenticated GET against the REST API and decodes the
// JSON response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github request %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read github response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("github api %s: %s (status %d)", path, apiErr.Message, resp.StatusCode)
		}
		return fmt.Errorf("github api %s: status %d", path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode github response: %w", err)
	}
	return nil
}
