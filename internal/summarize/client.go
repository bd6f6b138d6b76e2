// Package summarize turns merge records into natural-language summaries via
// an OpenAI-compatible chat-completions API.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/mergelog/mergelogctl/internal/digest"
)

const (
	defaultBaseURL = "https://api.openai.com/v1/chat/completions"
	defaultModel   = "gpt-4o-mini"
	maxRetries     = 3
	initialDelay   = 1 * time.Second
)

// Client calls a chat-completions endpoint to summarize merge records.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	baseURL    string
	model      string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewClient constructs a summarization client. Empty baseURL and model fall
// back to the OpenAI defaults.
func NewClient(logger *slog.Logger, apiKey, baseURL, model string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
	}
}

// Summarize requests a summary for one merge record. Rate-limit and server
// errors are retried with exponential backoff; other failures surface to
// the caller, which converts them into a placeholder summary.
func (c *Client) Summarize(ctx context.Context, rec digest.MergeRecord) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("summarization API key is not set")
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(rec)},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode summarization request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * initialDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("build summarization request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("summarization request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read summarization response: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			var apiErr chatError
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
				lastErr = fmt.Errorf("summarization api error (%d): %s", resp.StatusCode, apiErr.Error.Message)
			} else {
				lastErr = fmt.Errorf("summarization api error (%d)", resp.StatusCode)
			}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return "", lastErr
		}

		var parsed chatResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return "", fmt.Errorf("decode summarization response: %w", err)
		}
		if len(parsed.Choices) == 0 {
			return "", fmt.Errorf("summarization response has no choices")
		}

		summary := strings.TrimSpace(parsed.Choices[0].Message.Content)
		if summary == "" {
			return "", fmt.Errorf("summarization response is empty")
		}
		return summary, nil
	}

	return "", fmt.Errorf("summarization failed after %d attempts: %w", maxRetries, lastErr)
}

// Placeholder produces the visible degraded-summary text stored when
// summarization fails. Records are never dropped for a failed summary.
func Placeholder(number int, err error) string {
	return fmt.Sprintf("_Summary unavailable for #%d: %v_", number, err)
}
