// Package catalog resolves song metadata, streaming URLs and video info
// for the four song sources.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotFound is returned when the upstream has no such song or video.
var ErrNotFound = errors.New("not found")

// ErrNotConfigured is returned by clients whose base URL or key is unset.
var ErrNotConfigured = errors.New("catalog source not configured")

// Page is one forward-only page of results.
type Page[T any] struct {
	Items       []T
	HasNextPage bool
	EndCursor   string
}

// CaptionLanguage is a human-authored caption track.
type CaptionLanguage struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// VideoInfo is the metadata shared by video-platform sources.
type VideoInfo struct {
	Author        string `json:"author"`
	ChannelID     string `json:"channelId"`
	LengthSeconds int    `json:"lengthSeconds"`
	Description   string `json:"description"`
	Title         string `json:"title"`
	ViewCount     int64  `json:"viewCount"`
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
	}
}

// doJSON executes req and decodes a 200 response body into out.
func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return doJSON(client, req, out)
}

// getBytes fetches a binary resource.
func getBytes(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}
