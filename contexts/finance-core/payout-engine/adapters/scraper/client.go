package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipay/contexts/finance-core/payout-engine/ports"
)

var ErrFetchFailed = errors.New("video stats fetch failed")

// Client asks the scraper API for the public stats of one video URL.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type checkVideoRequest struct {
	URL string `json:"url"`
}

type checkVideoResponse struct {
	Success     bool   `json:"success"`
	Views       int64  `json:"views"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Uploader    string `json:"uploader"`
	Error       string `json:"error"`
}

func (c *Client) FetchStats(ctx context.Context, url string) (ports.VideoStats, error) {
	body, err := json.Marshal(checkVideoRequest{URL: strings.TrimSpace(url)})
	if err != nil {
		return ports.VideoStats{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/check-video", bytes.NewReader(body))
	if err != nil {
		return ports.VideoStats{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.VideoStats{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ports.VideoStats{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	var payload checkVideoResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ports.VideoStats{}, fmt.Errorf("%w: decode status %d: %w", ErrFetchFailed, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !payload.Success {
		return ports.VideoStats{}, fmt.Errorf("%w: status %d: %s", ErrFetchFailed, resp.StatusCode, payload.Error)
	}
	return ports.VideoStats{
		Views:       max(payload.Views, 0),
		Title:       payload.Title,
		Description: payload.Description,
		Uploader:    payload.Uploader,
	}, nil
}
