package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"
)

const (
	DefaultBaseURL   = "https://2ch.hk"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "chanvault/0.1"
)

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client fetches catalogs, threads and attachment bytes from the imageboard API.
type Client struct {
	baseURL string
	client  *resty.Client
}

// NewClient creates a new API client.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Connection", "keep-alive")

	return &Client{baseURL: baseURL, client: client}
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.client.Close()
}

// ListThreadIDs returns the ids of the threads currently live on a board.
func (c *Client) ListThreadIDs(ctx context.Context, board string) ([]uint64, error) {
	var payload catalogPayload
	if err := c.getJSON(ctx, "/"+url.PathEscape(board)+"/catalog.json", &payload); err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(payload.Threads))
	for _, thread := range payload.Threads {
		ids = append(ids, thread.Num)
	}
	return ids, nil
}

// FetchThread returns the current posts of one thread.
func (c *Client) FetchThread(ctx context.Context, board string, threadID uint64) (*Thread, error) {
	var payload threadPayload
	path := "/" + url.PathEscape(board) + "/res/" + strconv.FormatUint(threadID, 10) + ".json"
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}
	if len(payload.Threads) == 0 {
		return nil, fmt.Errorf("thread /%s/%d: %w: no threads in response", board, threadID, ErrMalformedPayload)
	}
	return &Thread{Posts: payload.Threads[0].Posts}, nil
}

// FetchBytes downloads raw attachment content by server-relative path.
func (c *Client) FetchBytes(ctx context.Context, path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("attachment path is required")
	}
	return c.get(ctx, "/"+strings.TrimLeft(path, "/"))
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("GET %s: %w: %w", path, ErrMalformedPayload, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	res, err := c.client.R().
		WithContext(ctx).
		Get(path)
	if err != nil {
		return nil, err
	}
	if res.IsError() || res.StatusCode() < 200 || res.StatusCode() > 299 {
		return nil, &StatusError{Status: res.StatusCode(), URL: c.baseURL + path}
	}
	return res.Bytes(), nil
}
