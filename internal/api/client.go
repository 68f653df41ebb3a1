// Package api is the HTTP client for the feed reader backend.
package api

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

	"github.com/matheuskafuri/feedview/internal/logging"
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: backend returned %d", e.Method, e.Path, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsStatus reports whether err is a rejected response.
func IsStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

type Client struct {
	baseURL string
	http    *http.Client
	log     logging.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithLogger(l logging.Logger) Option {
	return func(cl *Client) { cl.log = logging.OrNop(l) }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) FilterArticles(ctx context.Context, req FilterRequest) (*FilterResponse, error) {
	var resp FilterResponse
	if err := c.do(ctx, http.MethodPost, "/api/articles/filter", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	var resp Settings
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) TranslateArticle(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	var resp TranslateResponse
	if err := c.do(ctx, http.MethodPost, "/api/articles/translate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateSettings stores the given settings on the backend.
func (c *Client) UpdateSettings(ctx context.Context, s Settings) error {
	return c.do(ctx, http.MethodPut, "/api/settings", s, nil)
}

// MarkRead sets the read flag of an article.
func (c *Client) MarkRead(ctx context.Context, id int64, read bool) error {
	return c.do(ctx, http.MethodPost, "/api/articles/read", ReadRequest{ArticleID: id, Read: read}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("backend call", "method", method, "path", path, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			// empty body decodes to zero values
			return nil
		}
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
