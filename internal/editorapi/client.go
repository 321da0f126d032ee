package editorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pders01/typx/internal/config"
	"github.com/pders01/typx/internal/search"
	"github.com/pders01/typx/internal/validation"
)

const defaultTimeout = 30 * time.Second

var (
	// ErrUnexpectedFormat is returned when an endpoint that must answer
	// with a JSON array answers with anything else.
	ErrUnexpectedFormat = errors.New("unexpected response format")
	ErrNotFound         = errors.New("not found")
)

// HTTPError reports a non-2xx response.
type HTTPError struct {
	StatusCode int
	Endpoint   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %d (%s)", e.StatusCode, e.Endpoint)
}

// Client talks to the /editor endpoints of a TyporaX server.
type Client struct {
	base      *url.URL
	client    *http.Client
	userAgent string
	cookie    string
}

var _ search.Backend = (*Client)(nil)
var _ search.FolderLister = (*Client)(nil)

func NewClient(cfg *config.Config) (*Client, error) {
	normalized, err := validation.NormalizeServerURL(cfg.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("server.base_url: %w", err)
	}
	base, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	timeout := cfg.Server.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		base:      base,
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.Server.UserAgent,
		cookie:    cfg.Server.SessionCookie,
	}, nil
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.client = hc
	return c
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) get(ctx context.Context, path string, query url.Values, accept string) ([]byte, error) {
	endpoint := c.endpoint(path, query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", accept)
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Endpoint: path}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", path, err)
	}
	return body, nil
}

// getArray decodes a JSON array response into out.
func (c *Client) getArray(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.get(ctx, path, query, "application/json")
	if err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return fmt.Errorf("%s: %w", path, ErrUnexpectedFormat)
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrUnexpectedFormat, err)
	}
	return nil
}

// ListFiles returns the filenames of folder; the empty folder is the root.
func (c *Client) ListFiles(ctx context.Context, folder string) ([]string, error) {
	q := url.Values{}
	if folder != "" {
		q.Set("folder", folder)
	}
	var files []string
	if err := c.getArray(ctx, "/editor/files", q, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// ListFolders returns the folder names known to the server.
func (c *Client) ListFolders(ctx context.Context) ([]string, error) {
	var folders []string
	if err := c.getArray(ctx, "/editor/folders", nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// SearchContent runs a server-side content search for query.
func (c *Client) SearchContent(ctx context.Context, query string) ([]search.Hit, error) {
	var hits []search.Hit
	if err := c.getArray(ctx, "/editor/search", url.Values{"q": {query}}, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// Open returns the raw content of a file.
func (c *Client) Open(ctx context.Context, filename, folder string) (string, error) {
	q := url.Values{"filename": {filename}}
	if folder != "" {
		q.Set("folder", folder)
	}
	body, err := c.get(ctx, "/editor/open", q, "text/plain, */*")
	if err != nil {
		return "", err
	}
	return string(body), nil
}
