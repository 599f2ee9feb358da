package notion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"

	"revise/logger"
)

// Block is a raw Notion block object. Converters emit these and the client
// forwards them verbatim.
type Block = map[string]any

// Page is the subset of a Notion page object the app reads.
type Page struct {
	ID         string         `json:"id"`
	URL        string         `json:"url"`
	Properties map[string]any `json:"properties"`
}

// QueryResult is one page of a database query.
type QueryResult struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// BlockList is one page of block children.
type BlockList struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor"`
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion api %d %s: %s", e.Status, e.Code, e.Message)
}

// ClientConfig holds connection settings.
type ClientConfig struct {
	BaseURL string
	Token   string
	Version string
}

// Client is a thin JSON client for the Notion REST API.
type Client struct {
	cfg  ClientConfig
	http *http.Client
	log  *logger.Logger
}

// NewClient builds a client. httpClient carries the retry policy.
func NewClient(cfg ClientConfig, httpClient *http.Client, log *logger.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("NOTION_TOKEN is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.notion.com"
	}
	if cfg.Version == "" {
		cfg.Version = "2022-06-28"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, http: httpClient, log: log.With("component", "notion")}, nil
}

// CreatePage creates a page under a database with properties and children.
func (c *Client) CreatePage(ctx context.Context, databaseID string, props map[string]any, children []Block) (*Page, error) {
	body := map[string]any{
		"parent":     map[string]any{"database_id": databaseID},
		"properties": props,
	}
	if len(children) > 0 {
		body["children"] = children
	}
	var page Page
	if err := c.do(ctx, http.MethodPost, "/v1/pages", body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AppendChildren appends at most 100 blocks to blockID.
func (c *Client) AppendChildren(ctx context.Context, blockID string, children []Block) error {
	return c.do(ctx, http.MethodPatch, "/v1/blocks/"+url.PathEscape(blockID)+"/children", map[string]any{"children": children}, nil)
}

// ListChildren returns one page of a block's children.
func (c *Client) ListChildren(ctx context.Context, blockID, cursor string) (*BlockList, error) {
	q := url.Values{"page_size": {"100"}}
	if cursor != "" {
		q.Set("start_cursor", cursor)
	}
	var out BlockList
	if err := c.do(ctx, http.MethodGet, "/v1/blocks/"+url.PathEscape(blockID)+"/children?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetrievePage reads a page object.
func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodGet, "/v1/pages/"+url.PathEscape(pageID), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdatePageProperties patches the given properties only.
func (c *Client) UpdatePageProperties(ctx context.Context, pageID string, props map[string]any) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodPatch, "/v1/pages/"+url.PathEscape(pageID), map[string]any{"properties": props}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// QueryDatabase runs one page of a filtered query.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, filter map[string]any, cursor string) (*QueryResult, error) {
	body := map[string]any{}
	if filter != nil {
		body["filter"] = filter
	}
	if cursor != "" {
		body["start_cursor"] = cursor
	}
	var out QueryResult
	if err := c.do(ctx, http.MethodPost, "/v1/databases/"+url.PathEscape(databaseID)+"/query", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Notion-Version", c.cfg.Version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jerr := sonic.Unmarshal(data, apiErr); jerr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		apiErr.Status = resp.StatusCode
		c.log.Warn("notion request failed", "method", method, "path", path, "status", resp.StatusCode, "code", apiErr.Code)
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
