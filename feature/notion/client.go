package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"

	"calendar-sync/core/reconcile"

	"go.uber.org/zap"
)

// ErrUnknownWorkspace is returned when a database references a workspace
// without an integration token.
var ErrUnknownWorkspace = errors.New("workspace has no integration token")

// pageSize is the largest page the query endpoint accepts.
const pageSize = 100

// Page is a Notion page with its raw property values.
type Page struct {
	ID         string         `json:"id"`
	URL        string         `json:"url"`
	Properties map[string]any `json:"properties"`
}

// Property describes one property of a database schema.
type Property struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// DatabaseObject is the schema of a Notion database.
type DatabaseObject struct {
	ID         string              `json:"id"`
	Properties map[string]Property `json:"properties"`
}

// PropertyIDs returns the unescaped ids of the named properties.
func (o *DatabaseObject) PropertyIDs(names ...string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		prop, ok := o.Properties[name]
		if !ok {
			return nil, fmt.Errorf("property %q not found in database %s", name, o.ID)
		}
		id, err := url.PathUnescape(prop.ID)
		if err != nil {
			id = prop.ID
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Query is the body of a database query.
type Query struct {
	Filter      *Filter `json:"filter,omitempty"`
	Sorts       []Sort  `json:"sorts,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`

	// FilterProperties restricts the returned properties to these ids.
	FilterProperties []string `json:"-"`
}

// Filter is a single property filter.
type Filter struct {
	Property string         `json:"property"`
	Date     *DateCondition `json:"date,omitempty"`
}

// DateCondition filters on a date property.
type DateCondition struct {
	IsNotEmpty bool `json:"is_not_empty,omitempty"`
}

// Sort orders query results by a property.
type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

type queryResponse struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// Client is a Notion HTTP API client.
type Client struct {
	cfg    Config
	tokens map[string]string
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a client. A nil httpClient gets the configured timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout()}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		tokens: cfg.TokenMap(),
		http:   httpClient,
		logger: logger,
	}
}

// GetDatabase fetches the database object.
func (c *Client) GetDatabase(ctx context.Context, db Database) (*DatabaseObject, error) {
	var obj DatabaseObject
	if err := c.do(ctx, "notion.database", http.MethodGet, "databases/"+db.ID, db.Workspace, nil, nil, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// Pages queries the database and yields one batch of pages per API page.
// Iteration stops at the first error or when the consumer stops.
func (c *Client) Pages(ctx context.Context, db Database, q Query) iter.Seq2[[]Page, error] {
	return func(yield func([]Page, error) bool) {
		var params url.Values
		if len(q.FilterProperties) > 0 {
			params = url.Values{"filter_properties": q.FilterProperties}
		}
		body := q
		body.PageSize = pageSize

		for {
			var resp queryResponse
			err := c.do(ctx, "notion.query", http.MethodPost, "databases/"+db.ID+"/query", db.Workspace, params, body, &resp)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(resp.Results, nil) {
				return
			}
			if !resp.HasMore || resp.NextCursor == "" {
				return
			}
			c.logger.Debug("Fetching next page", zap.String("database", db.Name), zap.String("cursor", resp.NextCursor))
			body.StartCursor = resp.NextCursor
		}
	}
}

func (c *Client) do(ctx context.Context, op, method, path, workspace string, params url.Values, body, out any) error {
	token, ok := c.tokens[workspace]
	if !ok {
		return fmt.Errorf("%s: %w: %q", op, ErrUnknownWorkspace, workspace)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Notion-Version", c.cfg.Version)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &reconcile.CommunicationError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &reconcile.CommunicationError{
			Op:  op,
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &reconcile.CommunicationError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
