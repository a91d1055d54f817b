package strapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBody = 1 << 20

// Client is a thin document client for the CMS REST API: find-by-filter,
// create and update. Collections are addressed by their plural API id
// (orders, products, coupons).
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	clock   func() time.Time
}

// ClientConfig configures the document client.
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the transport, primarily for tests.
	HTTPClient *http.Client
	Clock      func() time.Time
}

// NewClient constructs a document client with a bounded request timeout.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("strapi: base url is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(cfg.Token),
		http:    httpClient,
		clock:   func() time.Time { return clock().UTC() },
	}, nil
}

// Document is one CMS entry. Attributes are flattened regardless of whether
// the API nests them under "attributes" (v4) or inlines them (v5).
type Document struct {
	ID         int64
	Attributes map[string]any
}

// UnmarshalJSON flattens both response shapes into the Document.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if id, ok := raw["id"].(float64); ok {
		d.ID = int64(id)
	}

	if attrs, ok := raw["attributes"].(map[string]any); ok {
		d.Attributes = attrs
		return nil
	}

	delete(raw, "id")
	d.Attributes = raw
	return nil
}

type listEnvelope struct {
	Data []Document `json:"data"`
}

type singleEnvelope struct {
	Data *Document `json:"data"`
}

// Find returns the documents of a collection matching the query. Filters use
// the CMS query syntax, e.g. filters[code][$eq]=NM-....
func (c *Client) Find(ctx context.Context, collection string, query url.Values) ([]Document, error) {
	endpoint := fmt.Sprintf("%s/api/%s", c.baseURL, url.PathEscape(collection))
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, wrapError("strapi: find "+collection, err)
	}
	return envelope.Data, nil
}

// Get fetches one document by backend id.
func (c *Client) Get(ctx context.Context, collection string, id int64) (Document, error) {
	endpoint := fmt.Sprintf("%s/api/%s/%d", c.baseURL, url.PathEscape(collection), id)
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Document{}, err
	}

	var envelope singleEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Document{}, wrapError("strapi: get "+collection, err)
	}
	if envelope.Data == nil {
		return Document{}, newStatusError("strapi: get "+collection, http.StatusNotFound, "empty response data")
	}
	return *envelope.Data, nil
}

// Create persists a new document and publishes it immediately.
func (c *Client) Create(ctx context.Context, collection string, data map[string]any) (Document, error) {
	payload := make(map[string]any, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["publishedAt"] = c.clock().Format(time.RFC3339Nano)

	body, err := json.Marshal(map[string]any{"data": payload})
	if err != nil {
		return Document{}, wrapError("strapi: create "+collection, err)
	}

	endpoint := fmt.Sprintf("%s/api/%s", c.baseURL, url.PathEscape(collection))
	respBody, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return Document{}, err
	}

	var envelope singleEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return Document{}, wrapError("strapi: create "+collection, err)
	}
	if envelope.Data == nil {
		return Document{}, newStatusError("strapi: create "+collection, http.StatusBadGateway, "empty response data")
	}
	return *envelope.Data, nil
}

// Update applies a partial field update to an existing document.
func (c *Client) Update(ctx context.Context, collection string, id int64, data map[string]any) (Document, error) {
	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return Document{}, wrapError("strapi: update "+collection, err)
	}

	endpoint := fmt.Sprintf("%s/api/%s/%d", c.baseURL, url.PathEscape(collection), id)
	respBody, err := c.do(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return Document{}, err
	}

	var envelope singleEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return Document{}, wrapError("strapi: update "+collection, err)
	}
	if envelope.Data == nil {
		return Document{}, newStatusError("strapi: update "+collection, http.StatusBadGateway, "empty response data")
	}
	return *envelope.Data, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, wrapError("strapi: "+method+" "+endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, wrapError("strapi: "+method+" "+endpoint, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, wrapError("strapi: "+method+" "+endpoint, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, newStatusError("strapi: "+method+" "+endpoint, resp.StatusCode, truncate(string(payload), 256))
	}
	return payload, nil
}

func truncate(value string, limit int) string {
	if len(value) > limit {
		return value[:limit]
	}
	return value
}
