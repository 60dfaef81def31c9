package paperless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/paperless-upload/internal/model"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 1000

	// maxErrorBody caps how much of an error response ends up in HTTPError.
	maxErrorBody = 2048
)

// Client is a thin HTTP client for the Paperless-ngx REST API.
// It handles Token authentication, JSON marshaling and typed errors.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	pageSize   int
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithPageSize sets the page size used by list calls.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the Paperless instance at baseURL
// (e.g., https://paperless.example.com) authenticating with token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		pageSize:   defaultPageSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromSettings builds a client from validated settings.
func NewFromSettings(s *model.Settings, logger *slog.Logger) *Client {
	return New(s.BaseURL, s.Token,
		WithTimeout(s.HTTPTimeout),
		WithPageSize(s.PageSize),
		WithLogger(logger),
	)
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// get performs a GET request and unmarshals the JSON response.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, result any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, op, http.MethodGet, path, nil, result)
}

// doJSON performs a request with a JSON body and unmarshals the response.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshaling request body: %w", op, err)
	}
	return c.do(ctx, op, method, path, &payload{
		contentType: "application/json",
		body:        data,
	}, result)
}

type payload struct {
	contentType string
	body        []byte
}

// do builds the request, sets auth headers, maps non-2xx responses to
// *model.HTTPError and decodes JSON results. A nil result discards the body.
func (c *Client) do(ctx context.Context, op, method, path string, p *payload, result any) error {
	respBody, err := c.raw(ctx, op, method, path, p)
	if err != nil {
		return err
	}
	if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

// raw performs the request and returns the response body of a 2xx reply.
func (c *Client) raw(ctx context.Context, op, method, path string, p *payload) ([]byte, error) {
	var bodyReader io.Reader
	if p != nil {
		bodyReader = bytes.NewReader(p.body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", op, err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	if p != nil {
		req.Header.Set("Content-Type", p.contentType)
	}

	c.logger.Debug("paperless request", "op", op, "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %s %s: %w", op, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading response body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &model.HTTPError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       errorText(respBody),
		}
	}
	return respBody, nil
}

// errorText extracts a readable message from an error response. Paperless
// answers with {"detail": "..."} or a map of field errors.
func errorText(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	var detail struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(trimmed, &detail) == nil && detail.Detail != "" {
		return detail.Detail
	}
	if len(trimmed) > maxErrorBody {
		trimmed = trimmed[:maxErrorBody]
	}
	return string(trimmed)
}

// listQuery returns the query used for single-round-trip list calls.
func (c *Client) listQuery() url.Values {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(c.pageSize))
	return q
}

// CheckConnection verifies the URL and token by listing one document.
func (c *Client) CheckConnection(ctx context.Context) error {
	q := url.Values{}
	q.Set("page_size", "1")
	var page List[json.RawMessage]
	return c.get(ctx, "check connection", "/api/documents/", q, &page)
}
