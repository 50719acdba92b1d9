package directory

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

	"go.uber.org/zap"

	"github.com/dusk-indust/userbridge/internal/user"
)

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

const (
	// DefaultBaseURL is the public JSONPlaceholder service.
	DefaultBaseURL = "https://jsonplaceholder.typicode.com"
	// DefaultUsersPath is appended to the base URL for user lookups.
	DefaultUsersPath = "/users"
	// DefaultTimeout bounds a single request at the transport layer.
	DefaultTimeout = 30 * time.Second
)

// HTTPClient implements Client against a JSONPlaceholder-style API. It never
// retries: every failure is returned to the caller immediately.
type HTTPClient struct {
	http      *http.Client
	timeout   *time.Duration
	baseURL   string
	usersPath string
	logger    *zap.Logger
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithBaseURL sets the directory base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithUsersPath sets the path of the users collection relative to the base URL.
func WithUsersPath(p string) ClientOption {
	return func(c *HTTPClient) {
		c.usersPath = "/" + strings.Trim(p, "/")
	}
}

// WithTimeout sets the request timeout. Zero disables it. It applies regardless
// of option order, including on top of a client given to WithHTTPClient.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.timeout = &d
	}
}

// WithHTTPClient sets the *http.Client to send requests with. The client is
// copied, never modified.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *HTTPClient) {
		c.logger = l
	}
}

// NewHTTPClient creates a directory client.
func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		http: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL:   DefaultBaseURL,
		usersPath: DefaultUsersPath,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	// Work on a copy so per-directory settings never leak into a shared
	// client such as http.DefaultClient.
	hc := *c.http
	hc.CheckRedirect = noRedirects
	if c.timeout != nil {
		hc.Timeout = *c.timeout
	}
	c.http = &hc
	return c
}

// noRedirects hands 3xx responses back to the caller, where they are reported
// as a *StatusError like any other non-200 status.
func noRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// FetchAll retrieves the full user list.
func (c *HTTPClient) FetchAll(ctx context.Context) ([]user.User, error) {
	c.logger.Debug("fetching all users")

	body, err := c.get(ctx, c.baseURL+c.usersPath, "fetching all users")
	if err != nil {
		return nil, err
	}

	users := []user.User{}
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, &DecodeError{Op: "fetch all users", Body: len(body), Err: err}
	}
	return users, nil
}

// FetchByID retrieves a single user.
func (c *HTTPClient) FetchByID(ctx context.Context, id string) (*user.User, error) {
	c.logger.Debug("fetching user", zap.String("id", id))

	what := fmt.Sprintf("fetching user with id %q", id)
	body, err := c.get(ctx, c.baseURL+c.usersPath+"/"+url.PathEscape(id), what)
	if err != nil {
		return nil, err
	}

	var u user.User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, &DecodeError{Op: "fetch user " + id, Body: len(body), Err: err}
	}
	return &u, nil
}

// get performs a GET and returns the body of a 200 response. Every other
// outcome is reported as a *StatusError; what describes the call for messages.
func (c *HTTPClient) get(ctx context.Context, target, what string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("directory: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("directory request failed", zap.String("url", target), zap.Error(err))
		return nil, &StatusError{
			StatusCode: http.StatusInternalServerError,
			Message:    "no response received when " + what,
			Err:        fmt.Errorf("%w: %w", ErrUnavailable, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("directory response interrupted", zap.String("url", target), zap.Error(err))
		return nil, &StatusError{
			StatusCode: http.StatusInternalServerError,
			Message:    "response interrupted when " + what,
			Err:        fmt.Errorf("%w: %w", ErrUnavailable, err),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("responded with status code %d when %s", resp.StatusCode, what),
		}
	}

	if isEmptyBody(body) {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("responded with status code %d and an empty body when %s", resp.StatusCode, what),
		}
	}

	return body, nil
}

// isEmptyBody treats blank bodies and a bare JSON null as no content.
func isEmptyBody(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
