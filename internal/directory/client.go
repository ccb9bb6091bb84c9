// Package directory is the typed client for the platform's directory
// service: user, organization, role, account, custom-link and license
// operations over its REST and GraphQL endpoints. Responses are decoded into
// explicit DTOs at this boundary; callers never see raw payloads.
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

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrNotFound marks lookups that resolved cleanly to "no such resource".
// Check with IsNotFound, which also covers REST 404 responses.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx REST response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("directory returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("directory returned status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err means the requested resource does not exist.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

type Options struct {
	// BaseURL is the directory service root, e.g. https://directory.example.com.
	// REST lives under /api/v3, GraphQL under /graphql.
	BaseURL  string
	Token    string
	Timeout  time.Duration
	Logger   *logrus.Logger
	PageSize int
}

type Client struct {
	restBase   *url.URL
	graphqlURL string
	token      string
	httpClient *http.Client
	log        *logrus.Entry
	pageSize   int
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid directory base URL %q", opts.BaseURL)
	}
	rest := *u
	rest.Path = strings.TrimRight(rest.Path, "/") + "/api/v3"
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.ErrorLevel)
	}
	return &Client{
		restBase:   &rest,
		graphqlURL: base + "/graphql",
		token:      opts.Token,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.WithField("component", "directory"),
		pageSize:   pageSize,
	}, nil
}

// WithToken returns a copy of the client authenticating with token. Used by
// login, which starts unauthenticated and upgrades after /authenticate.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("X-Lumoboard-Internal", "1")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// rest issues one REST call and decodes the JSON response into out (may be
// nil). Non-2xx responses become *APIError carrying the service's message.
func (c *Client) rest(ctx context.Context, method, path string, query url.Values, reqBody, out any) error {
	u := *c.restBase
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	c.setHeaders(req, reqBody != nil)

	c.log.WithFields(logrus.Fields{"method": method, "path": path}).Debug("directory REST call")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "directory request")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Message string `json:"message"`
		}
		if jerr := json.Unmarshal(respBody, &envelope); jerr == nil {
			apiErr.Message = envelope.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(respBody, out), "decode response")
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// graphql posts a parameterized query. Values travel as GraphQL variables,
// never interpolated into the query text, so ids and emails containing quote
// characters cannot break out of the document.
func (c *Client) graphql(ctx context.Context, query string, vars map[string]any, out any) error {
	b, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return errors.Wrap(err, "marshal query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	c.setHeaders(req, true)

	c.log.WithField("query", firstLine(query)).Debug("directory GraphQL call")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "directory request")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return errors.Wrap(err, "decode response")
	}
	if len(envelope.Errors) > 0 {
		first := envelope.Errors[0]
		if first.Extensions.Code == "NOT_FOUND" {
			return errors.Wrap(ErrNotFound, first.Message)
		}
		return errors.New(first.Message)
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(envelope.Data, out), "decode data")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
