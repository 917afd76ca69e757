// Package client talks to an eulerfilter server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/teslashibe/go-eulerfilter/internal/httpc"
	"github.com/teslashibe/go-eulerfilter/pkg/eulerfilter"
	"github.com/teslashibe/go-eulerfilter/pkg/keyframes"
	"github.com/teslashibe/go-eulerfilter/pkg/protocol"
	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

// StatusError is a non-2xx reply from the server. 400 replies match
// eulerfilter.ErrInvalidInput with errors.Is.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Unwrap exposes ErrInvalidInput for bad requests.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusBadRequest {
		return eulerfilter.ErrInvalidInput
	}
	return nil
}

// Client is a REST client for the filter service.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the shared httpc client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// New returns a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpc.Client,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health queries GET /api/health.
func (c *Client) Health(ctx context.Context) (*protocol.HealthResponse, error) {
	var out protocol.HealthResponse
	if err := c.get(ctx, "/api/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Methods lists the filter methods the server accepts.
func (c *Client) Methods(ctx context.Context) (*protocol.MethodsResponse, error) {
	var out protocol.MethodsResponse
	if err := c.get(ctx, "/api/methods", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Filter corrects candidate against reference on the server.
func (c *Client) Filter(ctx context.Context, reference, candidate rotation.AngleTriple, method eulerfilter.FilterMethod) (rotation.AngleTriple, error) {
	req := protocol.FilterRequest{Reference: reference, Candidate: candidate, Method: method}

	var out protocol.FilterResponse
	if err := c.post(ctx, "/api/filter", req, &out); err != nil {
		return rotation.AngleTriple{}, err
	}
	return out.Corrected, nil
}

// FilterSequence filters samples with cfg and returns the stored result.
func (c *Client) FilterSequence(ctx context.Context, samples []keyframes.Sample, cfg keyframes.Config) (*protocol.SequenceResult, error) {
	req := protocol.SequenceRequest{Samples: samples, Method: cfg.Method, Direction: cfg.Direction}

	var out protocol.SequenceResult
	if err := c.post(ctx, "/api/filter/sequence", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sequence fetches a previous FilterSequence result by id.
func (c *Client) Sequence(ctx context.Context, id string) (*protocol.SequenceResult, error) {
	var out protocol.SequenceResult
	if err := c.get(ctx, "/api/filter/sequence/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := httpc.GetJSON(ctx, c.http, c.baseURL+path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return decode(resp, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := httpc.PostJSON(ctx, c.http, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e protocol.ErrorResponse
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
