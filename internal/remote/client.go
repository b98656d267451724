// Package remote is the terminal's client for the POS service.
//
// Reads of slow-changing reference data go through the session cache. Every
// write that changes cached data invalidates the affected keys before it
// returns.
package remote

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

	"github.com/kiwari-pos/terminal/internal/cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxErrorBody = 64 << 10

// ErrNotAuthenticated is returned when no session token is available.
var ErrNotAuthenticated = errors.New("not authenticated")

// Error is a non-2xx response from the service.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote %s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsStatus reports whether err is a remote Error with the given status.
func IsStatus(err error, status int) bool {
	var re *Error
	return errors.As(err, &re) && re.StatusCode == status
}

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for a fixed token.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", ErrNotAuthenticated
	}
	return string(t), nil
}

// Client talks to the POS service.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *cache.Cache
	tokens  TokenSource
	log     *zap.Logger
	tracer  trace.Tracer
}

// NewClient creates a Client. tokens may be nil for unauthenticated use.
func NewClient(baseURL string, httpClient *http.Client, c *cache.Cache, tokens TokenSource, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		cache:   c,
		tokens:  tokens,
		log:     log,
		tracer:  otel.Tracer("github.com/kiwari-pos/terminal/internal/remote"),
	}
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
}

// do sends req and decodes a 2xx JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	ctx, span := c.tracer.Start(ctx, req.method+" "+req.path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	err := c.send(ctx, span, req, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) send(ctx context.Context, span trace.Span, req request, out any) error {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Method:     req.method,
			Path:       req.path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp),
		}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.method, req.path, err)
	}
	return nil
}

// errorMessage extracts the server-provided message from an error body.
func errorMessage(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(b, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if s := strings.TrimSpace(string(b)); s != "" {
		return s
	}
	return http.StatusText(resp.StatusCode)
}

// invalidate drops every key in keys from the cache, stopping at the first
// failure.
func (c *Client) invalidate(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if err := c.cache.Invalidate(ctx, k); err != nil {
			c.log.Error("cache invalidation failed", zap.String("key", k), zap.Error(err))
			return err
		}
	}
	return nil
}
