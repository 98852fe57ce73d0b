package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agribenchmark/farmsync/config"
	"github.com/agribenchmark/farmsync/record"
	"github.com/agribenchmark/farmsync/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const tracerName = "github.com/agribenchmark/farmsync/restclient"

const (
	defaultTimeout        = 30 * time.Second
	defaultConnectTimeout = 5 * time.Second
	defaultTlsTimeout     = 5 * time.Second
	maxErrorBody          = 512
)

// Client talks to the agribenchmark REST backend. It holds no cache and no
// per-resource state.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
	tracer  trace.Tracer
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds every request. Zero disables the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit spaces requests to at most perMin per minute.
func WithRateLimit(perMin int) Option {
	return func(c *Client) {
		if perMin > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1)
		}
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTracerProvider sets where request spans go. The global provider, a no-op
// until one is installed, is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, config.ErrMissingBackendURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
		http:    defaultHTTPClient(),
		logger:  config.GetLogger(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func NewFromConfig(cfg *config.Config) (*Client, error) {
	return New(cfg.BackendURL,
		WithToken(cfg.Token),
		WithTimeout(cfg.RequestTimeout),
		WithRateLimit(cfg.RateLimitPerMin),
	)
}

func defaultHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: defaultConnectTimeout,
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: defaultTlsTimeout,
		},
	}
}

// JoinPath appends escaped segments to a resource path: JoinPath("/landuse", id).
func JoinPath(path string, segments ...string) string {
	out := strings.TrimRight(path, "/")
	for _, s := range segments {
		out += "/" + url.PathEscape(s)
	}
	return out
}

// Fetch issues a GET and returns the raw body.
func (c *Client) Fetch(ctx context.Context, path string) (json.RawMessage, error) {
	_, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// FetchRows lists the rows of a resource for one farm. An empty scope means no
// farm is selected and returns nothing without a request; a 404 is an empty
// row set.
func (c *Client) FetchRows(ctx context.Context, path, scope string) ([]record.Record, error) {
	if scope == "" {
		return nil, nil
	}
	body, err := c.Fetch(ctx, JoinPath(path, scope))
	if err != nil {
		if IsNotFound(err) {
			return []record.Record{}, nil
		}
		return nil, err
	}
	return decodeRows(body)
}

func (c *Client) Create(ctx context.Context, path string, rec record.Record) (record.Record, error) {
	_, body, err := c.do(ctx, http.MethodPost, path, rec)
	if err != nil {
		return nil, err
	}
	return decodeRecord(body, rec)
}

func (c *Client) Replace(ctx context.Context, path, id string, rec record.Record) (record.Record, error) {
	_, body, err := c.do(ctx, http.MethodPut, JoinPath(path, id), rec)
	if err != nil {
		return nil, err
	}
	return decodeRecord(body, rec)
}

// Remove issues a DELETE against the full resource path (collection + id).
func (c *Client) Remove(ctx context.Context, path string) (json.RawMessage, error) {
	_, body, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Exists probes path with HEAD. 404 is false; any other failure is returned.
func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	_, _, err := c.do(ctx, http.MethodHead, path, nil)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	ctx, span := c.tracer.Start(ctx, "agribench "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("agribench.path", path),
		),
	)
	defer span.End()

	status, body, err := c.send(ctx, method, path, payload)
	if status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return status, body, err
}

func (c *Client) send(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	if strings.TrimSpace(path) == "" {
		return 0, nil, ErrEmptyPath
	}
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, c.transportError(method, endpoint, err)
		}
	}

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s %s: %w", method, endpoint, err)
		}
		reqBody = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := c.token
	if t, ok := utils.GetTokenFromContext(ctx); ok && t != "" {
		token = t
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok && cid != "" {
		req.Header.Set("x-correlation-id", cid)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, c.transportError(method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, c.transportError(method, endpoint, err)
	}
	farmId, _ := utils.GetFarmIdFromContext(ctx)
	c.logger.WithFields(logrus.Fields{
		"method":  method,
		"url":     endpoint,
		"status":  resp.StatusCode,
		"latency": time.Since(start).String(),
		"farm_id": farmId,
	}).Debug("agribench api call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return resp.StatusCode, body, &StatusError{
			Method: method,
			URL:    endpoint,
			Code:   resp.StatusCode,
			Body:   msg,
		}
	}
	return resp.StatusCode, body, nil
}

func (c *Client) transportError(method, endpoint string, err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%s %s: %w", method, endpoint, ErrTimeout)
	}
	return fmt.Errorf("%s %s: %w", method, endpoint, err)
}

func decodeRows(body []byte) ([]record.Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []record.Record{}, nil
	}
	if trimmed[0] == '{' {
		var single record.Record
		if err := utils.UnmarshalFromJSON(trimmed, &single); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		return []record.Record{single}, nil
	}
	var rows []record.Record
	if err := utils.UnmarshalFromJSON(trimmed, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	if rows == nil {
		rows = []record.Record{}
	}
	return rows, nil
}

// decodeRecord falls back to the sent record when the backend answers with an
// empty body.
func decodeRecord(body []byte, sent record.Record) (record.Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return sent.Clone(), nil
	}
	var rec record.Record
	if err := utils.UnmarshalFromJSON(trimmed, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
