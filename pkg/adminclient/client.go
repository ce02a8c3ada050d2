package adminclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/gemline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemline-backend/pkg/errors"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
	"github.com/angelmondragon/gemline-backend/pkg/types"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultBreakerFailures = 3
	defaultBreakerTimeout  = 30 * time.Second
	maxResponseBytes       = 8 << 20
)

// Params configure a Client.
type Params struct {
	BaseURL string
	// Token is sent as a bearer token when set.
	Token           string
	Timeout         time.Duration
	HTTPClient      *http.Client
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	Logger          *logger.Logger
}

// Client calls the admin analytics API. Transport errors and 5xx responses
// count against a circuit breaker; 4xx responses do not.
type Client struct {
	base    *url.URL
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logg    *logger.Logger
}

// RefreshResponse is the payload of a successful refresh.
type RefreshResponse struct {
	Result         types.RefreshResult                     `json:"result"`
	CooldownStatus map[enums.MetricType]types.CooldownInfo `json:"cooldownStatus"`
	Message        string                                  `json:"-"`
}

type successEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func New(params Params) (*Client, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	base, err := url.Parse(strings.TrimRight(params.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", params.BaseURL)
	}
	httpClient := params.HTTPClient
	if httpClient == nil {
		timeout := params.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	failures := params.BreakerFailures
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	breakerTimeout := params.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = defaultBreakerTimeout
	}

	c := &Client{base: base, token: params.Token, http: httpClient, logg: params.Logger}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "admin-api",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.Temporary()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ctx := c.logg.WithFields(context.Background(), map[string]any{"breaker": name, "from": from.String(), "to": to.String()})
			c.logg.Warn(ctx, "adminclient.breaker.state_change")
		},
	})
	return c, nil
}

// BreakerState exposes the circuit breaker state for status output.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

func (c *Client) PeriodAnalytics(ctx context.Context, period types.Period) (*types.PeriodReport, error) {
	query := url.Values{}
	if period != "" {
		query.Set("period", string(period))
	}
	var out types.PeriodReport
	if _, err := c.do(ctx, http.MethodGet, "/api/admin/analytics", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CachedAnalytics(ctx context.Context) (map[enums.MetricType]json.RawMessage, error) {
	out := map[enums.MetricType]json.RawMessage{}
	if _, err := c.do(ctx, http.MethodGet, "/api/admin/analytics/cached", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) LiveMetrics(ctx context.Context) (*types.LiveMetrics, error) {
	var out types.LiveMetrics
	if _, err := c.do(ctx, http.MethodGet, "/api/admin/analytics/live", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context) (*types.StatusReport, error) {
	var out types.StatusReport
	if _, err := c.do(ctx, http.MethodGet, "/api/admin/analytics/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Runs(ctx context.Context, limit int) ([]types.RefreshRun, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out []types.RefreshRun
	if _, err := c.do(ctx, http.MethodGet, "/api/admin/analytics/runs", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Refresh refreshes one metric, or every metric when metricType is empty.
// A cooldown rejection comes back as a *CooldownError.
func (c *Client) Refresh(ctx context.Context, metricType enums.MetricType) (*RefreshResponse, error) {
	query := url.Values{}
	if metricType != "" {
		query.Set("metric", string(metricType))
	}
	var out RefreshResponse
	msg, err := c.do(ctx, http.MethodPost, "/api/admin/analytics/refresh", query, &out)
	if err != nil {
		return nil, err
	}
	out.Message = msg
	return &out, nil
}

func (c *Client) Widgets(ctx context.Context) (*types.Widgets, error) {
	var out types.Widgets
	if _, err := c.do(ctx, http.MethodGet, "/api/admin/dashboard/widgets", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RefreshWidgets(ctx context.Context) (*types.Widgets, error) {
	var out types.Widgets
	if _, err := c.do(ctx, http.MethodPost, "/api/admin/dashboard/widgets/refresh", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do executes one call through the breaker and decodes the envelope data into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) (string, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, query)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", err
	}

	var env successEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if out != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	return env.Message, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	target := *c.base
	target.Path = c.base.Path + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp, body)
	}
	return body, nil
}

func decodeError(resp *http.Response, body []byte) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
		apiErr.RetryAfter = time.Duration(seconds) * time.Second
	}

	var env struct {
		Error struct {
			Code      string          `json:"code"`
			Message   string          `json:"message"`
			Details   json.RawMessage `json:"details"`
			RequestID string          `json:"requestId"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Details = env.Error.Details
		apiErr.RequestID = env.Error.RequestID
	}
	if apiErr.RequestID == "" {
		apiErr.RequestID = resp.Header.Get("X-Request-Id")
	}

	if apiErr.Code == string(pkgerrors.CodeCooldown) {
		return newCooldownError(apiErr)
	}
	return apiErr
}
