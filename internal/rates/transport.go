package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"fxledger/internal/log"
)

const (
	DefaultBaseURL   = "https://open.er-api.com/v6/latest"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 2 // requests per second
)

// LatestResponse is the body of GET <api>/<BASE>.
type LatestResponse struct {
	Result    string                     `json:"result"`
	BaseCode  string                     `json:"base_code"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	ErrorType string                     `json:"error-type,omitempty"`
}

// Transport fetches the latest rate table for a base currency.
// Implementations return *NetworkError when the source is unreachable and
// *APIError for non-2xx answers.
type Transport interface {
	Latest(ctx context.Context, base string) (*LatestResponse, error)
}

// HTTPTransport talks to an open.er-api.com compatible endpoint.
type HTTPTransport struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// TransportOption configures the transport
type TransportOption func(*HTTPTransport)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) TransportOption {
	return func(t *HTTPTransport) {
		t.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) TransportOption {
	return func(t *HTTPTransport) {
		t.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) TransportOption {
	return func(t *HTTPTransport) {
		t.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		t.httpClient = client
	}
}

// WithTransportLogger sets the logger
func WithTransportLogger(logger *log.Logger) TransportOption {
	return func(t *HTTPTransport) {
		t.logger = logger.WithComponent(log.ComponentRates)
	}
}

func NewHTTPTransport(opts ...TransportOption) *HTTPTransport {
	t := &HTTPTransport{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  log.Discard(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Latest performs a rate-limited GET for base.
func (t *HTTPTransport) Latest(ctx context.Context, base string) (*LatestResponse, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, &NetworkError{Base: base, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	reqURL := t.baseURL + "/" + base
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	t.logger.DebugContext(ctx, "Rate API request", log.FieldURL, reqURL)

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Base: base, Err: err}
	}
	defer resp.Body.Close()

	t.logger.DebugContext(ctx, "Rate API response",
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Base: base, StatusCode: resp.StatusCode, Message: msg}
	}

	var out LatestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &APIError{Base: base, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return &out, nil
}

var _ Transport = (*HTTPTransport)(nil)
