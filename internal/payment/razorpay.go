// AngelaMos | 2026
// razorpay.go

package payment

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
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/carterperez-dev/promptcraft/internal/config"
	"github.com/carterperez-dev/promptcraft/internal/core"
)

const (
	defaultBaseURL   = "https://api.razorpay.com/v1"
	defaultTimeout   = 10 * time.Second
	maxErrorBodySize = 64 << 10
	fetchRetries     = 2
)

// ProviderError is a non-2xx answer from the gateway.
type ProviderError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf(
		"razorpay: status %d: %s: %s",
		e.StatusCode,
		e.Code,
		e.Description,
	)
}

func (e *ProviderError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrProviderRejected
	default:
		return core.ErrProviderUnavailable
	}
}

func (e *ProviderError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

type RazorpayClient struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
	newBackOff func() backoff.BackOff
}

type ClientOption func(*RazorpayClient)

func WithFetchBackOff(fn func() backoff.BackOff) ClientOption {
	return func(rc *RazorpayClient) {
		rc.newBackOff = fn
	}
}

func NewRazorpayClient(
	cfg config.PaymentConfig,
	opts ...ClientOption,
) *RazorpayClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &RazorpayClient{
		keyID:      cfg.KeyID,
		keySecret:  cfg.KeySecret,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 3 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateOrder is not retried: a repeated POST could open a second order.
func (c *RazorpayClient) CreateOrder(
	ctx context.Context,
	params OrderParams,
) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", params, &order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &order, nil
}

func (c *RazorpayClient) FetchOrder(
	ctx context.Context,
	orderID string,
) (*Order, error) {
	var order Order
	path := "/orders/" + url.PathEscape(orderID)
	if err := c.fetch(ctx, path, &order); err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	return &order, nil
}

func (c *RazorpayClient) FetchPayment(
	ctx context.Context,
	paymentID string,
) (*ProviderPayment, error) {
	var p ProviderPayment
	path := "/payments/" + url.PathEscape(paymentID)
	if err := c.fetch(ctx, path, &p); err != nil {
		return nil, fmt.Errorf("fetch payment: %w", err)
	}
	return &p, nil
}

func (c *RazorpayClient) fetch(ctx context.Context, path string, out any) error {
	op := func() error {
		err := c.do(ctx, http.MethodGet, path, nil, out)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(c.newBackOff(), fetchRetries),
		ctx,
	)

	return backoff.Retry(op, policy)
}

func (c *RazorpayClient) do(
	ctx context.Context,
	method, path string,
	body, out any,
) error {
	if c.keyID == "" || c.keySecret == "" {
		return ErrNotConfigured
	}

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeProviderError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", core.ErrProviderUnavailable, err)
	}

	return nil
}

func retryable(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Temporary()
	}
	return errors.Is(err, core.ErrProviderUnavailable)
}

func decodeProviderError(resp *http.Response) error {
	perr := &ProviderError{StatusCode: resp.StatusCode}

	var payload struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize)) //nolint:errcheck // best-effort detail
	if json.Unmarshal(raw, &payload) == nil {
		perr.Code = payload.Error.Code
		perr.Description = payload.Error.Description
	}

	if perr.Code == "" {
		perr.Code = http.StatusText(resp.StatusCode)
	}

	return perr
}

var _ Provider = (*RazorpayClient)(nil)
