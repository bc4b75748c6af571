package backend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/secrets"
	"github.com/fjod/storefront-checkout/pkg/circuitbreaker"
)

const (
	publishableKeyHeader = "x-publishable-api-key"
	maxResponseBytes     = 4 << 20
	maxDetailBytes       = 512
	defaultLoadTimeout   = 10 * time.Second
)

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Keys       secrets.Provider
	Breaker    circuitbreaker.Config
	Logger     *slog.Logger
	// LoadTimeout bounds a shared customer load once it no longer belongs to
	// any single caller.
	LoadTimeout time.Duration
}

// Client talks to the commerce backend's store API. Cart and customer reads go
// through a circuit breaker; merchant validation never does, so each
// validation is exactly one round trip.
type Client struct {
	baseURL    string
	httpClient *http.Client
	keys       secrets.Provider
	breaker    *circuitbreaker.Breaker[[]byte]
	customers  singleflight.Group // collapses concurrent loads of the same session
	loadTTL    time.Duration
	log        *slog.Logger
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	loadTTL := opts.LoadTimeout
	if loadTTL <= 0 {
		loadTTL = defaultLoadTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		keys:       opts.Keys,
		breaker:    circuitbreaker.New[[]byte]("commerce-backend", opts.Breaker, isBreakerFailure, log),
		loadTTL:    loadTTL,
		log:        log,
	}
}

func (c *Client) GetCart(ctx context.Context, cartID string) (*domain.CartSnapshot, error) {
	body, err := c.guarded(ctx, http.MethodGet, "/store/carts/"+url.PathEscape(cartID), nil, "")
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return decodeCart(body)
}

// GetCustomer loads the customer behind the bearer token. An empty token means
// an anonymous session. Concurrent loads for the same token share one request,
// which runs detached from every caller; each caller stops waiting when its own
// ctx ends.
func (c *Client) GetCustomer(ctx context.Context, token string) (*domain.Customer, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	sum := sha256.Sum256([]byte(token))
	ch := c.customers.DoChan(hex.EncodeToString(sum[:]), func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTTL)
		defer cancel()
		return c.loadCustomer(loadCtx, token)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("get customer: %w", res.Err)
		}
		return res.Val.(*domain.Customer), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("get customer: %w", ctx.Err())
	}
}

func (c *Client) loadCustomer(ctx context.Context, token string) (*domain.Customer, error) {
	body, err := c.guarded(ctx, http.MethodGet, "/store/customers/me", nil, token)
	if err != nil {
		return nil, err
	}
	var env customerEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode customer: %w", ErrUnavailable, err)
	}
	if env.Customer == nil {
		return nil, fmt.Errorf("%w: customer missing from response", ErrUnavailable)
	}
	return env.Customer.toDomain(), nil
}

func (c *Client) UpdateCartEmail(ctx context.Context, cartID, email string) (*domain.CartSnapshot, error) {
	body, err := c.guarded(ctx, http.MethodPost, "/store/carts/"+url.PathEscape(cartID), updateCartRequest{Email: email}, "")
	if err != nil {
		return nil, fmt.Errorf("update cart: %w", err)
	}
	return decodeCart(body)
}

// CompleteCart asks the backend to turn the cart into an order. The backend
// re-validates the cart and may refuse.
func (c *Client) CompleteCart(ctx context.Context, cartID string) (*domain.OrderConfirmation, error) {
	body, err := c.guarded(ctx, http.MethodPost, "/store/carts/"+url.PathEscape(cartID)+"/complete", nil, "")
	if err != nil {
		return nil, fmt.Errorf("complete cart: %w", err)
	}

	var resp completeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("complete cart: %w: decode: %w", ErrUnavailable, err)
	}
	if resp.Type != "order" || resp.Order == nil {
		msg := "cart could not be completed"
		if resp.Error != nil && resp.Error.Message != "" {
			msg = resp.Error.Message
		}
		return nil, fmt.Errorf("complete cart: %w", newStatusError(http.StatusConflict, msg))
	}

	return &domain.OrderConfirmation{
		OrderID:      resp.Order.ID,
		DisplayID:    resp.Order.DisplayID,
		CartID:       cartID,
		Email:        resp.Order.Email,
		Total:        resp.Order.Total,
		CurrencyCode: resp.Order.CurrencyCode,
	}, nil
}

// ValidateMerchant forwards the validation URL to the backend, which holds the
// merchant identity certificate, and returns the session bytes untouched.
func (c *Client) ValidateMerchant(ctx context.Context, req domain.MerchantValidationRequest) (domain.MerchantSession, error) {
	body, err := c.do(ctx, http.MethodPost, "/store/apple-pay/validate-merchant",
		validateMerchantRequest{ValidationURL: req.ValidationURL}, "")
	if err != nil {
		return nil, fmt.Errorf("validate merchant: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("validate merchant: %w: response is not JSON", ErrUnavailable)
	}
	return domain.MerchantSession(body), nil
}

func (c *Client) guarded(ctx context.Context, method, path string, payload any, token string) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, method, path, payload, token)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return body, err
}

func (c *Client) do(ctx context.Context, method, path string, payload any, token string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.keys != nil {
		key, err := c.keys.BackendAPIKey(ctx)
		if err != nil {
			return nil, transportError(ctx, "resolve api key", err)
		}
		req.Header.Set(publishableKeyHeader, key)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		req.Header.Set(middleware.RequestIDHeader, reqID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, "send request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(ctx, "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := newStatusError(resp.StatusCode, errorMessage(body))
		c.log.Debug("backend request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode))
		return nil, se
	}
	return body, nil
}

// transportError keeps a caller that gave up apart from a backend that failed.
// Only the latter is ErrUnavailable.
func transportError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func decodeCart(body []byte) (*domain.CartSnapshot, error) {
	var env cartEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode cart: %w", ErrUnavailable, err)
	}
	if env.Cart == nil {
		return nil, fmt.Errorf("%w: cart missing from response", ErrUnavailable)
	}
	return env.Cart, nil
}

func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Message != "" {
		return eb.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxDetailBytes {
		s = s[:maxDetailBytes]
	}
	return s
}
