package bridge

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/backend"
	"github.com/fjod/storefront-checkout/pkg/logger"
)

const maxValidationURLLength = 2048

// MerchantValidator is the backend capability that performs the handshake
// with the payment network using the merchant's private credential.
type MerchantValidator interface {
	ValidateMerchant(ctx context.Context, req domain.MerchantValidationRequest) (domain.MerchantSession, error)
}

type Observer interface {
	Observe(outcome string)
}

// Bridge relays merchant validation between the device wallet sheet and the
// backend. It holds no per-request state and is safe for concurrent use.
type Bridge struct {
	validator MerchantValidator
	timeout   time.Duration
	observer  Observer
	log       *slog.Logger
}

func New(validator MerchantValidator, timeout time.Duration, observer Observer, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{
		validator: validator,
		timeout:   timeout,
		observer:  observer,
		log:       log,
	}
}

type result struct {
	session domain.MerchantSession
	err     error
}

// ValidateMerchant makes exactly one upstream call for a well-formed URL and
// none otherwise. The upstream call runs on a context detached from ctx:
// if ctx ends first, ValidateMerchant returns ErrClientGone and the handshake
// still runs to completion (bounded by the bridge timeout) so it is not left
// half open.
func (b *Bridge) ValidateMerchant(ctx context.Context, validationURL string) (domain.MerchantSession, error) {
	log := logger.WithTrace(ctx, b.log).With(logger.Presence("validation_url", validationURL))

	if err := checkValidationURL(validationURL); err != nil {
		b.observe(KindInvalidRequest)
		log.Info("merchant validation refused", slog.String("reason", err.Error()))
		return nil, &Error{Kind: KindInvalidRequest, Err: err}
	}

	req := domain.MerchantValidationRequest{ValidationURL: validationURL}
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	done := make(chan result, 1)
	started := time.Now()

	go func() {
		defer cancel()
		session, err := b.validator.ValidateMerchant(callCtx, req)
		done <- result{session: session, err: err}
	}()

	select {
	case r := <-done:
		elapsed := slog.Duration("elapsed", time.Since(started))
		if r.err != nil {
			be := classify(r.err)
			b.observe(be.Kind)
			log.Warn("merchant validation failed", slog.String("kind", string(be.Kind)), elapsed)
			return nil, be
		}
		b.observe("ok")
		log.Info("merchant validated", elapsed)
		return r.session, nil
	case <-ctx.Done():
		b.observe("client_gone")
		log.Info("client left during merchant validation; result will be discarded")
		return nil, ErrClientGone
	}
}

// RefuseRequest records a request whose body could not be read as a
// validation request. Nothing is sent upstream.
func (b *Bridge) RefuseRequest(ctx context.Context, err error) *Error {
	b.observe(KindInvalidRequest)
	logger.WithTrace(ctx, b.log).Info("merchant validation refused", slog.String("reason", "undecodable body"))
	return &Error{Kind: KindInvalidRequest, Err: err}
}

func (b *Bridge) observe(outcome Kind) {
	if b.observer != nil {
		b.observer.Observe(string(outcome))
	}
}

// checkValidationURL only looks at the shape. The URL is forwarded exactly as
// received.
func checkValidationURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrMissingValidationURL
	}
	if len(raw) > maxValidationURLLength || raw != strings.TrimSpace(raw) {
		return ErrMalformedValidationURL
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Scheme != "https" || u.Host == "" || u.User != nil {
		return ErrMalformedValidationURL
	}
	return nil
}

func classify(err error) *Error {
	detail := backend.Detail(err)
	if errors.Is(err, backend.ErrRejected) {
		return &Error{Kind: KindRejected, Detail: detail, Err: err}
	}
	return &Error{Kind: KindUnavailable, Detail: detail, Err: err}
}
