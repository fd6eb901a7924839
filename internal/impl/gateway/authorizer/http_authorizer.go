// Package impl_authorizer talks to the external transfer authorization
// service.
package impl_authorizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	port_authorization "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/authorization"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var _ port_authorization.Authorizer = (*HTTPAuthorizer)(nil)

const DefaultURL = "https://run.mocky.io/v3/8fafdd68-a090-496f-8c9a-3442cf30dae6"

var ErrUnreachable = errors.New("authorizer: service unreachable")

type Config struct {
	URL     string
	Timeout time.Duration
	// MaxFailures consecutive transport failures open the breaker for
	// OpenTimeout. Zero disables the breaker.
	MaxFailures uint32
	OpenTimeout time.Duration
}

type HTTPAuthorizer struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

type Option func(*HTTPAuthorizer)

func WithHTTPClient(c *http.Client) Option {
	return func(a *HTTPAuthorizer) { a.client = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *HTTPAuthorizer) { a.logger = l }
}

func NewHTTPAuthorizer(cfg Config, opts ...Option) *HTTPAuthorizer {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	a := &HTTPAuthorizer{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if cfg.MaxFailures > 0 {
		maxFailures := cfg.MaxFailures
		a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "authorizer",
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				a.logger.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}

	return a
}

// Authorize issues a bodiless GET. HTTP 200 approves, any other status
// rejects, and a transport failure or an open breaker reports the service
// as unavailable. Only transport failures count against the breaker.
func (a *HTTPAuthorizer) Authorize(ctx context.Context) (port_authorization.Verdict, error) {
	var (
		status int
		err    error
	)

	if a.breaker == nil {
		status, err = a.call(ctx)
	} else {
		var res any
		res, err = a.breaker.Execute(func() (any, error) {
			return a.call(ctx)
		})
		if err == nil {
			status = res.(int)
		}
	}

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return port_authorization.VerdictUnavailable, fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		return port_authorization.VerdictUnavailable, err
	}

	if status != http.StatusOK {
		a.logger.Info("authorization denied", zap.Int("status", status))
		return port_authorization.VerdictRejected, nil
	}

	return port_authorization.VerdictApproved, nil
}

func (a *HTTPAuthorizer) call(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %v", ErrUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode, nil
}
