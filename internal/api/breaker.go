package api

import (
	"net/http"

	"skillmatch/internal/config"
	"skillmatch/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// endpointBreaker wraps backend calls to one endpoint with a circuit breaker.
// A nil breaker passes calls straight through.
type endpointBreaker struct {
	cb *gobreaker.CircuitBreaker[[]byte]
}

func newEndpointBreaker(endpoint string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *endpointBreaker {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        "backend-" + endpoint,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		// the backend rejecting our input says nothing about its health
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			appErr, ok := errors.As(err)
			if !ok || appErr.Type != errors.ErrorTypeHTTP {
				return false
			}
			status := appErr.Status()
			return status >= http.StatusBadRequest && status < http.StatusInternalServerError
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"endpoint", endpoint,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &endpointBreaker{cb: gobreaker.NewCircuitBreaker[[]byte](settings)}
}

// Execute runs fn under the breaker. Rejections by an open breaker become
// a service unavailable network error.
func (b *endpointBreaker) Execute(fn func() ([]byte, error)) ([]byte, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	body, err := b.cb.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, errors.NewNetworkError(errors.ErrCodeServiceUnavailable,
			"analysis service temporarily unavailable", err).WithContext("breaker", b.cb.Name())
	}
	return body, err
}

// GetStats returns circuit breaker statistics
func (b *endpointBreaker) GetStats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true unless the breaker is open
func (b *endpointBreaker) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() != gobreaker.StateOpen
}
