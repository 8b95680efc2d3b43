// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/jonasqin/automedia/internal/logging"
	"github.com/jonasqin/automedia/internal/metrics"
	"github.com/jonasqin/automedia/internal/models"
)

// BreakerClient wraps a ContentSource with a circuit breaker so a degraded
// provider sheds load fast instead of stacking timeouts across task ticks.
//
// Configuration:
//   - max 3 concurrent requests in half-open state
//   - 1 minute measurement window in closed state
//   - 2 minute timeout before attempting recovery
//   - opens at a 60% failure rate with at least 10 requests observed
type BreakerClient struct {
	inner ContentSource
	cb    *gobreaker.CircuitBreaker[interface{}]
	name  string
}

// NewBreakerClient wraps the given source with circuit breaker protection.
func NewBreakerClient(inner ContentSource) *BreakerClient {
	cbName := "content-source"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("content source circuit opening")
				return true
			}
			return false
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("content source circuit state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BreakerClient{inner: inner, cb: cb, name: cbName}
}

// Search implements ContentSource.
func (b *BreakerClient) Search(ctx context.Context, query string, opts SearchOptions) ([]models.ContentItem, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Search(ctx, query, opts)
	})
	return castResult[[]models.ContentItem](result, err)
}

// Trending implements ContentSource.
func (b *BreakerClient) Trending(ctx context.Context, location string) ([]models.Trend, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Trending(ctx, location)
	})
	return castResult[[]models.Trend](result, err)
}

// Quota implements ContentSource.
func (b *BreakerClient) Quota(ctx context.Context, endpoint string) (models.QuotaSnapshot, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Quota(ctx, endpoint)
	})
	return castResult[models.QuotaSnapshot](result, err)
}

// castResult type-casts a circuit breaker result with error checking.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		if errors.Is(err, ErrSource) {
			return zero, err
		}
		// Breaker-originated rejections (open state, too many requests)
		// pick up the source error class here.
		return zero, fmt.Errorf("%w: %w", ErrSource, err)
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%w: unexpected result type %T", ErrSource, result)
	}
	return typed, nil
}

// stateToString converts a circuit breaker state for logs and labels.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// stateToFloat converts a state for the gauge metric.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
