// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package collector

import (
	"context"
	"sync"

	"github.com/jonasqin/automedia/internal/logging"
	"github.com/jonasqin/automedia/internal/metrics"
	"github.com/jonasqin/automedia/internal/models"
	"github.com/jonasqin/automedia/internal/source"
)

// RateLimitTracker caches the most recent quota snapshot per upstream
// endpoint. Snapshots arrive two ways: opportunistically from response
// headers on every source call (via Observe) and on a schedule from the
// quota check task (via Refresh). A failed refresh keeps the previous
// snapshot so a transient upstream error never erases known quota state.
type RateLimitTracker struct {
	src source.ContentSource

	mu        sync.RWMutex
	snapshots map[string]models.QuotaSnapshot
}

func NewRateLimitTracker(src source.ContentSource) *RateLimitTracker {
	return &RateLimitTracker{
		src:       src,
		snapshots: make(map[string]models.QuotaSnapshot),
	}
}

// Observe implements source.QuotaObserver.
func (t *RateLimitTracker) Observe(snap models.QuotaSnapshot) {
	if snap.Endpoint == "" {
		return
	}
	t.store(snap)
}

// Refresh queries the upstream rate limit status for one endpoint and
// replaces the cached snapshot. On error the cache is left untouched.
func (t *RateLimitTracker) Refresh(ctx context.Context, endpoint string) error {
	snap, err := t.src.Quota(ctx, endpoint)
	if err != nil {
		return err
	}
	snap.Endpoint = endpoint
	t.store(snap)
	return nil
}

// Snapshot returns the cached quota state for one endpoint.
func (t *RateLimitTracker) Snapshot(endpoint string) (models.QuotaSnapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap, ok := t.snapshots[endpoint]
	return snap, ok
}

// Snapshots returns every cached snapshot keyed by endpoint.
func (t *RateLimitTracker) Snapshots() map[string]models.QuotaSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]models.QuotaSnapshot, len(t.snapshots))
	for k, v := range t.snapshots {
		out[k] = v
	}
	return out
}

// IsLow reports whether the endpoint's remaining quota has dropped below
// thresholdPct percent of its window limit. Unknown endpoints are not low.
func (t *RateLimitTracker) IsLow(endpoint string, thresholdPct float64) bool {
	snap, ok := t.Snapshot(endpoint)
	if !ok {
		return false
	}
	return snap.PercentRemaining() < thresholdPct
}

func (t *RateLimitTracker) store(snap models.QuotaSnapshot) {
	t.mu.Lock()
	t.snapshots[snap.Endpoint] = snap
	t.mu.Unlock()

	metrics.QuotaRemaining.WithLabelValues(snap.Endpoint).Set(float64(snap.Remaining))
	logging.Debug().
		Str("endpoint", snap.Endpoint).
		Int("remaining", snap.Remaining).
		Int("limit", snap.Limit).
		Msg("quota snapshot updated")
}
