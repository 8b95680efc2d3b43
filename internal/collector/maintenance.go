// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/jonasqin/automedia/internal/logging"
	"github.com/jonasqin/automedia/internal/metrics"
	"github.com/jonasqin/automedia/internal/realtime"
	"github.com/jonasqin/automedia/internal/source"
)

// cleanupStale purges collected items past the retention window. Generated
// content is never purged; users keep what they made.
func (o *Orchestrator) cleanupStale(ctx context.Context) error {
	cutoff := o.retentionCutoff(time.Now().UTC())
	purged, err := o.store.PurgeOlderThan(ctx, cutoff, true)
	if err != nil {
		return fmt.Errorf("purge stale content: %w", err)
	}
	if purged > 0 {
		metrics.ItemsPurged.Add(float64(purged))
		logging.Info().Int("purged", purged).Time("cutoff", cutoff).Msg("stale content purged")
	}
	return nil
}

// refreshStats recomputes usage statistics for every active user and caches
// the results for the introspection endpoints. Per-user isolation: one user's
// failure is logged and the walk continues.
func (o *Orchestrator) refreshStats(ctx context.Context) error {
	users, err := o.users.ActiveUsers(ctx)
	if err != nil {
		return fmt.Errorf("list active users: %w", err)
	}

	var failed int
	for _, user := range users {
		stats, err := o.store.UserStats(ctx, user.ID)
		if err != nil {
			failed++
			logging.Error().Err(err).Str("user_id", user.ID).Msg("usage stats computation failed")
			continue
		}
		stats.UserID = user.ID
		stats.ComputedAt = time.Now().UTC()
		o.setStats(user.ID, stats)
	}

	if failed > 0 && failed == len(users) {
		return fmt.Errorf("stats refresh failed for all %d users", failed)
	}
	return nil
}

// checkQuota refreshes the tracked quota for each polled endpoint and
// broadcasts a rate limit warning when any drops below the configured
// threshold.
func (o *Orchestrator) checkQuota(ctx context.Context) error {
	endpoints := []string{source.EndpointSearch, source.EndpointTrending}

	var lastErr error
	for _, endpoint := range endpoints {
		if err := o.tracker.Refresh(ctx, endpoint); err != nil {
			lastErr = err
			logging.Warn().Err(err).Str("endpoint", endpoint).Msg("quota refresh failed, keeping last snapshot")
			continue
		}

		if !o.tracker.IsLow(endpoint, o.cfg.QuotaWarnThresholdPct) {
			continue
		}
		snap, _ := o.tracker.Snapshot(endpoint)
		o.dist.PublishToAll(realtime.EventSystemStatus, realtime.SystemStatusData{
			Status:   realtime.StatusRateLimitWarning,
			Endpoint: endpoint,
			Detail:   fmt.Sprintf("%d of %d calls remaining", snap.Remaining, snap.Limit),
			Percent:  snap.PercentRemaining(),
		})
		logging.Warn().
			Str("endpoint", endpoint).
			Int("remaining", snap.Remaining).
			Int("limit", snap.Limit).
			Msg("external quota low, warning broadcast")
	}
	return lastErr
}
