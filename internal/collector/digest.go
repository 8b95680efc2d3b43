// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jonasqin/automedia/internal/logging"
	"github.com/jonasqin/automedia/internal/models"
	"github.com/jonasqin/automedia/internal/realtime"
)

// digestWindow is how far back the daily digest counts new content.
const digestWindow = 24 * time.Hour

// dispatchDigests builds a daily summary for every opted-in user and
// delivers it as a notification event. A user with no connected clients
// simply misses the event; digests are not queued. Per-user isolation: one
// failed digest is logged and the walk continues.
func (o *Orchestrator) dispatchDigests(ctx context.Context) error {
	recipients, err := o.users.DigestRecipients(ctx)
	if err != nil {
		return fmt.Errorf("list digest recipients: %w", err)
	}
	if len(recipients) == 0 {
		return nil
	}

	topics, err := o.topics.ActiveAutoCollectTopics(ctx)
	if err != nil {
		return fmt.Errorf("load topics for digest: %w", err)
	}
	byOwner := make(map[string][]models.Topic)
	for _, t := range topics {
		byOwner[t.OwnerID] = append(byOwner[t.OwnerID], t)
	}

	since := time.Now().UTC().Add(-digestWindow)
	var failed int
	for _, user := range recipients {
		digest, err := o.buildDigest(ctx, byOwner[user.ID], since)
		if err != nil {
			failed++
			logging.Error().Err(err).Str("user_id", user.ID).Msg("digest build failed")
			continue
		}
		o.dist.PublishToUser(user.ID, realtime.EventNotification, realtime.NotificationData{
			Kind:  "daily_digest",
			Title: "Your daily AutoMedia digest",
			Body:  digest,
		})
	}

	logging.Info().Int("recipients", len(recipients)).Int("failed", failed).Msg("daily digests dispatched")
	if failed == len(recipients) {
		return fmt.Errorf("digest dispatch failed for all %d recipients", failed)
	}
	return nil
}

// buildDigest counts the last day's new items across the user's topics and
// ranks the topics by that count. Trends come from the cache, so a digest
// never triggers an external call.
func (o *Orchestrator) buildDigest(ctx context.Context, topics []models.Topic, since time.Time) (models.Digest, error) {
	type topicCount struct {
		name  string
		count int
	}

	var total int
	counts := make([]topicCount, 0, len(topics))
	for _, t := range topics {
		n, err := o.store.CountSince(ctx, t.ID, since)
		if err != nil {
			return models.Digest{}, fmt.Errorf("count for topic %s: %w", t.ID, err)
		}
		total += n
		if n > 0 {
			counts = append(counts, topicCount{name: t.Name, count: n})
		}
	}

	sort.Slice(counts, func(i, j int) bool { return counts[i].count > counts[j].count })
	top := make([]string, 0, 3)
	for i := 0; i < len(counts) && i < 3; i++ {
		top = append(top, counts[i].name)
	}

	var trends []models.Trend
	if len(o.cfg.TrendLocations) > 0 {
		trends = o.CachedTrends(o.cfg.TrendLocations[0])
	}

	return models.Digest{
		NewContentCount: total,
		TopTopics:       top,
		Trends:          trends,
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
	}, nil
}
