// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package collector

import (
	"context"
	"time"

	"github.com/jonasqin/automedia/internal/models"
)

// ContentStore persists collected items. Save must be idempotent on external
// ID and report only the items that were actually new.
type ContentStore interface {
	Save(ctx context.Context, items []models.ContentItem) ([]models.ContentItem, error)
	CountSince(ctx context.Context, topicID string, since time.Time) (int, error)
	UserStats(ctx context.Context, userID string) (models.UsageStats, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time, excludeGenerated bool) (int, error)
}

// TopicRegistry exposes the topics eligible for automatic collection and
// receives per-topic counter bumps after items are persisted.
type TopicRegistry interface {
	ActiveAutoCollectTopics(ctx context.Context) ([]models.Topic, error)
	BumpCount(ctx context.Context, topicID string, delta int) error
}

// UserDirectory lists the accounts the maintenance and digest tasks walk.
type UserDirectory interface {
	ActiveUsers(ctx context.Context) ([]models.UserSummary, error)
	DigestRecipients(ctx context.Context) ([]models.UserSummary, error)
}

// Distributor fans events out to connected clients. Satisfied by
// realtime.Hub; fire and forget, never blocks the caller.
type Distributor interface {
	PublishToUser(userID, eventType string, data interface{})
	PublishToRoom(room, eventType string, data interface{})
	PublishToAll(eventType string, data interface{})
}
