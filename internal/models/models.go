// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

// Package models defines the shared data types exchanged between the
// collector, the content store, and the realtime distribution layer.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ContentItem is one collected piece of social-media content.
//
// ExternalID is the natural identifier assigned by the external source and is
// the dedup key: an item whose ExternalID already exists in the store is a
// duplicate and is dropped silently.
type ContentItem struct {
	ID          uuid.UUID `json:"id"`
	ExternalID  string    `json:"external_id"`
	Text        string    `json:"text"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	Source      string    `json:"source"`
	Generated   bool      `json:"generated"`
	UserID      string    `json:"user_id"`
	TopicIDs    []string  `json:"topic_ids,omitempty"`
	PostedAt    time.Time `json:"posted_at"`
	CollectedAt time.Time `json:"collected_at"`
}

// Topic is an externally owned keyword grouping. The collector only ever
// increments ContentCount and refreshes LastUpdated; it never creates,
// deletes, or decrements topics.
type Topic struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Name         string    `json:"name"`
	Keywords     []string  `json:"keywords"`
	ContentCount int       `json:"content_count"`
	AutoCollect  bool      `json:"auto_collect"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Trend is one trending entry for a location.
type Trend struct {
	Name   string `json:"name"`
	Query  string `json:"query,omitempty"`
	Volume int64  `json:"volume,omitempty"`
}

// QuotaSnapshot is the last known remaining-call budget for one external
// endpoint. Read-mostly; refreshed on a cadence and opportunistically after
// external calls.
type QuotaSnapshot struct {
	Endpoint  string    `json:"endpoint"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"reset_at"`
}

// PercentRemaining returns the remaining budget as a percentage of the limit.
// A zero limit reports 100 to avoid false low-quota warnings on endpoints the
// source never reported on.
func (q QuotaSnapshot) PercentRemaining() float64 {
	if q.Limit <= 0 {
		return 100
	}
	return float64(q.Remaining) / float64(q.Limit) * 100
}

// User is a platform account as the collector sees it. A fuller profile
// lives with the account service; this carries only what collection and
// digest delivery need.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Active      bool      `json:"active"`
	DigestOptIn bool      `json:"digest_opt_in"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summary reduces a user to its introspection form.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email}
}

// UserSummary identifies a user for introspection and digest delivery.
type UserSummary struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Connections int    `json:"connections,omitempty"`
}

// UsageStats holds per-user counters recomputed by the statistics task.
type UsageStats struct {
	UserID       string    `json:"user_id"`
	ContentCount int       `json:"content_count"`
	TopicCount   int       `json:"topic_count"`
	LastActivity time.Time `json:"last_activity"`
	ComputedAt   time.Time `json:"computed_at"`
}

// Digest summarizes recent activity for one opted-in user.
type Digest struct {
	NewContentCount int      `json:"new_content_count"`
	TopTopics       []string `json:"top_topics"`
	Trends          []Trend  `json:"trends,omitempty"`
	GeneratedAt     string   `json:"generated_at"`
}
