// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package store

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/jonasqin/automedia/internal/config"
	"github.com/jonasqin/automedia/internal/logging"
	"github.com/jonasqin/automedia/internal/models"
)

func init() {
	// Initialize logging for tests with discard output
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := Open(&config.StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testItem(externalID string) models.ContentItem {
	return models.ContentItem{
		ExternalID: externalID,
		Text:       "text for " + externalID,
		Source:     "twitter",
	}
}

func TestSaveIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, []models.ContentItem{testItem("100"), testItem("200")})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 saved, got %d", len(saved))
	}
	for _, item := range saved {
		if item.ID.String() == "00000000-0000-0000-0000-000000000000" {
			t.Error("saved item missing generated id")
		}
		if item.CollectedAt.IsZero() {
			t.Error("saved item missing CollectedAt")
		}
	}

	// Resubmitting one known and one new item saves only the new one.
	saved, err = s.Save(ctx, []models.ContentItem{testItem("100"), testItem("300")})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if len(saved) != 1 || saved[0].ExternalID != "300" {
		t.Fatalf("expected only item 300 saved, got %+v", saved)
	}
}

func TestSaveSkipsBlankExternalID(t *testing.T) {
	s := openTestStore(t)

	saved, err := s.Save(context.Background(), []models.ContentItem{{Text: "no id"}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(saved) != 0 {
		t.Errorf("item without external id must be skipped, got %d saved", len(saved))
	}
}

func TestExists(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, []models.ContentItem{testItem("100")}); err != nil {
		t.Fatalf("save: %v", err)
	}

	found, err := s.Exists(ctx, "100")
	if err != nil || !found {
		t.Errorf("Exists(100) = %v, %v; want true, nil", found, err)
	}
	found, err = s.Exists(ctx, "missing")
	if err != nil || found {
		t.Errorf("Exists(missing) = %v, %v; want false, nil", found, err)
	}
}

func TestCountSince(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := testItem("old")
	old.TopicIDs = []string{"t1"}
	old.CollectedAt = now.Add(-48 * time.Hour)

	recent := testItem("recent")
	recent.TopicIDs = []string{"t1", "t2"}
	recent.CollectedAt = now.Add(-time.Hour)

	other := testItem("other")
	other.TopicIDs = []string{"t2"}
	other.CollectedAt = now.Add(-time.Hour)

	if _, err := s.Save(ctx, []models.ContentItem{old, recent, other}); err != nil {
		t.Fatalf("save: %v", err)
	}

	since := now.Add(-24 * time.Hour)
	count, err := s.CountSince(ctx, "t1", since)
	if err != nil {
		t.Fatalf("count since: %v", err)
	}
	if count != 1 {
		t.Errorf("CountSince(t1) = %d, want 1", count)
	}
	count, _ = s.CountSince(ctx, "t2", since)
	if count != 2 {
		t.Errorf("CountSince(t2) = %d, want 2", count)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := testItem("stale")
	stale.CollectedAt = now.AddDate(0, 0, -45)

	generated := testItem("generated")
	generated.CollectedAt = now.AddDate(0, 0, -45)
	generated.Generated = true

	fresh := testItem("fresh")
	fresh.CollectedAt = now

	if _, err := s.Save(ctx, []models.ContentItem{stale, generated, fresh}); err != nil {
		t.Fatalf("save: %v", err)
	}

	deleted, err := s.PurgeOlderThan(ctx, now.AddDate(0, 0, -30), true)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	for id, want := range map[string]bool{"stale": false, "generated": true, "fresh": true} {
		found, _ := s.Exists(ctx, id)
		if found != want {
			t.Errorf("after purge Exists(%s) = %v, want %v", id, found, want)
		}
	}
}

func TestUserStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := testItem("1")
	first.UserID = "u1"
	first.TopicIDs = []string{"t1"}
	first.CollectedAt = now.Add(-2 * time.Hour)

	second := testItem("2")
	second.UserID = "u1"
	second.TopicIDs = []string{"t1", "t2"}
	second.CollectedAt = now.Add(-time.Hour)

	foreign := testItem("3")
	foreign.UserID = "u2"

	if _, err := s.Save(ctx, []models.ContentItem{first, second, foreign}); err != nil {
		t.Fatalf("save: %v", err)
	}

	stats, err := s.UserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("user stats: %v", err)
	}
	if stats.ContentCount != 2 {
		t.Errorf("ContentCount = %d, want 2", stats.ContentCount)
	}
	if stats.TopicCount != 2 {
		t.Errorf("TopicCount = %d, want 2", stats.TopicCount)
	}
	if !stats.LastActivity.Equal(second.CollectedAt) {
		t.Errorf("LastActivity = %v, want %v", stats.LastActivity, second.CollectedAt)
	}
}

func TestTopicRegistry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	topics := []models.Topic{
		{ID: "t1", OwnerID: "u1", Name: "Go", Keywords: []string{"golang"}, AutoCollect: true},
		{ID: "t2", OwnerID: "u1", Name: "Manual", Keywords: []string{"manual"}, AutoCollect: false},
		{ID: "t3", OwnerID: "u2", Name: "Rust", Keywords: []string{"rust"}, AutoCollect: true},
	}
	for _, topic := range topics {
		if err := s.PutTopic(ctx, topic); err != nil {
			t.Fatalf("put topic %s: %v", topic.ID, err)
		}
	}

	active, err := s.ActiveAutoCollectTopics(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 auto-collect topics, got %d", len(active))
	}
	if active[0].ID != "t1" || active[1].ID != "t3" {
		t.Errorf("expected deterministic order [t1 t3], got [%s %s]", active[0].ID, active[1].ID)
	}
}

func TestBumpCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.PutTopic(ctx, models.Topic{ID: "t1", Name: "Go", AutoCollect: true}); err != nil {
		t.Fatalf("put topic: %v", err)
	}

	if err := s.BumpCount(ctx, "t1", 3); err != nil {
		t.Fatalf("bump: %v", err)
	}
	if err := s.BumpCount(ctx, "t1", 2); err != nil {
		t.Fatalf("bump: %v", err)
	}

	topic, err := s.Topic(ctx, "t1")
	if err != nil {
		t.Fatalf("get topic: %v", err)
	}
	if topic.ContentCount != 5 {
		t.Errorf("ContentCount = %d, want 5", topic.ContentCount)
	}
	if topic.LastUpdated.IsZero() {
		t.Error("LastUpdated not stamped by bump")
	}

	if err := s.BumpCount(ctx, "missing", 1); err == nil {
		t.Error("bump on missing topic should fail")
	}
}

func TestUserDirectory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	users := []models.User{
		{ID: "u1", Email: "u1@example.com", Active: true, DigestOptIn: true},
		{ID: "u2", Email: "u2@example.com", Active: true},
		{ID: "u3", Email: "u3@example.com", Active: false, DigestOptIn: true},
	}
	for _, user := range users {
		if err := s.PutUser(ctx, user); err != nil {
			t.Fatalf("put user %s: %v", user.ID, err)
		}
	}

	active, err := s.ActiveUsers(ctx)
	if err != nil {
		t.Fatalf("active users: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("expected 2 active users, got %d", len(active))
	}

	recipients, err := s.DigestRecipients(ctx)
	if err != nil {
		t.Fatalf("digest recipients: %v", err)
	}
	// Only active opted-in users receive digests.
	if len(recipients) != 1 || recipients[0].ID != "u1" {
		t.Errorf("expected [u1], got %+v", recipients)
	}
}

func TestReady(t *testing.T) {
	s := openTestStore(t)
	if !s.Ready() {
		t.Error("open store should report ready")
	}
	_ = s.Close()
	if s.Ready() {
		t.Error("closed store should not report ready")
	}
}
