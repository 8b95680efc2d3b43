// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

// Package store provides the BadgerDB-backed persistence layer: collected
// content, topics and the user directory, each under its own key prefix in
// one database. Content items are keyed by their external natural id, which
// makes Save idempotent and is the basis of collection dedup.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/jonasqin/automedia/internal/config"
	"github.com/jonasqin/automedia/internal/models"
)

// contentKeyPrefix namespaces collected items inside the key space.
const contentKeyPrefix = "content:"

// purgeBatchSize caps deletions per transaction to stay under Badger's
// transaction size limits.
const purgeBatchSize = 1000

// BadgerStore implements the collector's ContentStore over BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// Open opens (or creates) the store at the configured path. With
// cfg.InMemory set the store lives entirely in memory, which tests use.
func Open(cfg *config.StoreConfig) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger content store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Ready reports whether the database is open and accepting requests.
func (s *BadgerStore) Ready() bool {
	return s.db != nil && !s.db.IsClosed()
}

// contentKey builds the storage key for an external id.
func contentKey(externalID string) []byte {
	return []byte(contentKeyPrefix + externalID)
}

// Save persists items not already present and returns only the newly saved
// ones. Idempotent on the external id: resubmitting an item is a silent
// no-op, so duplicates are never double-counted or re-broadcast.
func (s *BadgerStore) Save(ctx context.Context, items []models.ContentItem) ([]models.ContentItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	saved := make([]models.ContentItem, 0, len(items))
	err := s.db.Update(func(txn *badger.Txn) error {
		for i := range items {
			item := items[i]
			if item.ExternalID == "" {
				continue
			}

			_, err := txn.Get(contentKey(item.ExternalID))
			if err == nil {
				continue // duplicate
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("lookup %s: %w", item.ExternalID, err)
			}

			if item.ID == uuid.Nil {
				item.ID = uuid.New()
			}
			if item.CollectedAt.IsZero() {
				item.CollectedAt = time.Now().UTC()
			}

			data, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", item.ExternalID, err)
			}
			if err := txn.Set(contentKey(item.ExternalID), data); err != nil {
				return fmt.Errorf("set %s: %w", item.ExternalID, err)
			}
			saved = append(saved, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Exists reports whether an external id is already persisted.
func (s *BadgerStore) Exists(ctx context.Context, externalID string) (bool, error) {
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(contentKey(externalID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", externalID, err)
	}
	return found, nil
}

// CountSince counts items attributed to a topic and collected at or after
// the given time.
func (s *BadgerStore) CountSince(ctx context.Context, topicID string, since time.Time) (int, error) {
	count := 0
	err := s.scan(func(item *models.ContentItem) error {
		if item.CollectedAt.Before(since) {
			return nil
		}
		for _, id := range item.TopicIDs {
			if id == topicID {
				count++
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count since for topic %s: %w", topicID, err)
	}
	return count, nil
}

// UserStats recomputes the per-user counters over the persisted corpus.
func (s *BadgerStore) UserStats(ctx context.Context, userID string) (models.UsageStats, error) {
	stats := models.UsageStats{UserID: userID, ComputedAt: time.Now().UTC()}
	topics := make(map[string]bool)

	err := s.scan(func(item *models.ContentItem) error {
		if item.UserID != userID {
			return nil
		}
		stats.ContentCount++
		for _, id := range item.TopicIDs {
			topics[id] = true
		}
		if item.CollectedAt.After(stats.LastActivity) {
			stats.LastActivity = item.CollectedAt
		}
		return nil
	})
	if err != nil {
		return models.UsageStats{}, fmt.Errorf("user stats for %s: %w", userID, err)
	}
	stats.TopicCount = len(topics)
	return stats, nil
}

// PurgeOlderThan deletes items collected before the cutoff and returns the
// number deleted. With excludeGenerated set, AI-generated items are kept
// regardless of age.
func (s *BadgerStore) PurgeOlderThan(ctx context.Context, cutoff time.Time, excludeGenerated bool) (int, error) {
	var stale [][]byte
	err := s.scan(func(item *models.ContentItem) error {
		if !item.CollectedAt.Before(cutoff) {
			return nil
		}
		if excludeGenerated && item.Generated {
			return nil
		}
		stale = append(stale, contentKey(item.ExternalID))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge scan: %w", err)
	}

	deleted := 0
	for start := 0; start < len(stale); start += purgeBatchSize {
		end := start + purgeBatchSize
		if end > len(stale) {
			end = len(stale)
		}
		batch := stale[start:end]
		err := s.db.Update(func(txn *badger.Txn) error {
			for _, key := range batch {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return deleted, fmt.Errorf("purge delete: %w", err)
		}
		deleted += len(batch)
	}
	return deleted, nil
}

// scan walks every persisted content item, decoding each into fn.
func (s *BadgerStore) scan(fn func(item *models.ContentItem) error) error {
	return s.scanPrefix(contentKeyPrefix, func(val []byte) error {
		var item models.ContentItem
		if err := json.Unmarshal(val, &item); err != nil {
			return fmt.Errorf("decode item: %w", err)
		}
		return fn(&item)
	})
}

// scanPrefix walks every value under a key prefix.
func (s *BadgerStore) scanPrefix(prefix string, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}
