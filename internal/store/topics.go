// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/jonasqin/automedia/internal/models"
)

const topicKeyPrefix = "topic:"

func topicKey(id string) []byte {
	return []byte(topicKeyPrefix + id)
}

// PutTopic creates or replaces a topic.
func (s *BadgerStore) PutTopic(ctx context.Context, topic models.Topic) error {
	if topic.ID == "" {
		return errors.New("topic id required")
	}
	data, err := json.Marshal(topic)
	if err != nil {
		return fmt.Errorf("marshal topic %s: %w", topic.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(topicKey(topic.ID), data)
	})
	if err != nil {
		return fmt.Errorf("put topic %s: %w", topic.ID, err)
	}
	return nil
}

// Topic fetches one topic by id.
func (s *BadgerStore) Topic(ctx context.Context, id string) (models.Topic, error) {
	var topic models.Topic
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(topicKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &topic)
		})
	})
	if err != nil {
		return models.Topic{}, fmt.Errorf("get topic %s: %w", id, err)
	}
	return topic, nil
}

// ActiveAutoCollectTopics lists every topic with auto-collection enabled,
// ordered by id for deterministic polling.
func (s *BadgerStore) ActiveAutoCollectTopics(ctx context.Context) ([]models.Topic, error) {
	var topics []models.Topic
	err := s.scanPrefix(topicKeyPrefix, func(val []byte) error {
		var topic models.Topic
		if err := json.Unmarshal(val, &topic); err != nil {
			return fmt.Errorf("decode topic: %w", err)
		}
		if topic.AutoCollect {
			topics = append(topics, topic)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list auto-collect topics: %w", err)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return topics, nil
}

// BumpCount adds delta to a topic's content counter and stamps LastUpdated.
// Read-modify-write inside one transaction so concurrent bumps don't lose
// updates.
func (s *BadgerStore) BumpCount(ctx context.Context, topicID string, delta int) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(topicKey(topicID))
		if err != nil {
			return err
		}
		var topic models.Topic
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &topic)
		}); err != nil {
			return err
		}

		topic.ContentCount += delta
		if topic.ContentCount < 0 {
			topic.ContentCount = 0
		}
		topic.LastUpdated = time.Now().UTC()

		data, err := json.Marshal(topic)
		if err != nil {
			return err
		}
		return txn.Set(topicKey(topicID), data)
	})
	if err != nil {
		return fmt.Errorf("bump count for topic %s: %w", topicID, err)
	}
	return nil
}
