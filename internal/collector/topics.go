// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonasqin/automedia/internal/logging"
	"github.com/jonasqin/automedia/internal/metrics"
	"github.com/jonasqin/automedia/internal/models"
	"github.com/jonasqin/automedia/internal/realtime"
	"github.com/jonasqin/automedia/internal/source"
)

// pollTopics walks every auto-collect topic, searches the source for its
// keywords and pushes the new items through persist, counter bump and
// broadcast, in that order. Topics are isolated: one topic failing is logged
// and the pass continues with the next.
func (o *Orchestrator) pollTopics(ctx context.Context) error {
	topics, err := o.topics.ActiveAutoCollectTopics(ctx)
	if err != nil {
		return fmt.Errorf("load auto-collect topics: %w", err)
	}
	if len(topics) == 0 {
		return nil
	}

	var failed int
	for i := range topics {
		if err := o.pollTopic(ctx, &topics[i], topics); err != nil {
			failed++
			logging.Error().Err(err).
				Str("topic_id", topics[i].ID).
				Str("topic", topics[i].Name).
				Msg("topic poll failed")
		}
	}

	if failed == len(topics) {
		return fmt.Errorf("all %d topic polls failed", failed)
	}
	return nil
}

func (o *Orchestrator) pollTopic(ctx context.Context, topic *models.Topic, all []models.Topic) error {
	query := keywordQuery(topic.Keywords)
	if query == "" {
		// Nothing to search for. Not an error and not worth a source call.
		logging.Debug().Str("topic_id", topic.ID).Msg("topic has no keywords, skipping")
		return nil
	}

	items, err := o.src.Search(ctx, query, source.SearchOptions{MaxResults: o.pageSize})
	if err != nil {
		return fmt.Errorf("search %q: %w", query, err)
	}
	if len(items) == 0 {
		return nil
	}

	// Attribute each item to every topic whose keywords match its text, not
	// just the topic whose query fetched it.
	for i := range items {
		items[i].UserID = topic.OwnerID
		items[i].TopicIDs = matchTopics(items[i].Text, all)
	}

	saved, err := o.store.Save(ctx, items)
	if err != nil {
		return fmt.Errorf("persist items: %w", err)
	}
	metrics.ItemsCollected.WithLabelValues("new").Add(float64(len(saved)))
	metrics.ItemsCollected.WithLabelValues("duplicate").Add(float64(len(items) - len(saved)))
	if len(saved) == 0 {
		return nil
	}

	// Counters only ever reflect persisted items, so bump strictly after the
	// store accepted the batch.
	for topicID, delta := range countByTopic(saved) {
		if err := o.topics.BumpCount(ctx, topicID, delta); err != nil {
			logging.Error().Err(err).Str("topic_id", topicID).Int("delta", delta).Msg("topic counter bump failed")
		}
	}

	for i := range saved {
		data := realtime.TweetCollectedData{
			Tweet:    saved[i],
			TopicID:  topic.ID,
			TopicIDs: saved[i].TopicIDs,
		}
		o.dist.PublishToUser(topic.OwnerID, realtime.EventTweetCollected, data)
		o.dist.PublishToRoom(realtime.TopicRoom(topic.ID), realtime.EventTweetCollected, data)
	}

	logging.Info().
		Str("topic_id", topic.ID).
		Str("topic", topic.Name).
		Int("fetched", len(items)).
		Int("new", len(saved)).
		Msg("topic poll collected items")
	return nil
}

// keywordQuery joins a topic's keywords into a single OR search query.
func keywordQuery(keywords []string) string {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			terms = append(terms, kw)
		}
	}
	return strings.Join(terms, " OR ")
}

// matchTopics returns the IDs of every topic with at least one keyword
// contained in text, compared case-insensitively.
// TODO: switch to word-boundary matching so "art" stops matching "startup";
// needs the tokenizer to handle hashtags and @mentions first.
func matchTopics(text string, topics []models.Topic) []string {
	lower := strings.ToLower(text)
	var ids []string
	for i := range topics {
		for _, kw := range topics[i].Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(lower, kw) {
				ids = append(ids, topics[i].ID)
				break
			}
		}
	}
	return ids
}

func countByTopic(items []models.ContentItem) map[string]int {
	counts := make(map[string]int)
	for i := range items {
		for _, topicID := range items[i].TopicIDs {
			counts[topicID]++
		}
	}
	return counts
}
