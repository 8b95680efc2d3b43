// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

// Package collector runs the scheduled collection pipeline: trend refresh,
// topic polling, retention cleanup, usage statistics, quota checks and the
// daily digest. Each job is an independent suture service on its own cadence;
// one job failing or running long never blocks another.
package collector

import (
	"sync"
	"time"

	"github.com/jonasqin/automedia/internal/config"
	"github.com/jonasqin/automedia/internal/models"
	"github.com/jonasqin/automedia/internal/source"
)

// Orchestrator owns the six collection tasks and the volatile caches they
// maintain (latest trends per location, latest usage stats per user). All
// caches are rebuilt from scratch on restart.
type Orchestrator struct {
	cfg     config.CollectorConfig
	src     source.ContentSource
	store   ContentStore
	topics  TopicRegistry
	users   UserDirectory
	tracker *RateLimitTracker
	dist    Distributor

	pageSize int
	tasks    []*Task

	trendMu    sync.RWMutex
	trendCache map[string][]models.Trend

	statsMu    sync.RWMutex
	statsCache map[string]models.UsageStats
}

// New wires the orchestrator and builds its task set. Tasks do not run until
// they are added to a supervisor via Tasks.
func New(cfg config.CollectorConfig, pageSize int, src source.ContentSource, store ContentStore,
	topics TopicRegistry, users UserDirectory, tracker *RateLimitTracker, dist Distributor) *Orchestrator {

	o := &Orchestrator{
		cfg:        cfg,
		src:        src,
		store:      store,
		topics:     topics,
		users:      users,
		tracker:    tracker,
		dist:       dist,
		pageSize:   pageSize,
		trendCache: make(map[string][]models.Trend),
		statsCache: make(map[string]models.UsageStats),
	}

	o.tasks = []*Task{
		newIntervalTask("trend_refresh", cfg.TrendInterval, true, o.refreshTrends),
		newIntervalTask("topic_poll", cfg.TopicPollInterval, true, o.pollTopics),
		newIntervalTask("cleanup", cfg.CleanupInterval, false, o.cleanupStale),
		newIntervalTask("stats_refresh", cfg.StatsInterval, true, o.refreshStats),
		newIntervalTask("quota_check", cfg.QuotaInterval, false, o.checkQuota),
		newDailyTask("digest", cfg.DigestHour, o.dispatchDigests),
	}
	return o
}

// Tasks returns the task set for supervisor registration.
func (o *Orchestrator) Tasks() []*Task { return o.tasks }

// TaskStates snapshots every task for the health endpoint.
func (o *Orchestrator) TaskStates() []TaskState {
	states := make([]TaskState, 0, len(o.tasks))
	for _, t := range o.tasks {
		states = append(states, t.State())
	}
	return states
}

// CachedTrends returns the last refreshed trends for a location and when
// nothing has been collected yet, an empty slice.
func (o *Orchestrator) CachedTrends(location string) []models.Trend {
	o.trendMu.RLock()
	defer o.trendMu.RUnlock()
	trends := o.trendCache[location]
	out := make([]models.Trend, len(trends))
	copy(out, trends)
	return out
}

func (o *Orchestrator) setTrends(location string, trends []models.Trend) {
	o.trendMu.Lock()
	o.trendCache[location] = trends
	o.trendMu.Unlock()
}

// CachedStats returns the last computed usage stats for a user.
func (o *Orchestrator) CachedStats(userID string) (models.UsageStats, bool) {
	o.statsMu.RLock()
	defer o.statsMu.RUnlock()
	stats, ok := o.statsCache[userID]
	return stats, ok
}

func (o *Orchestrator) setStats(userID string, stats models.UsageStats) {
	o.statsMu.Lock()
	o.statsCache[userID] = stats
	o.statsMu.Unlock()
}

func (o *Orchestrator) retentionCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -o.cfg.RetentionDays)
}
