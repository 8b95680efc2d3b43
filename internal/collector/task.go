// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package collector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonasqin/automedia/internal/logging"
	"github.com/jonasqin/automedia/internal/metrics"
)

// Task is one scheduled collection job. Each task owns its own loop so a
// slow or failing task never delays its siblings. Ticks that fire while a
// previous run is still in flight are skipped, not queued.
type Task struct {
	name     string
	interval time.Duration
	// dailyHour schedules the task once per day at the given local hour
	// instead of on a fixed interval. Only valid when interval is zero.
	dailyHour  int
	daily      bool
	runAtStart bool
	run        func(ctx context.Context) error

	inFlight atomic.Bool
	wg       sync.WaitGroup

	mu      sync.RWMutex
	lastRun time.Time
	lastErr error
	runs    uint64
}

// TaskState is a point-in-time view of a task for the health endpoint.
type TaskState struct {
	Name      string    `json:"name"`
	InFlight  bool      `json:"inFlight"`
	Runs      uint64    `json:"runs"`
	LastRun   time.Time `json:"lastRun"`
	LastError string    `json:"lastError,omitempty"`
}

func newIntervalTask(name string, interval time.Duration, runAtStart bool, run func(ctx context.Context) error) *Task {
	return &Task{name: name, interval: interval, runAtStart: runAtStart, run: run}
}

func newDailyTask(name string, hour int, run func(ctx context.Context) error) *Task {
	return &Task{name: name, daily: true, dailyHour: hour, run: run}
}

func (t *Task) Name() string { return t.name }

// Serve implements suture.Service. It blocks until ctx is canceled, then
// waits for any in-flight run to finish before returning.
func (t *Task) Serve(ctx context.Context) error {
	logging.Info().
		Str("task", t.name).
		Dur("interval", t.interval).
		Bool("daily", t.daily).
		Msg("starting collection task")

	if t.runAtStart {
		t.tick(ctx)
	}

	if t.daily {
		t.serveDaily(ctx)
	} else {
		t.serveInterval(ctx)
	}

	t.wg.Wait()
	logging.Info().Str("task", t.name).Msg("collection task stopped")
	return ctx.Err()
}

func (t *Task) serveInterval(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

func (t *Task) serveDaily(ctx context.Context) {
	for {
		timer := time.NewTimer(time.Until(nextDailyRun(time.Now().UTC(), t.dailyHour)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			t.tick(ctx)
		}
	}
}

// nextDailyRun returns the next occurrence of hour:00 strictly after now.
func nextDailyRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// tick launches one run unless the previous one is still going. Runs get a
// context detached from the loop's cancellation so an in-flight pass can
// finish its writes during shutdown; the supervisor's stop timeout bounds it.
func (t *Task) tick(ctx context.Context) {
	if !t.inFlight.CompareAndSwap(false, true) {
		metrics.TaskRuns.WithLabelValues(t.name, "skipped").Inc()
		logging.Warn().Str("task", t.name).Msg("previous run still in flight, skipping tick")
		return
	}

	runCtx := context.WithoutCancel(ctx)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.inFlight.Store(false)

		start := time.Now()
		err := t.run(runCtx)
		elapsed := time.Since(start)

		metrics.TaskDuration.WithLabelValues(t.name).Observe(elapsed.Seconds())
		outcome := "success"
		if err != nil {
			outcome = "error"
			logging.Error().Err(err).Str("task", t.name).Dur("elapsed", elapsed).Msg("collection task run failed")
		} else {
			logging.Debug().Str("task", t.name).Dur("elapsed", elapsed).Msg("collection task run finished")
		}
		metrics.TaskRuns.WithLabelValues(t.name, outcome).Inc()

		t.mu.Lock()
		t.lastRun = start
		t.lastErr = err
		t.runs++
		t.mu.Unlock()
	}()
}

// State snapshots the task for introspection.
func (t *Task) State() TaskState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state := TaskState{
		Name:     t.name,
		InFlight: t.inFlight.Load(),
		Runs:     t.runs,
		LastRun:  t.lastRun,
	}
	if t.lastErr != nil {
		state.LastError = t.lastErr.Error()
	}
	return state
}
