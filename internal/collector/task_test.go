// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package collector

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestTickSkipsWhileInFlight(t *testing.T) {
	var runs atomic.Int32
	release := make(chan struct{})
	task := newIntervalTask("test", time.Minute, false, func(ctx context.Context) error {
		runs.Add(1)
		<-release
		return nil
	})

	ctx := context.Background()
	task.tick(ctx)

	// Wait until the first run holds the in-flight flag.
	deadline := time.Now().Add(2 * time.Second)
	for !task.inFlight.Load() {
		if time.Now().After(deadline) {
			t.Fatal("first run never started")
		}
		time.Sleep(time.Millisecond)
	}

	// Ticks during the run are skipped, not queued.
	task.tick(ctx)
	task.tick(ctx)

	close(release)
	task.wg.Wait()

	if got := runs.Load(); got != 1 {
		t.Errorf("expected 1 run, got %d", got)
	}
	state := task.State()
	if state.Runs != 1 {
		t.Errorf("state.Runs = %d, want 1", state.Runs)
	}
	if state.InFlight {
		t.Error("task should not be in flight after completion")
	}
}

func TestTickRecordsError(t *testing.T) {
	wantErr := errors.New("boom")
	task := newIntervalTask("test", time.Minute, false, func(ctx context.Context) error {
		return wantErr
	})

	task.tick(context.Background())
	task.wg.Wait()

	state := task.State()
	if state.LastError != "boom" {
		t.Errorf("state.LastError = %q, want %q", state.LastError, "boom")
	}
	if state.LastRun.IsZero() {
		t.Error("LastRun not recorded")
	}

	// A later successful run clears the error.
	task.run = func(ctx context.Context) error { return nil }
	task.tick(context.Background())
	task.wg.Wait()
	if state := task.State(); state.LastError != "" {
		t.Errorf("error should clear on success, got %q", state.LastError)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	task := newIntervalTask("test", 10*time.Millisecond, false, func(ctx context.Context) error {
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- task.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}

func TestRunAtStart(t *testing.T) {
	var runs atomic.Int32
	task := newIntervalTask("test", time.Hour, true, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- task.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("startup run never happened")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
}

func TestNextDailyRun(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{
			"before hour same day",
			time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC), 8,
			time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC),
		},
		{
			"after hour next day",
			time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC), 8,
			time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC),
		},
		{
			"exactly at hour schedules tomorrow",
			time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC), 8,
			time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC),
		},
		{
			"midnight hour",
			time.Date(2026, 8, 30, 23, 59, 0, 0, time.UTC), 0,
			time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextDailyRun(tt.now, tt.hour); !got.Equal(tt.want) {
				t.Errorf("nextDailyRun(%v, %d) = %v, want %v", tt.now, tt.hour, got, tt.want)
			}
		})
	}
}
