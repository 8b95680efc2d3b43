// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/jonasqin/automedia/internal/models"
	"github.com/jonasqin/automedia/internal/source"
)

func TestTrackerObserve(t *testing.T) {
	tracker := NewRateLimitTracker(newFakeSource())

	tracker.Observe(models.QuotaSnapshot{Endpoint: source.EndpointSearch, Remaining: 42, Limit: 450})

	snap, ok := tracker.Snapshot(source.EndpointSearch)
	if !ok {
		t.Fatal("expected snapshot after observe")
	}
	if snap.Remaining != 42 || snap.Limit != 450 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestTrackerObserveIgnoresBlankEndpoint(t *testing.T) {
	tracker := NewRateLimitTracker(newFakeSource())
	tracker.Observe(models.QuotaSnapshot{Remaining: 1})

	if snaps := tracker.Snapshots(); len(snaps) != 0 {
		t.Errorf("blank endpoint must be ignored, got %v", snaps)
	}
}

func TestTrackerRefresh(t *testing.T) {
	src := newFakeSource()
	src.quota[source.EndpointSearch] = models.QuotaSnapshot{Remaining: 100, Limit: 450}
	tracker := NewRateLimitTracker(src)

	if err := tracker.Refresh(context.Background(), source.EndpointSearch); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	snap, ok := tracker.Snapshot(source.EndpointSearch)
	if !ok || snap.Remaining != 100 {
		t.Errorf("unexpected snapshot after refresh: %+v ok=%v", snap, ok)
	}
}

func TestTrackerRefreshFailureKeepsSnapshot(t *testing.T) {
	src := newFakeSource()
	tracker := NewRateLimitTracker(src)
	tracker.Observe(models.QuotaSnapshot{Endpoint: source.EndpointSearch, Remaining: 42, Limit: 450})

	src.quotaErr = errors.New("upstream down")
	if err := tracker.Refresh(context.Background(), source.EndpointSearch); err == nil {
		t.Fatal("expected refresh error")
	}

	snap, ok := tracker.Snapshot(source.EndpointSearch)
	if !ok || snap.Remaining != 42 {
		t.Errorf("failed refresh must keep previous snapshot, got %+v ok=%v", snap, ok)
	}
}

func TestTrackerIsLow(t *testing.T) {
	tracker := NewRateLimitTracker(newFakeSource())

	tests := []struct {
		name      string
		snap      models.QuotaSnapshot
		threshold float64
		want      bool
	}{
		{"well above threshold", models.QuotaSnapshot{Endpoint: "a", Remaining: 400, Limit: 450}, 10, false},
		{"below threshold", models.QuotaSnapshot{Endpoint: "b", Remaining: 5, Limit: 1000}, 10, true},
		{"exactly at threshold", models.QuotaSnapshot{Endpoint: "c", Remaining: 100, Limit: 1000}, 10, false},
		{"zero limit never low", models.QuotaSnapshot{Endpoint: "d", Remaining: 0, Limit: 0}, 10, false},
		{"exhausted", models.QuotaSnapshot{Endpoint: "e", Remaining: 0, Limit: 450}, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker.Observe(tt.snap)
			if got := tracker.IsLow(tt.snap.Endpoint, tt.threshold); got != tt.want {
				t.Errorf("IsLow(%s, %v) = %v, want %v", tt.snap.Endpoint, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestTrackerIsLowUnknownEndpoint(t *testing.T) {
	tracker := NewRateLimitTracker(newFakeSource())
	if tracker.IsLow("never-seen", 10) {
		t.Error("unknown endpoint must not report low")
	}
}
