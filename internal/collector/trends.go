// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package collector

import (
	"context"
	"fmt"

	"github.com/jonasqin/automedia/internal/logging"
	"github.com/jonasqin/automedia/internal/realtime"
)

// refreshTrends fetches trending topics for every configured location,
// updates the trend cache and broadcasts to the location's room. Locations
// are isolated from each other: a failed fetch leaves that location's cached
// trends in place and the pass moves on.
func (o *Orchestrator) refreshTrends(ctx context.Context) error {
	var failed int
	for _, location := range o.cfg.TrendLocations {
		trends, err := o.src.Trending(ctx, location)
		if err != nil {
			failed++
			logging.Error().Err(err).Str("location", location).Msg("trend fetch failed, keeping cached trends")
			continue
		}

		o.setTrends(location, trends)
		o.dist.PublishToRoom(realtime.TrendsRoom(location), realtime.EventTrendUpdated, realtime.TrendUpdateData{
			Trends:   trends,
			Location: location,
		})
		logging.Debug().Str("location", location).Int("trends", len(trends)).Msg("trends refreshed")
	}

	if failed == len(o.cfg.TrendLocations) && failed > 0 {
		return fmt.Errorf("trend refresh failed for all %d locations", failed)
	}
	return nil
}
