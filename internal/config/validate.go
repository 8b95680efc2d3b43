// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate is a shared validator instance; it is stateless after creation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that required configuration is present and valid. Struct
// tags cover per-field shape; the hand-written checks below cover the
// cross-field and operational constraints tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid config field %s: failed %q constraint", first.Namespace(), first.Tag())
		}
		return fmt.Errorf("config validation: %w", err)
	}

	if err := c.validateCollector(); err != nil {
		return err
	}
	return c.validateStore()
}

// asValidationErrors unwraps validator.ValidationErrors without importing
// errors in every caller.
func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors) //nolint:errorlint // validator returns the concrete type directly
	if ok {
		*target = verrs
	}
	return ok
}

// validateCollector enforces sane task cadences. Sub-minute cadences would
// hammer the rate-limited source for no benefit.
func (c *Config) validateCollector() error {
	intervals := map[string]time.Duration{
		"TREND_INTERVAL":      c.Collector.TrendInterval,
		"TOPIC_POLL_INTERVAL": c.Collector.TopicPollInterval,
		"CLEANUP_INTERVAL":    c.Collector.CleanupInterval,
		"STATS_INTERVAL":      c.Collector.StatsInterval,
		"QUOTA_INTERVAL":      c.Collector.QuotaInterval,
	}
	for name, d := range intervals {
		if d < time.Minute {
			return fmt.Errorf("%s must be at least 1m, got %s", name, d)
		}
	}

	if c.Collector.QuotaWarnThresholdPct <= 0 || c.Collector.QuotaWarnThresholdPct >= 100 {
		return fmt.Errorf("QUOTA_WARN_THRESHOLD_PCT must be between 0 and 100 exclusive, got %v", c.Collector.QuotaWarnThresholdPct)
	}

	if len(c.Collector.TrendLocations) == 0 {
		return fmt.Errorf("TREND_LOCATIONS must name at least one location")
	}
	return nil
}

// validateStore requires a path unless the store is in-memory.
func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required when STORE_IN_MEMORY=false")
	}
	return nil
}
