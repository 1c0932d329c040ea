package lifecycle

import (
	"context"
	"time"
)

// RunSweepLoop runs sweep every interval until the context ends. The
// sweep runs on the loop goroutine and the ticker drops ticks that land
// while one is still running, so sweeps never overlap or stack.
func (c *Coordinator) RunSweepLoop(ctx context.Context, name string, interval time.Duration, sweep func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			started := time.Now()
			if err := sweep(ctx); err != nil && ctx.Err() == nil {
				c.logger.LogSweepError(ctx, name, err)
			}
			took := time.Since(started)
			c.metrics.RecordSweep(ctx, name, took.Seconds())
			if took > interval {
				c.logger.Warn().Str("sweep", name).Dur("took", took).Msg("sweep overran its interval")
			}
		}
	}
}

// OrphanSweep scans every owner with stored state for orphaned resources
func (c *Coordinator) OrphanSweep(ctx context.Context) error {
	owners, err := c.store.Owners()
	if err != nil {
		return err
	}

	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.DetectOrphanedResources(ctx, owner); err != nil {
			// One owner's busted credentials must not starve the rest
			c.logger.Error().Err(err).Str("owner_id", owner).Msg("orphan scan failed for owner")
		}
	}
	return nil
}

// RightsizingSweep refreshes downsize recommendations from the current
// orphan inventory
func (c *Coordinator) RightsizingSweep(ctx context.Context) error {
	owners, err := c.store.Owners()
	if err != nil {
		return err
	}

	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return err
		}
		created, err := c.deriveRecommendations(ctx, owner)
		if err != nil {
			c.logger.Error().Err(err).Str("owner_id", owner).Msg("rightsizing derivation failed for owner")
			continue
		}
		if created > 0 {
			c.logger.Info().Str("owner_id", owner).Int("recommendations", created).Msg("rightsizing recommendations refreshed")
		}
	}
	return nil
}

// SelfHealSweep converges the in-memory registry with the store. A
// schedule persisted by a previous process run that somehow lost its
// cron entry gets re-registered, and entries whose records are gone get
// cancelled.
func (c *Coordinator) SelfHealSweep(ctx context.Context) error {
	schedules, err := c.store.AllSchedules()
	if err != nil {
		return err
	}

	stored := make(map[string]bool)
	for _, rec := range schedules {
		stored[rec.ID] = true
		if !c.registry.Registered(rec.ID) {
			c.logger.Warn().Str("schedule_id", rec.ID).Msg("schedule missing from registry, re-registering")
			if err := c.registry.Register(rec); err != nil {
				c.logger.Error().Err(err).Str("schedule_id", rec.ID).Msg("failed to re-register schedule")
			}
			continue
		}
		// Align pause state with the store
		if rec.Active {
			if err := c.registry.Resume(rec.ID); err != nil {
				c.logger.Error().Err(err).Str("schedule_id", rec.ID).Msg("failed to resume schedule")
			}
		} else {
			if err := c.registry.Pause(rec.ID); err != nil {
				c.logger.Error().Err(err).Str("schedule_id", rec.ID).Msg("failed to pause schedule")
			}
		}
	}

	for _, id := range c.registry.IDs() {
		if !stored[id] {
			c.logger.Warn().Str("schedule_id", id).Msg("registry entry has no stored record, cancelling")
			c.registry.Cancel(id)
		}
	}
	return nil
}
