package syncer

import (
	"context"
	"sync"
	"time"

	"coinwatch-go/internal/config"
	"coinwatch-go/internal/feed"
	"coinwatch-go/internal/models"
	"coinwatch-go/internal/store"
	"go.uber.org/zap"
)

// Coordinator runs at most one reconciliation pass at a time and keeps
// SyncState accurate. Scheduled and manual triggers share TriggerSync,
// so both paths go through the same check-and-set.
type Coordinator struct {
	logger    *zap.Logger
	fetcher   feed.PageFetcher
	catalog   *store.Catalog
	pageSize  int
	maxAssets int
	interval  time.Duration

	mu    sync.Mutex
	state SyncState
}

// NewCoordinator creates a coordinator in the Idle state.
func NewCoordinator(logger *zap.Logger, fetcher feed.PageFetcher, catalog *store.Catalog, cfg *config.Config) *Coordinator {
	return &Coordinator{
		logger:    logger,
		fetcher:   fetcher,
		catalog:   catalog,
		pageSize:  cfg.Feed.PageSize,
		maxAssets: cfg.Feed.MaxAssets,
		interval:  cfg.Sync.Interval(),
		state: SyncState{
			DataSource: cfg.Sync.DataSource,
		},
	}
}

// TriggerSync launches a reconciliation pass unless one is already
// running, and returns immediately. A second trigger while a pass is
// running is a no-op, not an error. The context must outlive the pass
// (process lifetime, not request lifetime); cancelling it makes the pass
// finish its current page and stop.
func (c *Coordinator) TriggerSync(ctx context.Context) (message string, started bool) {
	c.mu.Lock()
	if c.state.InProgress {
		c.mu.Unlock()
		return "sync already in progress", false
	}
	c.state.InProgress = true
	c.mu.Unlock()

	go c.runPass(ctx)
	return "sync started", true
}

// MarkScheduledTick records when the scheduler last fired, feeding the
// next-sync estimate in Status.
func (c *Coordinator) MarkScheduledTick(at time.Time) {
	c.mu.Lock()
	c.state.LastScheduledTick = at
	c.mu.Unlock()
}

// Status returns a copy of the current sync state.
func (c *Coordinator) Status() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		InProgress:        c.state.InProgress,
		LastCompletedAt:   c.state.LastCompletedAt,
		ConsecutiveErrors: c.state.ConsecutiveErrors,
		DataSource:        c.state.DataSource,
	}
	if !c.state.LastScheduledTick.IsZero() {
		snap.NextSyncEstimate = c.state.LastScheduledTick.Add(c.interval)
	}
	return snap
}

// runPass iterates feed pages and reconciles each record into the
// catalog. Failures abort the remainder of the pass but keep the
// updates already applied; the next run re-reconciles.
func (c *Coordinator) runPass(ctx context.Context) {
	startedAt := time.Now()
	c.logger.Info("Starting catalog sync",
		zap.Int("page_size", c.pageSize),
		zap.Int("max_assets", c.maxAssets),
	)

	var (
		passErr  error
		aborted  bool
		inserted int
		updated  int
	)

	pages := (c.maxAssets + c.pageSize - 1) / c.pageSize
	remaining := c.maxAssets

pass:
	for page := 1; page <= pages; page++ {
		// Shutdown: the previous page was applied in full, skip the rest.
		if ctx.Err() != nil {
			aborted = true
			break
		}

		records, err := c.fetcher.FetchPage(ctx, page, c.pageSize)
		if err != nil {
			if ctx.Err() != nil {
				aborted = true
				break
			}
			passErr = err
			break
		}
		if len(records) == 0 {
			break // feed exhausted before the cap; clean stop
		}
		if len(records) > remaining {
			records = records[:remaining]
		}
		remaining -= len(records)

		now := time.Now()
		for i := range records {
			asset := normalizeRecord(&records[i], now)
			outcome, err := c.catalog.Upsert(&asset)
			if err != nil {
				passErr = err
				break pass
			}
			switch outcome {
			case store.OutcomeInserted:
				inserted++
			case store.OutcomeUpdated:
				updated++
			}
			if err := c.catalog.AppendPricePoint(asset.ID, asset.CurrentPrice, asset.MarketCap, asset.TotalVolume, now); err != nil {
				// History is best-effort; the catalog row is already current.
				c.logger.Warn("Failed to record price point",
					zap.String("external_id", asset.ExternalID), zap.Error(err))
			}
		}
	}

	c.mu.Lock()
	c.state.InProgress = false
	switch {
	case passErr != nil:
		c.state.ConsecutiveErrors++
	case aborted:
		// Neither a completion nor a failure; the next run picks up.
	default:
		c.state.LastCompletedAt = time.Now()
		c.state.ConsecutiveErrors = 0
	}
	errCount := c.state.ConsecutiveErrors
	c.mu.Unlock()

	elapsed := time.Since(startedAt)
	switch {
	case passErr != nil:
		c.logger.Error("Catalog sync failed",
			zap.Int("inserted", inserted),
			zap.Int("updated", updated),
			zap.Int("consecutive_errors", errCount),
			zap.Duration("elapsed", elapsed),
			zap.Error(passErr),
		)
	case aborted:
		c.logger.Info("Catalog sync aborted by shutdown",
			zap.Int("inserted", inserted),
			zap.Int("updated", updated),
			zap.Duration("elapsed", elapsed),
		)
	default:
		c.logger.Info("Catalog sync complete",
			zap.Int("inserted", inserted),
			zap.Int("updated", updated),
			zap.Duration("elapsed", elapsed),
		)
	}
}

// normalizeRecord maps one feed row onto the catalog entity. IsActive is
// only meaningful on insert; updates never touch it.
func normalizeRecord(r *feed.MarketRecord, now time.Time) models.CryptoAsset {
	return models.CryptoAsset{
		ExternalID:        r.ID,
		Symbol:            r.Symbol,
		Name:              r.Name,
		Image:             r.Image,
		CurrentPrice:      r.CurrentPrice,
		MarketCap:         r.MarketCap,
		MarketCapRank:     r.MarketCapRank,
		TotalVolume:       r.TotalVolume,
		High24h:           r.High24h,
		Low24h:            r.Low24h,
		PriceChangePct24h: r.PriceChange24h,
		PriceChangePct7d:  r.PriceChange7d,
		PriceChangePct30d: r.PriceChange30d,
		CirculatingSupply: r.CirculatingSupply,
		TotalSupply:       r.TotalSupply,
		MaxSupply:         r.MaxSupply,
		AllTimeHigh:       r.AllTimeHigh,
		AllTimeHighDate:   r.AllTimeHighDate,
		AllTimeLow:        r.AllTimeLow,
		AllTimeLowDate:    r.AllTimeLowDate,
		IsActive:          true,
		LastSyncedAt:      now,
	}
}
