package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/prospect-crm/internal/entity"
)

// Lister reloads the prospect cache. *usecase.ProspectRepository satisfies it.
type Lister interface {
	List(ctx context.Context) ([]entity.Prospect, error)
}

// CacheRefresher re-lists prospects on a fixed interval so the in-memory
// cache picks up writes made by other clients.
type CacheRefresher struct {
	lister    Lister
	interval  time.Duration
	logger    *zap.Logger
	onRefresh func([]entity.Prospect)
}

func NewCacheRefresher(lister Lister, interval time.Duration, logger *zap.Logger, onRefresh func([]entity.Prospect)) *CacheRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if onRefresh == nil {
		onRefresh = func([]entity.Prospect) {}
	}
	return &CacheRefresher{
		lister:    lister,
		interval:  interval,
		logger:    logger,
		onRefresh: onRefresh,
	}
}

// Start refreshes once immediately, then on every tick until ctx is done.
func (w *CacheRefresher) Start(ctx context.Context) {
	w.logger.Info("cache refresher started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("cache refresher stopped")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *CacheRefresher) refresh(ctx context.Context) {
	prospects, err := w.lister.List(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("cache refresh failed", zap.Error(err))
		}
		return
	}
	w.logger.Debug("cache refreshed", zap.Int("prospects", len(prospects)))
	w.onRefresh(prospects)
}
