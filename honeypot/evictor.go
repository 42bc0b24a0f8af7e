package honeypot

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultEvictInterval = time.Hour
	DefaultMaxAge        = 24 * time.Hour
)

// Evictor periodically removes tokens that were issued but never used.
type Evictor struct {
	Store    Store
	Interval time.Duration
	MaxAge   time.Duration
	Logger   *zap.Logger

	now func() time.Time
}

// EvictOnce removes tokens older than MaxAge.
func (e *Evictor) EvictOnce(ctx context.Context) (int, error) {
	now := time.Now
	if e.now != nil {
		now = e.now
	}
	maxAge := e.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return e.Store.Evict(ctx, now().Add(-maxAge))
}

// Run evicts every Interval until ctx is done. It returns nil on
// cancellation.
func (e *Evictor) Run(ctx context.Context) error {
	interval := e.Interval
	if interval <= 0 {
		interval = DefaultEvictInterval
	}
	log := e.Logger
	if log == nil {
		log = zap.NewNop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := e.EvictOnce(ctx)
			if err != nil {
				log.Warn("honeypot eviction failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("evicted honeypot tokens", zap.Int("count", n))
			}
		}
	}
}
