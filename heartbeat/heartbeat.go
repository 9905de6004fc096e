package heartbeat

import (
	"context"
	"time"

	"github.com/moastrends/newsroom/store"
	"github.com/pkg/errors"

	Logger "github.com/moastrends/newsroom/utils/log"
)

// DefaultInterval keeps the backing database from idling out its connections
// on free hosting tiers.
const DefaultInterval = 10 * time.Minute

// Heartbeat pings the row store on a fixed interval. It runs as an engine
// module so its lifetime is owned by the process: cancelling the engine's
// context stops the ticker, nothing keeps running after shutdown.
type Heartbeat struct {
	store    store.Store
	interval time.Duration
}

func New(st store.Store, interval time.Duration) *Heartbeat {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Heartbeat{store: st, interval: interval}
}

func (h *Heartbeat) RunModule(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := h.store.Ping(ctx); err != nil {
				// A failed ping is logged and the ticker keeps going. The
				// next beat probably lands after the store recovers.
				Logger.Log.Errorf("heartbeat ping failed: %v", errors.Wrap(err, "ping store"))
			}
		}
	}
}

func (h *Heartbeat) Name() string {
	return "heartbeat"
}

func (h *Heartbeat) Shutdown() {}
