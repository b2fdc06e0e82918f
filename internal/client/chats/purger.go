package chats

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartTrashPurger permanently deletes trash entries older than retention
// every interval until ctx is cancelled.
func StartTrashPurger(
	ctx context.Context,
	repo *Repository,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := repo.clock.Now().Add(-retention)
				if n := repo.PurgeDeletedBefore(cutoff); n > 0 {
					log.Info("purged deleted chats", zap.Int("removed", n))
				}
			}
		}
	}()
}
