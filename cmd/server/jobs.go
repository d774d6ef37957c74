// Package main provides the chatgate server entry point.
package main

import (
	"context"
	"time"

	"github.com/yuchenlin/chatgate-go/internal/logger"
	"github.com/yuchenlin/chatgate-go/internal/storage"
)

const sweepInterval = 12 * time.Hour

// sweepDeliveries periodically removes delivery rows older than the
// configured retention. Runs until ctx is cancelled.
func sweepDeliveries(ctx context.Context, db *storage.DB, log *logger.Logger) {
	log = log.WithModule("jobs")

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
			removed, err := db.Sweep(sweepCtx)
			cancel()
			if err != nil {
				log.WithError(err).Error("Delivery log sweep failed")
				continue
			}
			if removed > 0 {
				log.WithField("removed", removed).Info("Swept expired delivery rows")
			}
		}
	}
}
