package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"medadherence/internal/logging"
)

// runRetentionOnce deletes dose logs whose ExpiresAt has passed and snapshots older
// than the retention window.
func runRetentionOnce(ctx context.Context, db *gorm.DB, retentionDays int, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at IS NOT NULL AND expires_at <= ?", now).Delete(&DoseLog{})
	if res.Error != nil {
		return 0, res.Error
	}
	deleted := res.RowsAffected

	if retentionDays > 0 {
		cutoff := now.Add(-time.Duration(retentionDays) * 24 * time.Hour)
		res = db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&ReportSnapshot{})
		if res.Error != nil {
			return deleted, res.Error
		}
		deleted += res.RowsAffected
	}
	return deleted, nil
}

// StartRetentionWorker launches a background goroutine that runs the retention cleanup
// once at startup and then once per day until ctx is done.
func StartRetentionWorker(ctx context.Context, db *gorm.DB, retentionDays int) {
	log := logging.With().Str("worker", "retention").Logger()

	run := func() {
		n, err := runRetentionOnce(ctx, db, retentionDays, time.Now())
		if err != nil {
			log.Error().Err(err).Msg("retention cleanup failed")
			return
		}
		if n > 0 {
			log.Info().Int64("deleted", n).Msg("retention cleanup")
		}
	}

	go func() {
		run()

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}
