package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"SigmaCollect/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
)

// ExpiryConfig controls the allocation file expiry sweep.
type ExpiryConfig struct {
	Schedule string
	TimeZone string
}

func NewDefaultExpiryConfig() *ExpiryConfig {
	return &ExpiryConfig{
		Schedule: config.DefaultExpirySchedule,
		TimeZone: config.DefaultTimeZone,
	}
}

// RunExpirySweeper schedules the nightly job that persists the EXPIRED
// status on allocation files past their expiry date. Reads derive the
// same status on the fly, so the sweep only keeps listings and reports
// consistent with what the API returns.
func RunExpirySweeper(cfg *ExpiryConfig, db *pgxpool.Pool) error {
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultExpirySchedule
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = config.DefaultTimeZone
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
		logCycleEvent(fmt.Sprintf("Invalid timezone %s, falling back to UTC: %v", cfg.TimeZone, err))
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Schedule, func() {
		n, err := SweepExpiredFiles(context.Background(), db, time.Now().In(loc))
		if err != nil {
			logCycleEvent(fmt.Sprintf("Expiry sweep failed: %v", err))
			log.Printf("[ERROR] expiry sweep failed: %v", err)
			return
		}
		if n > 0 {
			logCycleEvent(fmt.Sprintf("Expiry sweep marked %d allocation files EXPIRED", n))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %v", err)
	}

	c.Start()
	return nil
}

// SweepExpiredFiles marks files past expiry and returns how many
// changed.
func SweepExpiredFiles(ctx context.Context, db *pgxpool.Pool, now time.Time) (int64, error) {
	tag, err := db.Exec(ctx, `
		UPDATE allocation_files
		SET allocation_status = 'EXPIRED', updated_at = now()
		WHERE expiry_date IS NOT NULL
		  AND expiry_date < $1
		  AND allocation_status != 'EXPIRED'`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
