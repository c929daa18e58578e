package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"SigmaCollect/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
)

// CycleConfig controls the monthly cycle roller job.
type CycleConfig struct {
	Schedule string
	TimeZone string
}

func NewDefaultCycleConfig() *CycleConfig {
	return &CycleConfig{
		Schedule: config.DefaultCycleSchedule,
		TimeZone: config.DefaultTimeZone,
	}
}

// RunCycleRoller schedules the job that closes the previous monthly
// cycle and opens the current one. Allocation uploads always land in
// the single OPEN cycle, so the roller runs before business hours on
// the first of the month.
func RunCycleRoller(cfg *CycleConfig, db *pgxpool.Pool) error {
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultCycleSchedule
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
		logCycleEvent(fmt.Sprintf("Starting monthly cycle roll at %s", time.Now().In(loc).Format(time.RFC3339)))
		if err := RollMonthlyCycle(context.Background(), db, time.Now().In(loc)); err != nil {
			logCycleEvent(fmt.Sprintf("Monthly cycle roll failed: %v", err))
			log.Printf("[ERROR] monthly cycle roll failed: %v", err)
		} else {
			logCycleEvent("Monthly cycle roll completed successfully")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cycle roller: %v", err)
	}

	c.Start()

	// Roll once on startup so a fresh database has an OPEN cycle
	// before the first upload arrives.
	if err := RollMonthlyCycle(context.Background(), db, time.Now().In(loc)); err != nil {
		log.Printf("[ERROR] initial cycle roll failed: %v", err)
	}

	return nil
}

// RollMonthlyCycle closes every OPEN cycle that ended before now and
// opens the cycle covering now's month if it does not exist yet.
func RollMonthlyCycle(ctx context.Context, db *pgxpool.Pool, now time.Time) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin cycle roll: %v", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			log.Printf("[ERROR] rollback failed: %v", err)
		}
	}()

	if _, err := tx.Exec(ctx, `
		UPDATE monthly_cycles
		SET status = 'CLOSED', updated_at = now()
		WHERE status = 'OPEN' AND end_date < $1`, now); err != nil {
		return fmt.Errorf("close elapsed cycles: %v", err)
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	label := start.Format("Jan-2006")

	if _, err := tx.Exec(ctx, `
		INSERT INTO monthly_cycles (label, start_date, end_date, status)
		SELECT $1, $2, $3, 'OPEN'
		WHERE NOT EXISTS (
			SELECT 1 FROM monthly_cycles WHERE label = $1
		)`, label, start, end); err != nil {
		return fmt.Errorf("open cycle %s: %v", label, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit cycle roll: %v", err)
	}
	return nil
}
