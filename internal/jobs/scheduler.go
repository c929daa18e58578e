package jobs

import (
	"fmt"
	"log"

	"SigmaCollect/internal/logger"
	"SigmaCollect/internal/serviceiface"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CronService struct {
	config map[string]interface{}
	db     *pgxpool.Pool
}

// logCycleEvent guards the global logger the way the service handlers
// do; the cron service can start before the logger service registers.
func logCycleEvent(msg string) {
	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogCycle(msg)
	}
}

func NewCronService(cfg map[string]interface{}, db *pgxpool.Pool) serviceiface.Service {
	return &CronService{
		config: cfg,
		db:     db,
	}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	log.Println("🚀 Starting cron service...")

	// Monthly cycle roller
	cycleConfig := NewDefaultCycleConfig()

	// Override schedule from services.yaml if provided
	if s.config != nil {
		if schedule, ok := s.config["cycle_schedule"].(string); ok && schedule != "" {
			cycleConfig.Schedule = schedule
		}
	}

	if err := RunCycleRoller(cycleConfig, s.db); err != nil {
		return fmt.Errorf("failed to start cycle roller: %v", err)
	}

	logCycleEvent("Cron service started with cycle roller")
	log.Println("Cron service started — Cycle Roller scheduled")

	// Allocation file expiry sweep
	expiryConfig := NewDefaultExpiryConfig()

	if s.config != nil {
		if schedule, ok := s.config["expiry_schedule"].(string); ok && schedule != "" {
			expiryConfig.Schedule = schedule
		}
	}

	if err := RunExpirySweeper(expiryConfig, s.db); err != nil {
		return fmt.Errorf("failed to start expiry sweep: %v", err)
	}

	logCycleEvent("Expiry sweep scheduled")
	log.Println("Cron service started — Expiry Sweep scheduled")

	return nil
}

func (s *CronService) Stop() error {
	// The cron jobs are managed internally by RunCycleRoller
	log.Println("Cron service stopped.")
	return nil
}
