package jobs

import (
	"testing"

	"SigmaCollect/internal/logger"
)

func TestLogCycleEventBeforeLoggerStarts(t *testing.T) {
	prev := logger.GlobalLogger
	logger.SetGlobalLogger(nil)
	defer logger.SetGlobalLogger(prev)

	// Must not panic when the logger service has not registered yet.
	logCycleEvent("cycle roll attempted before logger start")
}
