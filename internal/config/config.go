package config

const (
	DefaultTimeZone = "Asia/Kolkata"

	// Cycle Roller Configuration Constants
	// Runs shortly after midnight on the first of every month.
	DefaultCycleSchedule = "10 0 1 * *"

	// Expiry sweep marks allocation files past their expiry date.
	DefaultExpirySchedule = "0 1 * * *"
)
