package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	f := &AllocationFile{AllocationStatus: StatusInProgress}
	assert.Equal(t, StatusInProgress, f.EffectiveStatus(now), "no expiry date set")

	f.ExpiryDate = &future
	assert.Equal(t, StatusInProgress, f.EffectiveStatus(now))

	f.ExpiryDate = &past
	assert.Equal(t, StatusExpired, f.EffectiveStatus(now))

	// Expiry overrides COMPLETED too.
	f.AllocationStatus = StatusCompleted
	assert.Equal(t, StatusExpired, f.EffectiveStatus(now))
}
