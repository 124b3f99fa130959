package sync

import (
	"fmt"
	"time"
)

// Summary is what one sync attempt reports back to the caller.
type Summary struct {
	ActivitiesProcessed int   `json:"activities_processed"`
	Duplicates          int   `json:"duplicates"`
	PointsGained        int64 `json:"points_gained"`
	TierUpgraded        bool  `json:"tier_upgraded"`
	NewTier             int   `json:"new_tier"`
	Truncated           bool  `json:"truncated"`
}

// RateLimitedError rejects a sync that arrives while another one runs or
// before the per-user cooldown has elapsed.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("sync rate limited, retry after %s", e.RetryAfter)
}
