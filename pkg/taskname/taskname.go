package taskname

const (
	// Ranking tasks
	RankingRecompute = "ranking:recompute"

	// Notification tasks
	NotificationCleanupExpired = "notification:cleanup:expired"
)
