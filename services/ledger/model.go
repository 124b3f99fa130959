package ledger

import "time"

// ActivityRecord is one processed external activity. The (user, external id)
// pair is the natural key; records are append-only and never mutated.
type ActivityRecord struct {
	ID          string    `gorm:"column:id;primaryKey;type:char(26)"`
	UserID      string    `gorm:"column:user_id;not null;uniqueIndex:idx_activity_user_external"`
	ExternalID  int64     `gorm:"column:external_id;not null;uniqueIndex:idx_activity_user_external"`
	Type        string    `gorm:"column:type;type:varchar(20);not null"`
	DistanceKm  float64   `gorm:"column:distance_km;not null"`
	StartTime   time.Time `gorm:"column:start_time;index"`
	Points      int64     `gorm:"column:points;not null"`
	TierBefore  int       `gorm:"column:tier_before;not null"`
	TierAfter   int       `gorm:"column:tier_after;not null"`
	ProcessedAt time.Time `gorm:"column:processed_at;not null"`
}

func (ActivityRecord) TableName() string {
	return "activity_records"
}

// IngestResult summarizes one ingest batch. TierBefore is the tier at the
// first applied activity, TierAfter the tier after the last one.
type IngestResult struct {
	Processed    int
	Duplicates   int
	PointsGained int64
	TierBefore   int
	TierAfter    int
}
