package account

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// UserAccount carries the running reward totals for one player. Reward
// fields are written only inside the ledger's ingest transaction and by the
// ranking aggregator's window rollover.
type UserAccount struct {
	ID             string         `gorm:"column:id;primaryKey;type:char(26)"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	GuildID        string         `gorm:"column:guild_id;index"`
	DisplayName    string         `gorm:"column:display_name"`
	AthleteID      int64          `gorm:"column:athlete_id;uniqueIndex"`
	TotalPoints    int64          `gorm:"column:total_points;not null;default:0"`
	CurrentTier    int            `gorm:"column:current_tier;not null;default:0"`
	WeeklyPoints   int64          `gorm:"column:weekly_points;not null;default:0"`
	MonthlyPoints  int64          `gorm:"column:monthly_points;not null;default:0"`
	WeekAnchor     time.Time      `gorm:"column:week_anchor"`
	MonthAnchor    time.Time      `gorm:"column:month_anchor"`
	LastSyncAt     *time.Time     `gorm:"column:last_sync_at"`
	LastActivityAt *time.Time     `gorm:"column:last_activity_at"`
	DistanceTotals datatypes.JSON `gorm:"column:distance_totals"`
}

func (UserAccount) TableName() string {
	return "user_accounts"
}

// DistanceByType decodes the lifetime distance totals, keyed by activity
// type. A missing or corrupt column decodes to an empty map.
func (a *UserAccount) DistanceByType() map[string]float64 {
	totals := make(map[string]float64)
	if len(a.DistanceTotals) > 0 {
		_ = json.Unmarshal(a.DistanceTotals, &totals)
	}
	return totals
}

func EncodeDistanceTotals(totals map[string]float64) datatypes.JSON {
	b, _ := json.Marshal(totals)
	return datatypes.JSON(b)
}
