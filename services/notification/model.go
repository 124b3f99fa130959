package notification

import "time"

const (
	CategoryActivitySynced = "activity_synced"
	CategoryTierUpgraded   = "tier_upgraded"
)

// Tier-upgrade notifications outlive routine activity ones.
const (
	activityTTL    = 7 * 24 * time.Hour
	tierUpgradeTTL = 30 * 24 * time.Hour
)

type Notification struct {
	ID        string    `gorm:"column:id;primaryKey;type:char(26)"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UserID    string    `gorm:"column:user_id;index;not null"`
	Category  string    `gorm:"column:category;type:varchar(30);not null"`
	Title     string    `gorm:"column:title;not null"`
	Message   string    `gorm:"column:message;type:text"`
	Read      bool      `gorm:"column:read;not null;default:false"`
	ExpiresAt time.Time `gorm:"column:expires_at;index"`
}

func (Notification) TableName() string {
	return "notifications"
}
