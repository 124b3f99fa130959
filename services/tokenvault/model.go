package tokenvault

import "time"

// Credential is the delegated-authorization pair for one user, one-to-one
// with their account. Created by Connect, rotated in place on refresh,
// removed on disconnect.
type Credential struct {
	ID           string    `gorm:"column:id;primaryKey;type:char(26)"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
	UserID       string    `gorm:"column:user_id;uniqueIndex;not null"`
	AthleteID    int64     `gorm:"column:athlete_id;index"`
	AccessToken  string    `gorm:"column:access_token;not null"`
	RefreshToken string    `gorm:"column:refresh_token;not null"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null"`
	Scope        string    `gorm:"column:scope"`
}

func (Credential) TableName() string {
	return "credentials"
}
