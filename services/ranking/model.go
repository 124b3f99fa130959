package ranking

import (
	"time"

	"gorm.io/datatypes"
)

const (
	WindowWeekly  = "weekly"
	WindowMonthly = "monthly"
	WindowAllTime = "all_time"

	// ScopeGlobal ranks every account; guild scopes are "guild:<id>".
	ScopeGlobal = "global"

	guildScopePrefix = "guild:"
)

// GuildScope returns the scope name for one guild.
func GuildScope(guildID string) string {
	return guildScopePrefix + guildID
}

// Windows lists every ranking window, in recompute order.
func Windows() []string {
	return []string{WindowWeekly, WindowMonthly, WindowAllTime}
}

// ValidWindow reports whether the given window name is recognized.
func ValidWindow(window string) bool {
	switch window {
	case WindowWeekly, WindowMonthly, WindowAllTime:
		return true
	}
	return false
}

// Entry is one row of a computed leaderboard. Ties share a rank and the
// next distinct score takes the following one.
type Entry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Points      int64  `json:"points"`
	Tier        int    `json:"tier"`
}

// Snapshot is the persisted leaderboard for one (scope, window) pair. Each
// recompute replaces the previous snapshot wholesale.
type Snapshot struct {
	ID         string         `gorm:"column:id;primaryKey;type:char(26)"`
	Scope      string         `gorm:"column:scope;not null;uniqueIndex:idx_snapshot_scope_window"`
	Window     string         `gorm:"column:time_window;not null;uniqueIndex:idx_snapshot_scope_window"`
	Entries    datatypes.JSON `gorm:"column:entries"`
	ComputedAt time.Time      `gorm:"column:computed_at;not null"`
}

func (Snapshot) TableName() string {
	return "ranking_snapshots"
}
