package ranking

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"goreal-engine/pkg/config"
	"goreal-engine/pkg/errutil"
	"goreal-engine/pkg/repository"
	"goreal-engine/services/account"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Service struct {
	db        *gorm.DB
	node      *snowflake.Node
	accounts  repository.Repository[account.UserAccount]
	snapshots repository.Repository[Snapshot]
	topN      int
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		node:      p.Node,
		accounts:  repository.ProvideStore[account.UserAccount](p.DB),
		snapshots: repository.ProvideStore[Snapshot](p.DB),
		topN:      p.Config.Ranking.TopN,
	}
}

// weekStart is the most recent Monday 00:00 UTC at or before now.
func weekStart(now time.Time) time.Time {
	now = now.UTC()
	offset := (int(now.Weekday()) + 6) % 7
	day := now.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

func monthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// RolloverWindows zeroes the window counters of every account whose anchor
// predates the current window. Idempotent, so concurrent or repeated runs
// settle on the same state.
func (s *Service) RolloverWindows(ctx context.Context) error {
	now := time.Now()

	week := weekStart(now)
	if err := s.db.WithContext(ctx).
		Model(&account.UserAccount{}).
		Where("week_anchor < ?", week).
		Updates(map[string]any{"weekly_points": 0, "week_anchor": week}).Error; err != nil {
		return err
	}

	month := monthStart(now)
	return s.db.WithContext(ctx).
		Model(&account.UserAccount{}).
		Where("month_anchor < ?", month).
		Updates(map[string]any{"monthly_points": 0, "month_anchor": month}).Error
}

// Scopes returns every ranking scope to recompute, the global one first.
func (s *Service) Scopes(ctx context.Context) ([]string, error) {
	var guilds []string
	if err := s.db.WithContext(ctx).
		Model(&account.UserAccount{}).
		Where("guild_id <> ''").
		Distinct("guild_id").
		Order("guild_id ASC").
		Pluck("guild_id", &guilds).Error; err != nil {
		return nil, err
	}

	scopes := make([]string, 0, len(guilds)+1)
	scopes = append(scopes, ScopeGlobal)
	for _, guildID := range guilds {
		scopes = append(scopes, GuildScope(guildID))
	}
	return scopes, nil
}

// Recompute rebuilds all three window snapshots for one scope. Windows are
// computed concurrently without a shared cancellation context, so one failed
// window cannot abort a sibling mid-publish.
func (s *Service) Recompute(ctx context.Context, scope string) error {
	var g errgroup.Group
	for _, window := range Windows() {
		g.Go(func() error {
			return s.recomputeWindow(ctx, scope, window)
		})
	}
	return g.Wait()
}

// RecomputeAll rolls the windows over, then rebuilds every scope. A failing
// scope is logged and skipped so the rest of the pass still lands.
func (s *Service) RecomputeAll(ctx context.Context) error {
	if err := s.RolloverWindows(ctx); err != nil {
		return err
	}

	scopes, err := s.Scopes(ctx)
	if err != nil {
		return err
	}

	var lastErr error
	for _, scope := range scopes {
		if err := s.Recompute(ctx, scope); err != nil {
			zap.L().Error("scope recompute failed, continuing with remaining scopes",
				zap.String("scope", scope),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	return lastErr
}

func windowColumn(window string) string {
	switch window {
	case WindowWeekly:
		return "weekly_points"
	case WindowMonthly:
		return "monthly_points"
	default:
		return "total_points"
	}
}

func (s *Service) recomputeWindow(ctx context.Context, scope, window string) error {
	column := windowColumn(window)

	q := s.db.WithContext(ctx).
		Model(&account.UserAccount{}).
		Order(column + " DESC, id ASC").
		Limit(s.topN)
	if guildID, ok := strings.CutPrefix(scope, guildScopePrefix); ok {
		q = q.Where("guild_id = ?", guildID)
	}

	var accts []*account.UserAccount
	if err := q.Find(&accts).Error; err != nil {
		return err
	}

	entries := make([]Entry, 0, len(accts))
	rank := 0
	var prevPoints int64
	for i, acct := range accts {
		points := windowPoints(acct, window)
		if i == 0 || points != prevPoints {
			rank++
		}
		entries = append(entries, Entry{
			Rank:        rank,
			UserID:      acct.ID,
			DisplayName: acct.DisplayName,
			Points:      points,
			Tier:        acct.CurrentTier,
		})
		prevPoints = points
	}

	encoded, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	snapshot := &Snapshot{
		ID:         s.node.Generate().String(),
		Scope:      scope,
		Window:     window,
		Entries:    encoded,
		ComputedAt: time.Now(),
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scope = ? AND time_window = ?", scope, window).Delete(&Snapshot{}).Error; err != nil {
			return err
		}
		return s.snapshots.WithTrx(tx).Create(ctx, snapshot)
	})
}

func windowPoints(acct *account.UserAccount, window string) int64 {
	switch window {
	case WindowWeekly:
		return acct.WeeklyPoints
	case WindowMonthly:
		return acct.MonthlyPoints
	default:
		return acct.TotalPoints
	}
}

// Leaderboard returns the latest snapshot for the given scope and window.
func (s *Service) Leaderboard(ctx context.Context, scope, window string) (*Snapshot, []Entry, error) {
	if !ValidWindow(window) {
		return nil, nil, errutil.BadRequest("unknown ranking window")
	}

	snapshot, err := s.snapshots.FindOne(ctx, &Snapshot{Scope: scope, Window: window})
	if err != nil {
		return nil, nil, err
	}
	if snapshot == nil {
		return nil, nil, errutil.NotFound("no ranking snapshot for scope")
	}

	var entries []Entry
	if err := json.Unmarshal(snapshot.Entries, &entries); err != nil {
		return nil, nil, err
	}
	return snapshot, entries, nil
}
