package notification

import (
	"context"
	"fmt"
	"time"

	"goreal-engine/pkg/db/option"
	"goreal-engine/pkg/repository"
	"goreal-engine/services/reward"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db            *gorm.DB
	node          *snowflake.Node
	notifications repository.Repository[Notification]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:            p.DB,
		node:          p.Node,
		notifications: repository.ProvideStore[Notification](p.DB),
	}
}

// TierUpgraded records a tier-crossing notification. Creation is best
// effort; failures are logged and never propagated so they cannot roll back
// the ledger transaction that triggered them.
func (s *Service) TierUpgraded(ctx context.Context, userID string, fromTier, toTier int, pointsGained, newTotal int64) {
	now := time.Now()
	record := &Notification{
		ID:        s.node.Generate().String(),
		UserID:    userID,
		Category:  CategoryTierUpgraded,
		Title:     fmt.Sprintf("Tier %d reached!", toTier),
		Message:   fmt.Sprintf("Your avatar advanced from tier %d to tier %d with %d stamina points.", fromTier, toTier, newTotal),
		ExpiresAt: now.Add(tierUpgradeTTL),
	}

	if err := s.notifications.Create(ctx, record); err != nil {
		zap.L().Error("failed to create tier-upgrade notification",
			zap.String("user_id", userID),
			zap.Int("to_tier", toTier),
			zap.Error(err),
		)
	}
}

// ActivitySynced records a routine per-activity notification, best effort.
func (s *Service) ActivitySynced(ctx context.Context, userID string, activityType reward.ActivityType, distanceKm float64, points int64) {
	now := time.Now()
	record := &Notification{
		ID:        s.node.Generate().String(),
		UserID:    userID,
		Category:  CategoryActivitySynced,
		Title:     "Activity synced",
		Message:   fmt.Sprintf("%s of %.1f km earned you %d stamina points.", activityType, distanceKm, points),
		ExpiresAt: now.Add(activityTTL),
	}

	if err := s.notifications.Create(ctx, record); err != nil {
		zap.L().Error("failed to create activity notification",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

// List returns the user's notifications, newest first. Snowflake IDs are
// time-ordered, so sorting by ID gives a stable newest-first order even
// within one timestamp.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error) {
	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "id",
			OrderBy: "desc",
			Allow:   map[string]bool{"id": true},
		}),
	}
	if unreadOnly {
		opts = append(opts, option.WithFilter("read", false))
	}

	return s.notifications.Find(ctx, &Notification{UserID: userID}, opts...)
}

// MarkRead flips the read flag on one notification.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	return s.notifications.Update(ctx, id, map[string]any{"read": true})
}
