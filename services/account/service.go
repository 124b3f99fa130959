package account

import (
	"context"
	"time"

	"goreal-engine/pkg/errutil"
	"goreal-engine/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Service struct {
	node     *snowflake.Node
	accounts repository.Repository[UserAccount]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:     p.Node,
		accounts: repository.ProvideStore[UserAccount](p.DB),
	}
}

// Get returns the account or a not-found error.
func (s *Service) Get(ctx context.Context, userID string) (*UserAccount, error) {
	acct, err := s.accounts.FindOne(ctx, &UserAccount{ID: userID})
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, errutil.NotFound("user account not found")
	}
	return acct, nil
}

// Ensure returns the existing account or creates a fresh one with zeroed
// totals. Window anchors start at creation time so the first rollover does
// not reset counters that were never earned.
func (s *Service) Ensure(ctx context.Context, userID, displayName, guildID string) (*UserAccount, error) {
	acct, err := s.accounts.FindOne(ctx, &UserAccount{ID: userID})
	if err != nil {
		return nil, err
	}
	if acct != nil {
		return acct, nil
	}

	now := time.Now()
	acct = &UserAccount{
		ID:          userID,
		GuildID:     guildID,
		DisplayName: displayName,
		WeekAnchor:  now,
		MonthAnchor: now,
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// LinkAthlete records the external athlete identity after a successful
// OAuth handshake.
func (s *Service) LinkAthlete(ctx context.Context, userID string, athleteID int64) error {
	return s.accounts.Update(ctx, userID, map[string]any{"athlete_id": athleteID})
}
