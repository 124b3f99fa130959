package tokenvault

import (
	"context"
	"errors"
	"time"

	"goreal-engine/pkg/config"
	"goreal-engine/pkg/repository"
	"goreal-engine/services/strava"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OAuthExchanger is the slice of the upstream client the vault needs.
type OAuthExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*strava.TokenGrant, error)
	Refresh(ctx context.Context, refreshToken string) (*strava.TokenGrant, error)
}

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	oauth  OAuthExchanger
	creds  repository.Repository[Credential]
	margin time.Duration
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
	Strava *strava.Client
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		oauth:  p.Strava,
		creds:  repository.ProvideStore[Credential](p.DB),
		margin: p.Config.Sync.TokenSafetyMargin,
	}
}

// EnsureLiveToken returns an access token valid for at least the safety
// margin from now, refreshing and persisting the rotated pair first when
// the stored one is about to expire.
func (s *Service) EnsureLiveToken(ctx context.Context, userID string) (string, error) {
	cred, err := s.creds.FindOne(ctx, &Credential{UserID: userID})
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", &NotConnectedError{UserID: userID}
	}

	if time.Until(cred.ExpiresAt) >= s.margin {
		return cred.AccessToken, nil
	}

	return s.refresh(ctx, cred)
}

// ForceRefresh refreshes unconditionally. Used when the upstream rejects a
// token the vault still considered live.
func (s *Service) ForceRefresh(ctx context.Context, userID string) (string, error) {
	cred, err := s.creds.FindOne(ctx, &Credential{UserID: userID})
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", &NotConnectedError{UserID: userID}
	}

	return s.refresh(ctx, cred)
}

func (s *Service) refresh(ctx context.Context, cred *Credential) (string, error) {
	grant, err := s.oauth.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		if errors.Is(err, strava.ErrInvalidGrant) {
			zap.L().Warn("refresh grant rejected",
				zap.String("user_id", cred.UserID),
				zap.Error(err),
			)
			return "", &CredentialExpiredError{UserID: cred.UserID}
		}
		return "", err
	}

	if err := s.creds.Update(ctx, cred.ID, map[string]any{
		"access_token":  grant.AccessToken,
		"refresh_token": grant.RefreshToken,
		"expires_at":    grant.Expiry(),
		"updated_at":    time.Now(),
	}); err != nil {
		return "", err
	}

	zap.L().Info("credential refreshed",
		zap.String("user_id", cred.UserID),
		zap.Time("expires_at", grant.Expiry()),
	)

	return grant.AccessToken, nil
}

// Connect performs the authorization-code handshake and stores the
// resulting credential, replacing any previous one for the user.
func (s *Service) Connect(ctx context.Context, userID, code string) (*Credential, error) {
	grant, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	cred := &Credential{
		ID:           s.node.Generate().String(),
		UserID:       userID,
		AthleteID:    grant.Athlete.ID,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    grant.Expiry(),
		Scope:        grant.Scope,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&Credential{}).Error; err != nil {
			return err
		}
		return s.creds.WithTrx(tx).Create(ctx, cred)
	}); err != nil {
		return nil, err
	}

	return cred, nil
}

// Disconnect removes the user's credential.
func (s *Service) Disconnect(ctx context.Context, userID string) error {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&Credential{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &NotConnectedError{UserID: userID}
	}
	return nil
}
