package tokenvault

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"goreal-engine/pkg/repository"
	"goreal-engine/services/strava"
	"goreal-engine/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type oauthMock struct {
	exchangeCodeFn func(ctx context.Context, code string) (*strava.TokenGrant, error)
	refreshFn      func(ctx context.Context, refreshToken string) (*strava.TokenGrant, error)
}

func (m *oauthMock) ExchangeCode(ctx context.Context, code string) (*strava.TokenGrant, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, errors.New("unexpected ExchangeCode call")
}

func (m *oauthMock) Refresh(ctx context.Context, refreshToken string) (*strava.TokenGrant, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return nil, errors.New("unexpected Refresh call")
}

func newTestService(t *testing.T, oauth *oauthMock) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &Credential{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := &Service{
		db:     db,
		node:   node,
		oauth:  oauth,
		creds:  repository.ProvideStore[Credential](db),
		margin: time.Hour,
	}
	return svc, db
}

func seedCredential(t *testing.T, db *gorm.DB, expiresIn time.Duration) *Credential {
	t.Helper()

	cred := &Credential{
		ID:           "cred-1",
		UserID:       "user-1",
		AthleteID:    42,
		AccessToken:  "live-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(expiresIn),
		Scope:        "activity:read",
	}
	require.NoError(t, db.Create(cred).Error)
	return cred
}

func TestEnsureLiveTokenNotConnected(t *testing.T) {
	svc, _ := newTestService(t, &oauthMock{})

	_, err := svc.EnsureLiveToken(context.Background(), "user-1")

	var notConnected *NotConnectedError
	require.ErrorAs(t, err, &notConnected)
	require.Equal(t, "user-1", notConnected.UserID)
}

func TestEnsureLiveTokenPassthrough(t *testing.T) {
	oauth := &oauthMock{
		refreshFn: func(ctx context.Context, refreshToken string) (*strava.TokenGrant, error) {
			t.Fatal("refresh must not be called for a live token")
			return nil, nil
		},
	}
	svc, db := newTestService(t, oauth)
	seedCredential(t, db, 2*time.Hour)

	token, err := svc.EnsureLiveToken(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "live-token", token)
}

func TestEnsureLiveTokenRefreshesNearExpiry(t *testing.T) {
	rotated := &strava.TokenGrant{
		AccessToken:  "rotated-access",
		RefreshToken: "rotated-refresh",
		ExpiresAt:    time.Now().Add(6 * time.Hour).Unix(),
	}
	oauth := &oauthMock{
		refreshFn: func(ctx context.Context, refreshToken string) (*strava.TokenGrant, error) {
			require.Equal(t, "refresh-token", refreshToken)
			return rotated, nil
		},
	}
	svc, db := newTestService(t, oauth)
	seedCredential(t, db, 10*time.Minute)

	token, err := svc.EnsureLiveToken(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "rotated-access", token)

	var stored Credential
	require.NoError(t, db.First(&stored, "user_id = ?", "user-1").Error)
	require.Equal(t, "rotated-access", stored.AccessToken)
	require.Equal(t, "rotated-refresh", stored.RefreshToken)
	require.WithinDuration(t, rotated.Expiry(), stored.ExpiresAt, time.Second)
}

func TestEnsureLiveTokenRejectedGrant(t *testing.T) {
	oauth := &oauthMock{
		refreshFn: func(ctx context.Context, refreshToken string) (*strava.TokenGrant, error) {
			return nil, fmt.Errorf("%w: status 400", strava.ErrInvalidGrant)
		},
	}
	svc, db := newTestService(t, oauth)
	seedCredential(t, db, time.Minute)

	_, err := svc.EnsureLiveToken(context.Background(), "user-1")

	var expired *CredentialExpiredError
	require.ErrorAs(t, err, &expired)
	require.Equal(t, "user-1", expired.UserID)
}

func TestForceRefreshRotatesLiveToken(t *testing.T) {
	oauth := &oauthMock{
		refreshFn: func(ctx context.Context, refreshToken string) (*strava.TokenGrant, error) {
			return &strava.TokenGrant{
				AccessToken:  "forced-access",
				RefreshToken: "forced-refresh",
				ExpiresAt:    time.Now().Add(6 * time.Hour).Unix(),
			}, nil
		},
	}
	svc, db := newTestService(t, oauth)
	seedCredential(t, db, 5*time.Hour)

	token, err := svc.ForceRefresh(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "forced-access", token)
}

func TestConnectReplacesCredential(t *testing.T) {
	grant := &strava.TokenGrant{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		ExpiresAt:    time.Now().Add(6 * time.Hour).Unix(),
		Scope:        "activity:read_all",
	}
	grant.Athlete.ID = 77

	oauth := &oauthMock{
		exchangeCodeFn: func(ctx context.Context, code string) (*strava.TokenGrant, error) {
			require.Equal(t, "auth-code", code)
			return grant, nil
		},
	}
	svc, db := newTestService(t, oauth)
	seedCredential(t, db, time.Hour)

	cred, err := svc.Connect(context.Background(), "user-1", "auth-code")
	require.NoError(t, err)
	require.Equal(t, int64(77), cred.AthleteID)

	var count int64
	require.NoError(t, db.Model(&Credential{}).Where("user_id = ?", "user-1").Count(&count).Error)
	require.Equal(t, int64(1), count)

	var stored Credential
	require.NoError(t, db.First(&stored, "user_id = ?", "user-1").Error)
	require.Equal(t, "new-access", stored.AccessToken)
}

func TestDisconnect(t *testing.T) {
	svc, db := newTestService(t, &oauthMock{})
	seedCredential(t, db, time.Hour)

	require.NoError(t, svc.Disconnect(context.Background(), "user-1"))

	var notConnected *NotConnectedError
	require.ErrorAs(t, svc.Disconnect(context.Background(), "user-1"), &notConnected)
}
