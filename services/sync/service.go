package sync

import (
	"context"
	"errors"
	"time"

	"goreal-engine/pkg/config"
	"goreal-engine/pkg/errutil"
	"goreal-engine/pkg/rediskey"
	"goreal-engine/pkg/repository"
	"goreal-engine/services/account"
	"goreal-engine/services/ledger"
	"goreal-engine/services/strava"
	"goreal-engine/services/tokenvault"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TokenVault is the credential slice the orchestrator needs.
type TokenVault interface {
	EnsureLiveToken(ctx context.Context, userID string) (string, error)
	ForceRefresh(ctx context.Context, userID string) (string, error)
}

// Fetcher pulls activities from the upstream provider.
type Fetcher interface {
	FetchSince(ctx context.Context, accessToken string, since time.Time) (*strava.FetchResult, error)
}

// Ledger applies fetched activities to the user's account.
type Ledger interface {
	Ingest(ctx context.Context, userID string, acts []strava.Activity) (*ledger.IngestResult, error)
}

type Service struct {
	vault    TokenVault
	fetcher  Fetcher
	ledger   Ledger
	locker   Locker
	accounts repository.Repository[account.UserAccount]

	cooldown     time.Duration
	fetchTimeout time.Duration
	lockTTL      time.Duration
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Config *config.Config
	Redis  *redis.Client
	Vault  *tokenvault.Service
	Strava *strava.Client
	Ledger *ledger.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		vault:        p.Vault,
		fetcher:      p.Strava,
		ledger:       p.Ledger,
		locker:       NewRedisLocker(p.Redis),
		accounts:     repository.ProvideStore[account.UserAccount](p.DB),
		cooldown:     p.Config.Sync.Cooldown,
		fetchTimeout: p.Config.Sync.FetchTimeout,
		lockTTL:      p.Config.Sync.LockTTL,
	}
}

// Sync runs one full fetch-and-ingest pass for the user. At most one sync
// per user runs at a time, and a completed sync starts the cooldown clock
// whether or not it found new activities.
func (s *Service) Sync(ctx context.Context, userID string) (*Summary, error) {
	span := trace.SpanFromContext(ctx)

	lockKey := rediskey.BuildSyncLockKey(userID)
	acquired, err := s.locker.Acquire(ctx, lockKey, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, &RateLimitedError{RetryAfter: s.lockTTL}
	}
	defer s.locker.Release(ctx, lockKey)

	// Read under the lock so the cooldown decision sees the LastSyncAt
	// written by any sync that finished while this one waited to acquire.
	acct, err := s.accounts.FindOne(ctx, &account.UserAccount{ID: userID})
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, errutil.NotFound("user account not found")
	}

	if acct.LastSyncAt != nil {
		if elapsed := time.Since(*acct.LastSyncAt); elapsed < s.cooldown {
			return nil, &RateLimitedError{RetryAfter: s.cooldown - elapsed}
		}
	}

	token, err := s.vault.EnsureLiveToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	var since time.Time
	if acct.LastActivityAt != nil {
		since = *acct.LastActivityAt
	}

	fetched, err := s.fetch(ctx, userID, token, since)
	if err != nil {
		return nil, err
	}

	result, ingestErr := s.ledger.Ingest(ctx, userID, fetched.Activities)

	now := time.Now()
	updates := map[string]any{"last_sync_at": now}
	if ingestErr == nil {
		if cursor := latestStart(fetched.Activities); !cursor.IsZero() {
			updates["last_activity_at"] = cursor
		}
	}
	if err := s.accounts.Update(ctx, userID, updates); err != nil {
		return nil, err
	}

	summary := &Summary{
		ActivitiesProcessed: result.Processed,
		Duplicates:          result.Duplicates,
		PointsGained:        result.PointsGained,
		TierUpgraded:        result.TierAfter > result.TierBefore,
		NewTier:             acct.CurrentTier,
		Truncated:           fetched.Truncated,
	}
	if result.Processed > 0 {
		summary.NewTier = result.TierAfter
	}

	if ingestErr != nil {
		// Committed units stay committed; report what landed and let the
		// next sync pick up the rest from the unmoved cursor.
		zap.L().Error("sync completed partially",
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.String("span_id", span.SpanContext().SpanID().String()),
			zap.String("user_id", userID),
			zap.Int("processed", result.Processed),
			zap.Error(ingestErr),
		)
		return summary, nil
	}

	zap.L().Info("sync completed",
		zap.String("user_id", userID),
		zap.Int("processed", result.Processed),
		zap.Int("duplicates", result.Duplicates),
		zap.Int64("points_gained", result.PointsGained),
		zap.Bool("truncated", fetched.Truncated),
	)

	return summary, nil
}

// fetch runs the bounded page-walk under its own deadline, retrying once
// with a forced refresh when the upstream rejects a token the vault still
// considered live.
func (s *Service) fetch(ctx context.Context, userID, token string, since time.Time) (*strava.FetchResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	fetched, err := s.fetcher.FetchSince(fetchCtx, token, since)
	if err == nil {
		return fetched, nil
	}

	var authErr *strava.UpstreamAuthError
	if !errors.As(err, &authErr) {
		return nil, err
	}

	zap.L().Warn("access token rejected upstream, forcing refresh",
		zap.String("user_id", userID),
		zap.Error(err),
	)

	token, err = s.vault.ForceRefresh(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.fetcher.FetchSince(fetchCtx, token, since)
}

func latestStart(acts []strava.Activity) time.Time {
	var latest time.Time
	for _, act := range acts {
		if act.StartTime.After(latest) {
			latest = act.StartTime
		}
	}
	return latest
}
